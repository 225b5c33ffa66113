package comed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(apiURL, referenceURL string) *Client {
	return NewClient(apiURL, referenceURL, 2*time.Second, ClientConfig{
		MaxRetries:     1,
		RetryDelayBase: time.Millisecond,
	})
}

func TestFetchSpotPrice(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    float64
		wantErr bool
	}{
		{
			name:   "string price",
			status: http.StatusOK,
			body:   `[{"millisUTC":"1725000000000","price":"3.1"}]`,
			want:   3.1,
		},
		{
			name:   "numeric price",
			status: http.StatusOK,
			body:   `[{"millisUTC":"1725000000000","price":12.4}]`,
			want:   12.4,
		},
		{
			name:   "first element authoritative",
			status: http.StatusOK,
			body:   `[{"price":"8.0"},{"price":"2.0"}]`,
			want:   8.0,
		},
		{
			name:    "empty array",
			status:  http.StatusOK,
			body:    `[]`,
			wantErr: true,
		},
		{
			name:    "non-numeric price",
			status:  http.StatusOK,
			body:    `[{"price":"n/a"}]`,
			wantErr: true,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"oops":`,
			wantErr: true,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `[]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(srv.URL, srv.URL)
			got, err := c.FetchSpotPrice(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("FetchSpotPrice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("FetchSpotPrice() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFetchReferencePrice(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    float64
		wantErr bool
	}{
		{
			name: "second row second cell",
			body: `<html><body><table>
				<tr><th>Period</th><th>Price to Compare</th></tr>
				<tr><td>Jun - Sep</td><td>6.925 cents</td></tr>
				<tr><td>Oct - May</td><td>5.1 cents</td></tr>
			</table></body></html>`,
			want: 6.925,
		},
		{
			name: "tbody wrapper",
			body: `<html><body><table><tbody>
				<tr><td>a</td><td>b</td></tr>
				<tr><td>label</td><td>7.2&cent;</td></tr>
			</tbody></table></body></html>`,
			want: 7.2,
		},
		{
			name:    "no table",
			body:    `<html><body><p>maintenance</p></body></html>`,
			wantErr: true,
		},
		{
			name:    "single row",
			body:    `<html><body><table><tr><td>only</td><td>6.9</td></tr></table></body></html>`,
			wantErr: true,
		},
		{
			name: "too few cells",
			body: `<html><body><table>
				<tr><td>a</td><td>b</td></tr>
				<tr><td>lonely</td></tr>
			</table></body></html>`,
			wantErr: true,
		},
		{
			name: "no numeric token",
			body: `<html><body><table>
				<tr><td>a</td><td>b</td></tr>
				<tr><td>label</td><td>TBD</td></tr>
			</table></body></html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(srv.URL, srv.URL)
			got, err := c.FetchReferencePrice(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("FetchReferencePrice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("FetchReferencePrice() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDoRequestRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"price":"4.2"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 2*time.Second, ClientConfig{
		MaxRetries:     3,
		RetryDelayBase: time.Millisecond,
	})
	got, err := c.FetchSpotPrice(context.Background())
	if err != nil {
		t.Fatalf("FetchSpotPrice() after retries: %v", err)
	}
	if got != 4.2 {
		t.Errorf("FetchSpotPrice() = %v, want 4.2", got)
	}
	if calls != 3 {
		t.Errorf("expected 3 requests, got %d", calls)
	}
}
