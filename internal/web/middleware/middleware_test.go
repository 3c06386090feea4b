package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// remoteAddrSeen runs a request through TrustedRealIP and reports the
// RemoteAddr the inner handler observed.
func remoteAddrSeen(t *testing.T, proxies []string, remoteAddr string, headers map[string]string) string {
	t.Helper()
	var seen string
	handler := TrustedRealIP(proxies)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return seen
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		proxies    []string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "untrusted peer cannot spoof",
			proxies:    []string{"10.0.0.0/8"},
			remoteAddr: "203.0.113.5:1234",
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			want:       "203.0.113.5:1234",
		},
		{
			name:       "trusted proxy real ip honored",
			proxies:    []string{"127.0.0.0/8"},
			remoteAddr: "127.0.0.1:9000",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "forwarded-for takes first hop",
			proxies:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.1.1:443",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2"},
			want:       "203.0.113.9",
		},
		{
			name:       "bare address entry",
			proxies:    []string{"10.1.2.3"},
			remoteAddr: "10.1.2.3:80",
			headers:    map[string]string{"X-Real-IP": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "garbage header ignored",
			proxies:    []string{"127.0.0.0/8"},
			remoteAddr: "127.0.0.1:9000",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			want:       "127.0.0.1:9000",
		},
		{
			name:       "no proxies configured",
			proxies:    nil,
			remoteAddr: "127.0.0.1:9000",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "127.0.0.1:9000",
		},
		{
			name:       "invalid entry skipped",
			proxies:    []string{"not-a-cidr", "127.0.0.0/8"},
			remoteAddr: "127.0.0.1:9000",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := remoteAddrSeen(t, tt.proxies, tt.remoteAddr, tt.headers); got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		required   bool
		keys       []string
		headerKey  string
		wantStatus int
	}{
		{"disabled passes through", false, nil, "", http.StatusOK},
		{"missing key", true, []string{"k1"}, "", http.StatusUnauthorized},
		{"wrong key", true, []string{"k1"}, "nope", http.StatusForbidden},
		{"valid key", true, []string{"k1", "k2"}, "k2", http.StatusOK},
		{"required with no keys rejects all", true, nil, "anything", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := APIKeyAuth(tt.required, tt.keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/entities", nil)
			if tt.headerKey != "" {
				req.Header.Set("X-API-Key", tt.headerKey)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
