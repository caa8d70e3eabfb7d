package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure-proxy.local:3128", "internal.example")

	tests := []struct {
		target string
		want   string
	}{
		{target: "http://www.qp.alberta.ca/documents", want: "http://proxy.local:3128"},
		{target: "https://www.qp.alberta.ca/documents", want: "http://secure-proxy.local:3128"},
		{target: "http://internal.example/x", want: ""},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(http.MethodGet, tt.target, nil)
		if err != nil {
			t.Fatal(err)
		}
		got, err := proxy(req)
		if err != nil {
			t.Fatalf("proxy(%s) failed: %v", tt.target, err)
		}
		if tt.want == "" {
			if got != nil {
				t.Errorf("expected direct connection for %s, got %v", tt.target, got)
			}
			continue
		}
		if got == nil || got.String() != tt.want {
			t.Errorf("proxy(%s) = %v, want %s", tt.target, got, tt.want)
		}
	}
}
