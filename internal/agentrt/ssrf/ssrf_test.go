package ssrf

import (
	"net"
	"testing"
)

func TestValidateURLRejectsLocalhost(t *testing.T) {
	if _, err := ValidateURL("http://localhost:8080/x"); err == nil {
		t.Fatal("expected localhost to be blocked")
	}
}

func TestValidateURLRejectsMetadataIP(t *testing.T) {
	if _, err := ValidateURL("http://169.254.169.254/latest/meta-data/"); err == nil {
		t.Fatal("expected cloud metadata address to be blocked")
	}
}

func TestValidateURLRejectsNonHTTPScheme(t *testing.T) {
	if _, err := ValidateURL("file:///etc/passwd"); err == nil {
		t.Fatal("expected non-http(s) scheme to be blocked")
	}
}

func TestValidateURLAllowsPublicHTTPS(t *testing.T) {
	if _, err := ValidateURL("https://example.com/path"); err != nil {
		t.Fatalf("expected public host to pass, got %v", err)
	}
}

func TestIsPrivateOrLocalIPv4Ranges(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
	}
	for _, c := range cases {
		got := IsPrivateOrLocal(net.ParseIP(c.ip))
		if got != c.want {
			t.Errorf("IsPrivateOrLocal(%s) = %v, want %v", c.ip, got, c.want)
		}
	}
}

func TestIsPrivateOrLocalIPv6Ranges(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"::1", true},
		{"fe80::1", true},
		{"fc00::1", true},
		{"2001:4860:4860::8888", false},
	}
	for _, c := range cases {
		got := IsPrivateOrLocal(net.ParseIP(c.ip))
		if got != c.want {
			t.Errorf("IsPrivateOrLocal(%s) = %v, want %v", c.ip, got, c.want)
		}
	}
}
