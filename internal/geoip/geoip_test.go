package geoip

import "testing"

func TestLookupCountryDisabled(t *testing.T) {
	g, err := NewLookup("")
	if err != nil {
		t.Fatalf("NewLookup: %v", err)
	}
	defer g.Close()

	if g.IsEnabled() {
		t.Error("IsEnabled = true without database")
	}

	tests := []struct {
		ip   string
		want string
	}{
		{"127.0.0.1", "LOCAL"},
		{"192.168.1.20", "LOCAL"},
		{"10.0.0.5", "LOCAL"},
		{"fe80::1", "LOCAL"},
		{"203.0.113.7", ""}, // public, no database loaded
		{"not-an-ip", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := g.LookupCountry(tt.ip); got != tt.want {
			t.Errorf("LookupCountry(%q) = %q, want %q", tt.ip, got, tt.want)
		}
	}
}

func TestNewLookupBadPath(t *testing.T) {
	if _, err := NewLookup("/nonexistent/geoip.mmdb"); err == nil {
		t.Error("expected error for missing database file")
	}
}
