// ABOUTME: Unit tests for domain to company name normalization
// ABOUTME: Verifies TLD stripping and per-label capitalization
package sync

import "testing"

func TestNormalizeCompanyName(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"acme.io", "Acme"},
		{"bigcorp.com", "Bigcorp"},
		{"my-co.vc", "My-co Vc"},
		{"widgets.co", "Widgets"},
		{"mail.acme.io", "Mail Acme"},
		{"sub.team.bigcorp.com", "Sub Team Bigcorp"},
		{"ACME.IO", "Acme"},
		{"hyphen-name.dev", "Hyphen-name"},
		// Only one trailing segment is stripped.
		{"acme.com.org", "Acme Com"},
	}

	for _, tt := range tests {
		if got := NormalizeCompanyName(tt.domain); got != tt.want {
			t.Errorf("NormalizeCompanyName(%q) = %q, want %q", tt.domain, got, tt.want)
		}
	}
}
