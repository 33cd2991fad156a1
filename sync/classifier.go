// ABOUTME: Email classification heuristics for calendar attendees
// ABOUTME: Separates real external business contacts from personal and system noise
package sync

import "strings"

// personalEmailDomains are free/personal providers whose addresses never
// indicate a company affiliation. Exact domain match, case-insensitive.
var personalEmailDomains = []string{
	"gmail.com",
	"googlemail.com",
	"yahoo.com",
	"hotmail.com",
	"outlook.com",
	"live.com",
	"msn.com",
	"icloud.com",
	"me.com",
	"mac.com",
	"aol.com",
	"protonmail.com",
	"proton.me",
	"pm.me",
	"hey.com",
	"fastmail.com",
}

// systemAddressPatterns mark automated senders and calendar plumbing.
// Substring match against the full lowercased address.
var systemAddressPatterns = []string{
	"no-reply",
	"noreply",
	"donotreply",
	"do-not-reply",
	"notification",
	"mailer-daemon",
	"postmaster@",
	"calendar-notification",
	"resource.calendar.google.com",
	"group.calendar.google.com",
}

// IsBusinessEmail reports whether an attendee address looks like a real
// external business contact. This is a heuristic: false positives and
// negatives are expected and acceptable.
func IsBusinessEmail(address, ownerEmail string) bool {
	addr := strings.ToLower(strings.TrimSpace(address))
	if addr == "" {
		return false
	}
	if addr == strings.ToLower(strings.TrimSpace(ownerEmail)) {
		return false
	}

	for _, pattern := range systemAddressPatterns {
		if strings.Contains(addr, pattern) {
			return false
		}
	}

	domain := extractDomain(addr)
	if domain == "" {
		return false
	}
	for _, personal := range personalEmailDomains {
		if domain == personal {
			return false
		}
	}

	return true
}

// extractDomain extracts the domain from an email address. Addresses with
// an empty local part are not addresses at all and yield "".
func extractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" {
		return ""
	}
	return strings.ToLower(parts[1])
}
