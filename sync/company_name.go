// ABOUTME: Domain to presentable company name normalization
// ABOUTME: Strips one well-known TLD and capitalizes remaining labels
package sync

import "strings"

// trailingTLDs is the fixed set of well-known top-level segments stripped
// from the end of a domain before labeling. Only one is ever removed.
var trailingTLDs = []string{".com", ".org", ".net", ".io", ".co", ".dev", ".app"}

// NormalizeCompanyName converts an email domain into a cosmetic company
// name. Used only at company creation; an existing company's name is never
// overwritten on re-sync.
func NormalizeCompanyName(domain string) string {
	name := strings.ToLower(strings.TrimSpace(domain))

	for _, tld := range trailingTLDs {
		if strings.HasSuffix(name, tld) && len(name) > len(tld) {
			name = strings.TrimSuffix(name, tld)
			break
		}
	}

	labels := strings.Split(name, ".")
	for i, label := range labels {
		if len(label) > 0 {
			labels[i] = strings.ToUpper(label[:1]) + label[1:]
		}
	}

	return strings.Join(labels, " ")
}
