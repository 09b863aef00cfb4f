package instrumentation

import (
	"net/mail"
	"sort"
	"strings"
)

// ExtractUserDomain extracts the domain part from an email address.
// This reduces cardinality by using the domain instead of the full email.
//
// Example:
//
//	ExtractUserDomain("jane@example.com")        // "example.com"
//	ExtractUserDomain("Jane <jane@Example.com>") // "example.com"
//	ExtractUserDomain("invalid")                 // "unknown"
//	ExtractUserDomain("")                        // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}
	if addr, err := mail.ParseAddress(email); err == nil {
		email = addr.Address
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}

// RecipientDomains returns the sorted, de-duplicated domains of a list of
// recipient fields. Each field may itself be a comma separated address list.
func RecipientDomains(fields []string) []string {
	seen := make(map[string]struct{})
	for _, field := range fields {
		addrs, err := mail.ParseAddressList(field)
		if err != nil {
			for _, raw := range strings.Split(field, ",") {
				if raw = strings.TrimSpace(raw); raw != "" {
					seen[ExtractUserDomain(raw)] = struct{}{}
				}
			}
			continue
		}
		for _, a := range addrs {
			seen[ExtractUserDomain(a.Address)] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
