package usecase

import (
	"strings"
	"unicode"
)

// SplitFullName splits a display name into first and last name. The first
// whitespace-separated token is the first name, everything else joins into
// the last name.
func SplitFullName(fullName string) (firstName, lastName string) {
	parts := strings.Fields(strings.TrimSpace(fullName))
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// NormalizePhone canonicalizes a raw phone number into E.164-ish form using
// the default country code (digits only, e.g. "39"). Spacing, dashes and
// parentheses are stripped first. A number already carrying any "+" prefix is
// trusted as-is.
func NormalizePhone(raw, countryCode string) string {
	phone := strings.TrimSpace(raw)

	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if unicode.IsSpace(r) || r == '-' || r == '(' || r == ')' {
			continue
		}
		b.WriteRune(r)
	}
	phone = b.String()
	if phone == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(phone, countryCode) && !strings.HasPrefix(phone, "+"+countryCode):
		phone = "+" + phone
	case !strings.HasPrefix(phone, "+") && !strings.HasPrefix(phone, countryCode):
		phone = "+" + countryCode + phone
	}
	return phone
}

// firstNonEmpty returns the first candidate that is non-empty after trimming.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
