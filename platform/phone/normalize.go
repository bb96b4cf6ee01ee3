// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// defaultCountryCode is prepended to bare 10-digit national numbers.
const defaultCountryCode = "52"

const defaultRegion = "MX"

var (
	nonDigits  = regexp.MustCompile(`\D`)
	validShape = regexp.MustCompile(`^\d{10,15}$`)
)

// Normalize strips every non-digit and prefixes 10-digit national numbers with the
// default country code. The result is E.164 without the leading '+', which is the
// form the WhatsApp Cloud API uses for wa_id. Normalize is idempotent.
func Normalize(input string) string {
	digits := nonDigits.ReplaceAllString(input, "")
	if len(digits) == 10 {
		digits = defaultCountryCode + digits
	}
	return digits
}

// IsValid reports whether the input has 10 to 15 digits once non-digits are removed.
func IsValid(input string) bool {
	return validShape.MatchString(nonDigits.ReplaceAllString(input, ""))
}

// Region returns the ISO 3166 region of the number ("MX", "US", ...) or "" when
// it cannot be determined.
func Region(input string) string {
	normalized := Normalize(input)
	if normalized == "" {
		return ""
	}

	number, err := phonenumbers.Parse("+"+normalized, defaultRegion)
	if err != nil {
		return ""
	}

	return phonenumbers.GetRegionCodeForNumber(number)
}

// NormalizeE164 formats a phone number to E.164 with the '+' prefix. If parsing
// fails, it returns the normalized digits with a '+' prefix.
func NormalizeE164(input string) string {
	normalized := Normalize(strings.TrimSpace(input))
	if normalized == "" {
		return ""
	}

	number, err := phonenumbers.Parse("+"+normalized, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return "+" + normalized
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
