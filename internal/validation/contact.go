package validation

import (
	"regexp"
	"sort"
	"strings"
)

const spainCountryCode = "+34"

var (
	phoneFormatting = regexp.MustCompile(`[\s()\-]`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern    = regexp.MustCompile(`^(\+[1-9]\d{7,14}|[6789]\d{8})$`)
	digitsOnly      = regexp.MustCompile(`^\d+$`)
)

func cleanPhone(raw string) string {
	return phoneFormatting.ReplaceAllString(strings.TrimSpace(raw), "")
}

// NormalizePhone strips formatting and converts the number to an E.164-like
// form. Spanish 9-digit mobile numbers get the +34 prefix and a 00 prefix
// becomes +. Anything else is returned cleaned but otherwise untouched.
func NormalizePhone(raw string) string {
	cleaned := cleanPhone(raw)
	switch {
	case cleaned == "":
		return ""
	case strings.HasPrefix(cleaned, "+"):
		return cleaned
	case strings.HasPrefix(cleaned, "00"):
		return "+" + cleaned[2:]
	case len(cleaned) == 9 && digitsOnly.MatchString(cleaned) && (cleaned[0] == '6' || cleaned[0] == '7'):
		return spainCountryCode + cleaned
	}
	return cleaned
}

// IsSpanishLandline reports whether the number is a 9-digit Spanish fixed
// line (starting with 8 or 9), with or without the country prefix.
func IsSpanishLandline(raw string) bool {
	national := cleanPhone(raw)
	switch {
	case strings.HasPrefix(national, spainCountryCode):
		national = national[len(spainCountryCode):]
	case strings.HasPrefix(national, "0034"):
		national = national[4:]
	}
	if len(national) != 9 || !digitsOnly.MatchString(national) {
		return false
	}
	return national[0] == '8' || national[0] == '9'
}

// SendablePhones normalizes the input and keeps only numbers that can
// receive messages: blanks and landlines are dropped. The result is sorted
// and unique.
func SendablePhones(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p) == "" || IsSpanishLandline(p) {
			continue
		}
		if n := NormalizePhone(p); n != "" {
			seen[n] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// NormalizeEmails trims, lower-cases and deduplicates. The result is sorted.
func NormalizeEmails(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	for _, e := range raw {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			seen[e] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

func ValidPhone(phone string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(strings.TrimSpace(phone))
	return phonePattern.MatchString(cleaned)
}

// Signature is the duplicate-detection key of a contact: two contacts with
// the same normalized phone set and email set are the same contact.
func Signature(phones, emails []string) string {
	return strings.Join(phones, ",") + "|" + strings.Join(emails, ",")
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
