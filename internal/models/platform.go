package models

import "strings"

type Platform string

const (
	PlatformLinkedIn  Platform = "LinkedIn"
	PlatformInstagram Platform = "Instagram"
	PlatformWordPress Platform = "WordPress"
	PlatformGmail     Platform = "Gmail"
	PlatformWhatsApp  Platform = "WhatsApp"
)

var Platforms = []Platform{
	PlatformLinkedIn,
	PlatformInstagram,
	PlatformWordPress,
	PlatformGmail,
	PlatformWhatsApp,
}

// BaseLabel strips a translated-variant suffix: "WhatsApp (Polaco)" -> "WhatsApp".
func BaseLabel(label string) string {
	base, _, _ := strings.Cut(label, " (")
	return strings.TrimSpace(base)
}

// ParsePlatform resolves an operator label, including translated variants,
// to one of the fixed platforms.
func ParsePlatform(label string) (Platform, bool) {
	base := BaseLabel(label)
	for _, p := range Platforms {
		if strings.EqualFold(string(p), base) {
			return p, true
		}
	}
	return "", false
}

// UsesRecipients reports whether posts for the platform carry a recipient snapshot.
func (p Platform) UsesRecipients() bool {
	return p == PlatformGmail || p == PlatformWhatsApp
}
