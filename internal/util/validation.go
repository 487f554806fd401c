package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	uuidRegex        = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	pairingCodeRegex = regexp.MustCompile(`^\d{6}$`)
	timeRegex        = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)
	htmlTagRegex     = regexp.MustCompile(`<[^>]*>`)
)

func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	return uuidRegex.MatchString(s)
}

func IsValidPairingCode(s string) bool {
	return pairingCodeRegex.MatchString(s)
}

// IsValidTime accepts HH:MM and HH:MM:SS in 24h format.
func IsValidTime(s string) bool {
	return timeRegex.MatchString(s)
}

// NormalizeTime pads HH:MM to HH:MM:SS.
func NormalizeTime(s string) string {
	if len(s) == 5 {
		return s + ":00"
	}
	return s
}

func StripHTML(s string) string {
	return strings.TrimSpace(htmlTagRegex.ReplaceAllString(s, ""))
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(s string) bool {
	return len(s) <= 254 && emailRegex.MatchString(s)
}
