package service

import (
	"math"
	"strings"
	"time"
)

// MaskEmail hides the middle of the local part: alice@x.com -> a***e@x.com.
// Addresses without '@' or with a local part of two characters or fewer are returned as is.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	r := []rune(local)
	if len(r) <= 2 {
		return email
	}
	return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1]) + "@" + domain
}

// CountryFlag converts a two-letter country code into its regional indicator emoji.
func CountryFlag(code string) string {
	if len(code) != 2 {
		return ""
	}
	code = strings.ToUpper(code)
	var b strings.Builder
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return ""
		}
		b.WriteRune(c - 'A' + 0x1F1E6)
	}
	return b.String()
}

// DaysSince returns whole days between t and now, regardless of direction.
func DaysSince(now, t time.Time) int {
	d := now.Sub(t)
	if d < 0 {
		d = -d
	}
	return int(math.Floor(d.Hours() / 24))
}

// parseTimestamp parses an RFC 3339 timestamp; empty or malformed input yields nil.
func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
