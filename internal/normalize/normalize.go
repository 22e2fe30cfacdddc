// Package normalize canonicalizes participant addresses so that equivalent
// inputs collapse onto the same conversation key. Only two channels shapes
// are recognized: email addresses and phone numbers.
package normalize

import "strings"

// Email lowercases the whole address; if '@' is present, the local part is
// truncated at its first '+'. Addresses without '@' are lowercased
// unchanged. Normalization is idempotent: Email(Email(x)) == Email(x).
func Email(addr string) string {
	lower := strings.ToLower(addr)
	at := strings.IndexByte(lower, '@')
	if at < 0 {
		return lower
	}
	local, domain := lower[:at], lower[at:]
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}
	return local + domain
}

// Phone keeps a leading '+' if and only if the first input rune is '+',
// followed by every ASCII digit in order; all other characters are
// discarded. Normalization is idempotent.
func Phone(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	if raw[0] == '+' {
		b.WriteByte('+')
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Channel identifies which normalizer applies: sms/mms use Phone, email
// uses Email.
func Channel(channel, addr string) string {
	switch channel {
	case "email":
		return Email(addr)
	default:
		return Phone(addr)
	}
}
