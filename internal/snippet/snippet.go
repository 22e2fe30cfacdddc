// Package snippet specifies the contract for building a preview string from
// a message body, used by the conversation/message read API (§4.M). The
// gateway's core only consumes this as an injected interface -- true
// grapheme-cluster-safe truncation needs a Unicode text-segmentation
// library, which is explicitly out of scope for the core (see
// SPEC_FULL.md §1 and DESIGN.md for why no such dependency is wired).
package snippet

import "strings"

// Maker builds a bounded preview of a message body. Implementations must
// collapse internal whitespace to single spaces, trim the result, and
// return "" for an empty/absent body or a zero maxChars.
type Maker interface {
	Make(body string, maxChars int) string
}

// RuneMaker is the default Maker. It truncates on rune boundaries, which is
// UTF-8-safe but not grapheme-cluster-safe (a truncation can still split a
// multi-rune grapheme cluster such as an emoji with a skin-tone modifier or
// a combining accent). Swap in a uniseg-backed Maker where grapheme-cluster
// fidelity matters.
type RuneMaker struct{}

// Make implements Maker.
func (RuneMaker) Make(body string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return ""
	}
	normalized := strings.Join(strings.Fields(trimmed), " ")
	if normalized == "" {
		return ""
	}
	runes := []rune(normalized)
	if len(runes) <= maxChars {
		return normalized
	}
	return string(runes[:maxChars])
}
