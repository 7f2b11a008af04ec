package masking

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// Strategy transforms a sensitive string value.
type Strategy func(string) string

// tokenLength is the number of hex characters kept from a client id digest.
const tokenLength = 16

// MaskAccountNumber keeps the last four characters and replaces the rest
// with X. Values of four characters or fewer become "****".
func MaskAccountNumber(s string) string {
	runes := []rune(s)
	if len(runes) <= 4 {
		return "****"
	}
	return strings.Repeat("X", len(runes)-4) + string(runes[len(runes)-4:])
}

// HashClientID maps a client id to a fixed length token. The same id always
// yields the same token, so masked records can still be correlated.
func HashClientID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:tokenLength]
}

// MaskClientName reduces a name to "F. Last", or to its first letter
// followed by asterisks when it has a single token.
func MaskClientName(s string) string {
	tokens := strings.Fields(s)
	switch len(tokens) {
	case 0:
		return ""
	case 1:
		first, size := utf8.DecodeRuneInString(tokens[0])
		rest := utf8.RuneCountInString(tokens[0][size:])
		return string(first) + strings.Repeat("*", rest)
	default:
		first, _ := utf8.DecodeRuneInString(tokens[0])
		return string(first) + ". " + tokens[len(tokens)-1]
	}
}

// MaskEmail keeps the first and last character of the local part and the
// whole domain. Local parts of two characters or fewer become "**". An empty
// value stays empty.
func MaskEmail(s string) string {
	if s == "" {
		return s
	}
	local, domain, hasDomain := strings.Cut(s, "@")
	runes := []rune(local)
	var masked string
	if len(runes) <= 2 {
		masked = "**"
	} else {
		masked = string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
	}
	if !hasDomain {
		return masked
	}
	return masked + "@" + domain
}
