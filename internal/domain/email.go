package domain

import (
	"regexp"
	"strings"
)

// emailPattern accepts ASCII local@domain.tld addresses with no whitespace.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// ValidEmail reports whether the address is syntactically deliverable.
func ValidEmail(addr string) bool {
	if addr == "" || strings.ContainsAny(addr, " \t\r\n") {
		return false
	}
	for i := 0; i < len(addr); i++ {
		if addr[i] > 127 {
			return false
		}
	}
	return emailPattern.MatchString(addr)
}

// MaskEmail redacts an address for logging: the first two characters of the
// local part are kept and the remainder replaced; local parts of two or
// fewer characters are fully starred. The domain stays intact.
func MaskEmail(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return "***"
	}
	local, rest := addr[:at], addr[at:]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + rest
	}
	return local[:2] + "***" + rest
}
