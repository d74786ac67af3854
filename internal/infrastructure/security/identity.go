package security

import "strings"

// isHex reports whether c is a hexadecimal digit (either case).
func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// IsValidUUID reports whether s matches the UUID-v4 textual format
// xxxxxxxx-xxxx-4xxx-[89ab]xxx-xxxxxxxxxxxx, case-insensitive. Anything
// else, including the empty string, is rejected: a malformed stored value
// must be treated as absent, never returned to callers.
func IsValidUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i := 0; i < 36; i++ {
		switch i {
		case 8, 13, 18, 23:
			if s[i] != '-' {
				return false
			}
		case 14:
			if s[i] != '4' {
				return false
			}
		case 19:
			switch s[i] {
			case '8', '9', 'a', 'b', 'A', 'B':
			default:
				return false
			}
		default:
			if !isHex(s[i]) {
				return false
			}
		}
	}
	return true
}

// NormalizeUUID lowercases a valid UUID-v4 string. Returns the normalized
// value and whether the input was accepted.
func NormalizeUUID(s string) (string, bool) {
	if !IsValidUUID(s) {
		return "", false
	}
	return strings.ToLower(s), true
}
