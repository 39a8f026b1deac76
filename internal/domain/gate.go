package domain

import "regexp"

// Gate IDs are short human-facing identifiers chosen by creators, so the
// accepted alphabet is deliberately narrow: 1 to 32 characters of ASCII
// letters, digits, underscore and dash.
var gateIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,32}$`)

// ValidGateID reports whether s is a well formed gate ID
func ValidGateID(s string) bool {
	return gateIDPattern.MatchString(s)
}

// CheckGateID validates the gate ID format
func CheckGateID(s string) error {
	if !ValidGateID(s) {
		return ErrInvalidGateIDFormat(s)
	}
	return nil
}
