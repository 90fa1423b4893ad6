package validation

import "regexp"

// Wallet addresses must be 0x followed by 40 hex characters.
var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidAddress(address string) bool {
	return addressRe.MatchString(address)
}

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidTokenAmount rejects zero and negative token counts.
func IsValidTokenAmount(amount int64) bool {
	return amount > 0
}
