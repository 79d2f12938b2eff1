package domain

import "time"

const (
	// OneTimeCodeDigits is the length of a delivered code.
	OneTimeCodeDigits = 5
	// DefaultOneTimeCodeTTL is how long a code stays redeemable.
	DefaultOneTimeCodeTTL = 10 * time.Minute
)

// OneTimeCode is a pending or spent login code. The raw code is never
// stored; CodeHash is a fingerprint of the destination and the code.
type OneTimeCode struct {
	ID        string
	Email     string
	CodeHash  string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// Redeemable reports whether the code can still be consumed at now.
func (c OneTimeCode) Redeemable(now time.Time) bool {
	return !c.Used && now.Before(c.ExpiresAt)
}
