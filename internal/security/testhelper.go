package security

import "time"

// Test secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "unit-test-access-secret-0123456789abcdef"
	testRefreshSecret = "unit-test-refresh-secret-fedcba9876543210"
)

// NewTestTokenProvider returns a TokenProvider with fixed secrets and
// short lifetimes. For unit tests only.
func NewTestTokenProvider() (*TokenProvider, error) {
	return NewTokenProvider(
		[]byte(testAccessSecret),
		[]byte(testRefreshSecret),
		"test-issuer",
		15*time.Minute,
		24*time.Hour,
	)
}
