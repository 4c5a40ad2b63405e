package accounts

import "time"

// IsWithinThresholdPeriod checks if t happened less than period before now
func IsWithinThresholdPeriod(t, now time.Time, period time.Duration) bool {
	return t.After(now.Add(-period))
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t, now time.Time, period time.Duration) bool {
	return !IsWithinThresholdPeriod(t, now, period)
}

// tokenExpired reports whether the pending token of account outlived ttl.
// A zero ttl never expires and a token without issue time is always valid.
func tokenExpired(account *Account, ttl time.Duration, now time.Time) bool {
	if ttl <= 0 || account.TokenIssuedAt == nil {
		return false
	}
	return IsOutsideThresholdPeriod(*account.TokenIssuedAt, now, ttl)
}
