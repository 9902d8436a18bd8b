package domain

import "time"

const (
	DefaultMaxLoginAttempts = 5
	DefaultLockDuration     = 2 * time.Hour
)

// LockoutPolicy decides how failed logins advance an account's LoginState.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// DefaultLockoutPolicy locks an account for two hours after five failures.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: DefaultMaxLoginAttempts, LockDuration: DefaultLockDuration}
}

// AfterFailure returns the state that follows a failed password check at now.
//
// A lock that has already expired is cleared and the counter restarts at 1,
// not 0, and no new lock is placed. Otherwise the counter is incremented and
// reaching MaxAttempts sets the lock deadline to now+LockDuration.
func (p LockoutPolicy) AfterFailure(s LoginState, now time.Time) LoginState {
	if s.LockUntil != nil && !s.LockUntil.After(now) {
		return LoginState{FailedAttempts: 1}
	}

	next := LoginState{FailedAttempts: s.FailedAttempts + 1, LockUntil: s.LockUntil}
	if next.FailedAttempts >= p.MaxAttempts {
		until := now.Add(p.LockDuration)
		next.LockUntil = &until
	}
	return next
}
