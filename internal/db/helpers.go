package db

import "time"

// nilIfZeroTime lets COALESCE($n, NOW()) fill in timestamps the caller
// left unset.
func nilIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
