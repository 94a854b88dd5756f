package service

import "time"

// Clock supplies the current time to the services.  Every expiry and
// departure comparison in the booking lifecycle goes through a Clock
// so tests can move time forward deterministically instead of
// sleeping through real TTLs.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock in UTC.  All persisted
// timestamps in this service are UTC.
func SystemClock() Clock { return systemClock{} }
