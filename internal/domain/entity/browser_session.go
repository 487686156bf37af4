package entity

import "time"

// BrowserSession is a serialized cookie-jar + origin-localStorage
// snapshot used to authenticate browser-assisted fetches. Process-wide
// shared state: readers take the newest active row keyed by platform
// "all".
type BrowserSession struct {
	PlatformKey     string
	StorageStateRaw []byte // serialized cookie jar + localStorage snapshot (opaque JSON)
	IsActive        bool
	UpdatedAt       time.Time
	ExpiresAt       *time.Time
}

// Expired reports whether the session snapshot is past its expiry, if one is set.
func (b *BrowserSession) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && now.After(*b.ExpiresAt)
}
