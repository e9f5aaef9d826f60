package flow

import (
	"fmt"
	"time"
)

// Expiry is a relative lifetime chosen by the sender.
type Expiry string

const (
	Expiry1h  Expiry = "1h"
	Expiry6h  Expiry = "6h"
	Expiry12h Expiry = "12h"
	Expiry24h Expiry = "24h"
	Expiry3d  Expiry = "3d"
	Expiry7d  Expiry = "7d"

	DefaultExpiry = Expiry24h
)

var expiryDurations = map[Expiry]time.Duration{
	Expiry1h:  time.Hour,
	Expiry6h:  6 * time.Hour,
	Expiry12h: 12 * time.Hour,
	Expiry24h: 24 * time.Hour,
	Expiry3d:  3 * 24 * time.Hour,
	Expiry7d:  7 * 24 * time.Hour,
}

// Expiries lists the accepted values, shortest first.
func Expiries() []Expiry {
	return []Expiry{Expiry1h, Expiry6h, Expiry12h, Expiry24h, Expiry3d, Expiry7d}
}

// Duration returns the lifetime. Unknown values mean 24 hours.
func (e Expiry) Duration() time.Duration {
	if d, ok := expiryDurations[e]; ok {
		return d
	}
	return expiryDurations[DefaultExpiry]
}

// ParseExpiry validates user input. An empty string selects the default.
func ParseExpiry(s string) (Expiry, error) {
	if s == "" {
		return DefaultExpiry, nil
	}
	e := Expiry(s)
	if _, ok := expiryDurations[e]; !ok {
		return "", fmt.Errorf("unknown expiry %q (want one of %v)", s, Expiries())
	}
	return e, nil
}
