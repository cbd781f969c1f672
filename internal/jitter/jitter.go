// Package jitter adds randomized variance to the idle-keepalive PING
// interval using a fast, lock-free PRNG with no need for crypto-grade
// randomness.
package jitter

import "github.com/valyala/fastrand"

// PingInterval returns base plus a uniformly distributed jitter in
// [0, spread), so that many idle connections on the same server don't
// all emit their keepalive PING in lockstep.
func PingInterval(base, spread int64) int64 {
	if spread <= 0 {
		return base
	}
	return base + int64(fastrand.Uint32n(uint32(spread)))
}
