// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stratumlimit implements the per-IP request limiter a stratum
// connection handler consults before acting on an inbound message,
// mirroring the pool's injected WithinLimit collaborator.
package stratumlimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// IPLimiter tracks a token-bucket rate.Limiter per remote address.
type IPLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

// NewIPLimiter returns an IPLimiter allowing r requests per second per IP,
// with burst capacity burst.
func NewIPLimiter(r float64, burst int) *IPLimiter {
	return &IPLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Limit(r),
		burst:    burst,
	}
}

// WithinLimit reports whether ip may perform another request of the given
// kind right now, consuming one token if so. kind is accepted for call-site
// parity with the collaborator interface; this limiter does not
// distinguish kinds.
func (l *IPLimiter) WithinLimit(ip string, kind int) bool {
	return l.limiterFor(ip).Allow()
}

func (l *IPLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.r, l.burst)
		l.limiters[ip] = lim
	}
	return lim
}
