// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stratumlimit

import "testing"

func TestIPLimiterAllowsUpToBurst(t *testing.T) {
	l := NewIPLimiter(1, 3)
	for i := 0; i < 3; i++ {
		if !l.WithinLimit("10.0.0.1", 0) {
			t.Fatalf("request %d unexpectedly denied", i)
		}
	}
	if l.WithinLimit("10.0.0.1", 0) {
		t.Fatalf("expected burst to be exhausted")
	}
}

func TestIPLimiterTracksIPsIndependently(t *testing.T) {
	l := NewIPLimiter(1, 1)
	if !l.WithinLimit("10.0.0.1", 0) {
		t.Fatalf("first request for 10.0.0.1 denied")
	}
	if !l.WithinLimit("10.0.0.2", 0) {
		t.Fatalf("first request for 10.0.0.2 should not be affected by 10.0.0.1's limiter")
	}
}
