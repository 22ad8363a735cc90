// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Kodylow/stratum/v1"
)

// demoWorkSource stands in for real mining-work generation: coinbase
// construction, merkle root assembly, and block header hashing belong to a
// chain backend, not to the protocol core. It produces syntactically valid
// but otherwise meaningless job payloads so the example binary can exercise
// mining.notify end to end.
type demoWorkSource struct {
	jobCounter uint64
}

// nextJob fabricates a job payload and a fresh job id.
func (d *demoWorkSource) nextJob() (string, v1.Job) {
	n := atomic.AddUint64(&d.jobCounter, 1)
	jobID := fmt.Sprintf("%08x", n)

	prevHash := make([]byte, 32)
	rand.Read(prevHash)
	coinb1 := make([]byte, 8)
	rand.Read(coinb1)
	coinb2 := make([]byte, 8)
	rand.Read(coinb2)

	return jobID, v1.Job{
		PrevHash:     v1.HexBytes(prevHash),
		CoinBase1:    v1.HexBytes(coinb1),
		CoinBase2:    v1.HexBytes(coinb2),
		MerkleBranch: nil,
		Version:      v1.HexU32Be(0x20000000),
		Bits:         v1.HexU32Be(0x1d00ffff),
		Time:         v1.HexU32Be(uint32(time.Now().Unix())),
		CleanJobs:    true,
	}
}

// demoAcceptor accepts every syntactically valid submission. A real pool
// wires SubmissionAcceptor to block header reconstruction and difficulty
// target comparison.
type demoAcceptor struct{}

// AcceptSubmission implements v1.SubmissionAcceptor.
func (demoAcceptor) AcceptSubmission(ctx context.Context, sub v1.Submission) (bool, error) {
	return true, nil
}
