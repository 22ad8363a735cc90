// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stratumnonce provides process-wide extranonce1 allocators for
// the v1 server session. A fresh extranonce1 must be unique across every
// concurrently active session; both allocators here are safe for
// concurrent use, satisfying v1.ExtraNonce1Allocator.
package stratumnonce

import (
	"context"
	"encoding/binary"
	"sync/atomic"

	bolt "github.com/coreos/bbolt"

	"github.com/Kodylow/stratum/internal/stratumerr"
	"github.com/Kodylow/stratum/v1"
)

var extraNonceBucketName = []byte("extranoncesequence")

// MemoryAllocator hands out sequential 4-byte extranonce1 values from an
// in-process atomic counter. Counts reset on restart; use BoltAllocator
// where restart-durable uniqueness is required.
type MemoryAllocator struct {
	counter uint32
}

// AllocateExtraNonce1 implements v1.ExtraNonce1Allocator.
func (a *MemoryAllocator) AllocateExtraNonce1(ctx context.Context) (v1.HexBytes, error) {
	n := atomic.AddUint32(&a.counter, 1)
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, n)
	return v1.HexBytes(b), nil
}

// BoltAllocator draws extranonce1 values from a bbolt sequence so that
// uniqueness survives a process restart, mirroring the pool database's use
// of bbolt for durable, concurrency-safe counters.
type BoltAllocator struct {
	db *bolt.DB
}

// NewBoltAllocator returns a BoltAllocator backed by db. The caller owns
// db's lifecycle; db must already have extraNonceBucketName created, or
// the first call to AllocateExtraNonce1 creates it.
func NewBoltAllocator(db *bolt.DB) *BoltAllocator {
	return &BoltAllocator{db: db}
}

// AllocateExtraNonce1 implements v1.ExtraNonce1Allocator. It draws the
// next value from a bbolt bucket sequence, which bbolt guarantees is
// monotonically increasing and safe for concurrent callers.
func (a *BoltAllocator) AllocateExtraNonce1(ctx context.Context) (v1.HexBytes, error) {
	var seq uint64
	err := a.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(extraNonceBucketName)
		if err != nil {
			return err
		}
		seq, err = bkt.NextSequence()
		return err
	})
	if err != nil {
		return nil, stratumerr.MakeError(stratumerr.ErrOther, "bolt extranonce1 allocation failed", err)
	}
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(seq))
	return v1.HexBytes(b), nil
}
