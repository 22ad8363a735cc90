// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stratumnonce

import (
	"context"
	"path/filepath"
	"testing"

	bolt "github.com/coreos/bbolt"
)

func TestMemoryAllocatorProducesDistinctValues(t *testing.T) {
	a := &MemoryAllocator{}
	first, err := a.AllocateExtraNonce1(context.Background())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	second, err := a.AllocateExtraNonce1(context.Background())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if first.String() == second.String() {
		t.Fatalf("expected distinct extranonce1 values, got %s twice", first.String())
	}
}

func TestBoltAllocatorPersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nonce.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a := NewBoltAllocator(db)
	first, err := a.AllocateExtraNonce1(context.Background())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()
	a2 := NewBoltAllocator(db2)
	second, err := a2.AllocateExtraNonce1(context.Background())
	if err != nil {
		t.Fatalf("allocate after reopen: %v", err)
	}
	if first.String() == second.String() {
		t.Fatalf("expected sequence to continue across reopen, got %s twice", first.String())
	}
}
