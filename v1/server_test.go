// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package v1

import (
	"context"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/Kodylow/stratum/internal/stratumerr"
)

type fixedAllocator struct{ e1 HexBytes }

func (f fixedAllocator) AllocateExtraNonce1(ctx context.Context) (HexBytes, error) {
	return f.e1, nil
}

type stubAcceptor struct{ accept bool }

func (s stubAcceptor) AcceptSubmission(ctx context.Context, sub Submission) (bool, error) {
	return s.accept, nil
}

func newTestServerSession() *ServerSession {
	return NewServerSession(fixedAllocator{e1: HexBytes{0xde, 0xad, 0xbe, 0xef}}, ConstExtraNonce2Size(4), stubAcceptor{accept: true})
}

// server Authorize happy path.
func TestServerAuthorizeHappyPath(t *testing.T) {
	s := newTestServerSession()
	resp, err := s.HandleMessage(context.Background(), []byte(`{"id":1,"method":"mining.authorize","params":["alice","pw"]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Result != true {
		t.Fatalf("result = %v, want true", resp.Result)
	}
	if !s.IsAuthorized("alice") {
		t.Fatalf("alice not authorized")
	}
}

func subscribeAndAuthorize(t *testing.T, s *ServerSession, user string) {
	t.Helper()
	if _, err := s.HandleMessage(context.Background(), []byte(`{"id":1,"method":"mining.subscribe","params":["miner/1.0"]}`)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	raw := []byte(`{"id":2,"method":"mining.authorize","params":["` + user + `","pw"]}`)
	if _, err := s.HandleMessage(context.Background(), raw); err != nil {
		t.Fatalf("authorize: %v", err)
	}
}

// server Submit rejected on extranonce2 size mismatch.
func TestServerSubmitRejectedOnSizeMismatch(t *testing.T) {
	s := newTestServerSession()
	subscribeAndAuthorize(t, s, "alice")

	raw := []byte(`{"id":3,"method":"mining.submit","params":["alice","job1","aabb","5f000000","00000001"]}`)
	_, err := s.HandleMessage(context.Background(), raw)
	if !stratumerr.IsError(err, stratumerr.ErrInvalidSubmission) {
		t.Fatalf("got %v, want ErrInvalidSubmission. raw=%s", err, spew.Sdump(raw))
	}
	if !s.IsAuthorized("alice") {
		t.Fatalf("authorized set should be unchanged")
	}
}

// server Submit rejected when version_bits present without a negotiated
// mask.
func TestServerSubmitRejectedOnVersionBitsWithoutMask(t *testing.T) {
	s := newTestServerSession()
	subscribeAndAuthorize(t, s, "alice")

	raw := []byte(`{"id":3,"method":"mining.submit","params":["alice","job1","aabbccdd","5f000000","00000001","00000000"]}`)
	_, err := s.HandleMessage(context.Background(), raw)
	if !stratumerr.IsError(err, stratumerr.ErrInvalidSubmission) {
		t.Fatalf("got %v, want ErrInvalidSubmission", err)
	}
}

func TestServerSubmitAcceptedWithVersionBitsWithinMask(t *testing.T) {
	s := newTestServerSession()
	if _, err := s.HandleMessage(context.Background(), []byte(`{"id":1,"method":"mining.configure","params":[["version-rolling"],{"version-rolling.mask":"1fffe000"}]}`)); err != nil {
		t.Fatalf("configure: %v", err)
	}
	subscribeAndAuthorize(t, s, "alice")

	raw := []byte(`{"id":3,"method":"mining.submit","params":["alice","job1","aabbccdd","5f000000","00000001","00002000"]}`)
	resp, err := s.HandleMessage(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Result != true {
		t.Fatalf("result = %v, want true", resp.Result)
	}
}

func TestServerSubmitRejectedUnauthorized(t *testing.T) {
	s := newTestServerSession()
	if _, err := s.HandleMessage(context.Background(), []byte(`{"id":1,"method":"mining.subscribe","params":["miner/1.0"]}`)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	raw := []byte(`{"id":3,"method":"mining.submit","params":["bob","job1","aabbccdd","5f000000","00000001"]}`)
	_, err := s.HandleMessage(context.Background(), raw)
	if !stratumerr.IsError(err, stratumerr.ErrInvalidSubmission) {
		t.Fatalf("got %v, want ErrInvalidSubmission", err)
	}
}

func TestServerNeverReceivesResponse(t *testing.T) {
	s := newTestServerSession()
	_, err := s.HandleMessage(context.Background(), []byte(`{"id":1,"result":true,"error":null}`))
	if !stratumerr.IsError(err, stratumerr.ErrInvalidJSONRPCMessageKind) {
		t.Fatalf("got %v, want ErrInvalidJSONRPCMessageKind", err)
	}
}

func TestUpdateExtranonceIdempotent(t *testing.T) {
	s := newTestServerSession()
	e1 := HexBytes{0x01, 0x02, 0x03, 0x04}
	first := s.UpdateExtranonce(e1, 8)
	second := s.UpdateExtranonce(e1, 8)
	if s.ExtraNonce2Size() != 8 || s.ExtraNonce1().String() != e1.String() {
		t.Fatalf("session state changed unexpectedly")
	}
	if first.Method != MethodSetExtranonce || second.Method != MethodSetExtranonce {
		t.Fatalf("expected both notifications to be set_extranonce")
	}
}

func TestSubscribeAssignsExtranonceOnce(t *testing.T) {
	s := newTestServerSession()
	resp1, err := s.HandleMessage(context.Background(), []byte(`{"id":1,"method":"mining.subscribe","params":["miner/1.0"]}`))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	resp2, err := s.HandleMessage(context.Background(), []byte(`{"id":2,"method":"mining.subscribe","params":["miner/1.0"]}`))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	r1 := resp1.Result.([]any)
	r2 := resp2.Result.([]any)
	if r1[1] != r2[1] {
		t.Fatalf("extranonce1 changed across subscribe calls: %v vs %v", r1[1], r2[1])
	}
}
