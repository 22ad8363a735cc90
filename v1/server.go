// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package v1

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kodylow/stratum/internal/stratumerr"
)

// Job is the job payload an external work source supplies for a
// mining.notify announcement. The fields mirror NotifyNotification minus
// the job id, which the server assigns.
type Job struct {
	PrevHash     HexBytes
	CoinBase1    HexBytes
	CoinBase2    HexBytes
	MerkleBranch []HexBytes
	Version      HexU32Be
	Bits         HexU32Be
	Time         HexU32Be
	CleanJobs    bool
}

// Submission is the accepted-share payload handed to a SubmissionAcceptor
// once a Submit request has passed all validation clauses.
type Submission struct {
	UserName    string
	JobID       string
	ExtraNonce2 HexBytes
	NTime       HexU32Be
	Nonce       HexU32Be
	VersionBits *HexU32Be
}

// ExtraNonce1Allocator draws a fresh, process-unique extranonce1 value for
// a new session. Implementations must be safe for concurrent use; the core
// never serializes calls across sessions.
type ExtraNonce1Allocator interface {
	AllocateExtraNonce1(ctx context.Context) (HexBytes, error)
}

// ExtraNonce2SizePolicy chooses the extranonce2 length advertised to a
// newly subscribing client.
type ExtraNonce2SizePolicy interface {
	ExtraNonce2Size() int
}

// SubmissionAcceptor is the external work sink a validated Submit is
// delivered to. It returns whether the share is accepted.
type SubmissionAcceptor interface {
	AcceptSubmission(ctx context.Context, sub Submission) (bool, error)
}

// ConstExtraNonce2Size is an ExtraNonce2SizePolicy that always returns a
// fixed size.
type ConstExtraNonce2Size int

// ExtraNonce2Size implements ExtraNonce2SizePolicy.
func (c ConstExtraNonce2Size) ExtraNonce2Size() int { return int(c) }

// ServerSession is the per-connection server-side V1 session state
// machine for a mining session. All fields are guarded by mu; callers must
// not share a ServerSession across connections.
type ServerSession struct {
	mu sync.RWMutex

	authorized map[string]struct{}

	extraNonce1     HexBytes
	extraNonce2Size int
	versionMask     *HexU32Be
	versionMinBit   *HexU32Be
	extranonceSub   bool

	allocator ExtraNonce1Allocator
	sizePolicy ExtraNonce2SizePolicy
	acceptor   SubmissionAcceptor

	lastJobID string
}

// NewServerSession constructs a ServerSession with the given collaborator
// set. acceptor may be nil if Submit handling is not wired up yet, in
// which case HandleMessage returns an error for Submit requests.
func NewServerSession(allocator ExtraNonce1Allocator, sizePolicy ExtraNonce2SizePolicy, acceptor SubmissionAcceptor) *ServerSession {
	return &ServerSession{
		authorized: make(map[string]struct{}),
		allocator:  allocator,
		sizePolicy: sizePolicy,
		acceptor:   acceptor,
	}
}

// IsAuthorized reports whether name is in the session's authorized set.
func (s *ServerSession) IsAuthorized(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.authorized[name]
	return ok
}

// ExtraNonce1 returns the session's assigned extranonce1, if any.
func (s *ServerSession) ExtraNonce1() HexBytes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extraNonce1
}

// ExtraNonce2Size returns the session's negotiated extranonce2 length.
func (s *ServerSession) ExtraNonce2Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extraNonce2Size
}

// HandleMessage processes one inbound V1 message on the server side. It
// returns the Response to write back, if any, and an error for validation
// or protocol-kind failures. A nil Response with a nil error indicates the
// message was accepted but produces no reply (e.g. ExtranonceSubscribe).
func (s *ServerSession) HandleMessage(ctx context.Context, raw []byte) (*Response, error) {
	msg, kind, err := ParseMessage(raw)
	if err != nil {
		return nil, err
	}
	if IsResponse(kind) {
		return nil, stratumerr.MakeError(stratumerr.ErrInvalidJSONRPCMessageKind,
			"server received a response", nil)
	}

	req := msg.(*Request)
	c2s, err := ParseClient2Server(req)
	if err != nil {
		return nil, err
	}

	switch m := c2s.(type) {
	case *AuthorizeRequest:
		return s.handleAuthorize(m)
	case *ConfigureRequest:
		return s.handleConfigure(m)
	case *ExtranonceSubscribeRequest:
		return s.handleExtranonceSubscribe(m)
	case *SubmitRequest:
		return s.handleSubmit(ctx, m)
	case *SubscribeRequest:
		return s.handleSubscribe(ctx, m)
	default:
		return nil, stratumerr.MakeError(stratumerr.ErrOther,
			fmt.Sprintf("unhandled client2server variant %T", m), nil)
	}
}

func (s *ServerSession) handleAuthorize(m *AuthorizeRequest) (*Response, error) {
	accepted := m.UserName != ""
	if accepted {
		s.mu.Lock()
		s.authorized[m.UserName] = struct{}{}
		s.mu.Unlock()
	}
	return &Response{ID: m.ID, Result: accepted}, nil
}

func (s *ServerSession) handleConfigure(m *ConfigureRequest) (*Response, error) {
	s.mu.Lock()
	s.versionMask = m.VersionRollingMask
	s.versionMinBit = m.VersionRollingMinBitCount
	mask := s.versionMask
	minBit := s.versionMinBit
	s.mu.Unlock()

	result := map[string]any{}
	if mask != nil {
		result["version-rolling"] = true
		result["version-rolling.mask"] = mask.String()
	} else {
		result["version-rolling"] = false
	}
	if minBit != nil {
		result["version-rolling.min-bit-count"] = minBit.String()
	}
	return &Response{ID: m.ID, Result: result}, nil
}

func (s *ServerSession) handleExtranonceSubscribe(m *ExtranonceSubscribeRequest) (*Response, error) {
	s.mu.Lock()
	s.extranonceSub = true
	s.mu.Unlock()
	return nil, nil
}

func (s *ServerSession) handleSubmit(ctx context.Context, m *SubmitRequest) (*Response, error) {
	s.mu.RLock()
	_, authorized := s.authorized[m.UserName]
	extraNonce2Size := s.extraNonce2Size
	versionMask := s.versionMask
	s.mu.RUnlock()

	if !authorized {
		return nil, stratumerr.MakeError(stratumerr.ErrInvalidSubmission,
			fmt.Sprintf("user %q is not authorized", m.UserName), nil)
	}
	if len(m.ExtraNonce2) != extraNonce2Size {
		return nil, stratumerr.MakeError(stratumerr.ErrInvalidSubmission,
			fmt.Sprintf("extranonce2 length %d, want %d", len(m.ExtraNonce2), extraNonce2Size), nil)
	}
	if versionMask != nil {
		if m.VersionBits == nil {
			return nil, stratumerr.MakeError(stratumerr.ErrInvalidSubmission,
				"version_bits required when version-rolling mask is set", nil)
		}
		if !versionMask.CheckMask(*m.VersionBits) {
			return nil, stratumerr.MakeError(stratumerr.ErrInvalidSubmission,
				"version_bits sets bits outside the negotiated mask", nil)
		}
	} else if m.VersionBits != nil {
		return nil, stratumerr.MakeError(stratumerr.ErrInvalidSubmission,
			"version_bits present without a negotiated mask", nil)
	}

	if s.acceptor == nil {
		return nil, stratumerr.MakeError(stratumerr.ErrOther, "no submission acceptor configured", nil)
	}
	accepted, err := s.acceptor.AcceptSubmission(ctx, Submission{
		UserName:    m.UserName,
		JobID:       m.JobID,
		ExtraNonce2: m.ExtraNonce2,
		NTime:       m.NTime,
		Nonce:       m.Nonce,
		VersionBits: m.VersionBits,
	})
	if err != nil {
		return nil, err
	}
	return &Response{ID: m.ID, Result: accepted}, nil
}

func (s *ServerSession) handleSubscribe(ctx context.Context, m *SubscribeRequest) (*Response, error) {
	s.mu.Lock()
	if s.extraNonce1 == nil {
		if s.allocator == nil {
			s.mu.Unlock()
			return nil, stratumerr.MakeError(stratumerr.ErrOther, "no extranonce1 allocator configured", nil)
		}
		e1, err := s.allocator.AllocateExtraNonce1(ctx)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.extraNonce1 = e1
	}
	if s.extraNonce2Size == 0 && s.sizePolicy != nil {
		s.extraNonce2Size = s.sizePolicy.ExtraNonce2Size()
	}
	e1, size := s.extraNonce1, s.extraNonce2Size
	s.mu.Unlock()

	return &Response{
		ID: m.ID,
		Result: []any{
			[][2]string{{"mining.set_difficulty", "1"}, {"mining.notify", "1"}},
			e1.String(),
			size,
		},
	}, nil
}

// UpdateExtranonce sets the session's extranonce1 and extranonce2_size and
// returns the mining.set_extranonce notification to send. Calling it twice
// with the same arguments leaves session state unchanged and still
// produces an (idempotent) notification for the caller to emit.
func (s *ServerSession) UpdateExtranonce(e1 HexBytes, size int) *Request {
	s.mu.Lock()
	s.extraNonce1 = e1
	s.extraNonce2Size = size
	s.mu.Unlock()

	return &Request{
		ID:     NullID(),
		Method: MethodSetExtranonce,
		Params: []any{e1.String(), size},
	}
}

// Notify builds a mining.notify Request from job, assigning it jobID. The
// caller is responsible for tracking job ids; this method performs no I/O.
func (s *ServerSession) Notify(jobID string, job Job) *Request {
	s.mu.Lock()
	s.lastJobID = jobID
	s.mu.Unlock()

	return &Request{
		ID:     NullID(),
		Method: MethodNotify,
		Params: []any{
			jobID,
			job.PrevHash.String(),
			job.CoinBase1.String(),
			job.CoinBase2.String(),
			merkleStrings(job.MerkleBranch),
			job.Version.String(),
			job.Bits.String(),
			job.Time.String(),
			job.CleanJobs,
		},
	}
}

func merkleStrings(branch []HexBytes) []string {
	out := make([]string, len(branch))
	for i, h := range branch {
		out[i] = h.String()
	}
	return out
}
