// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package v1

import (
	"fmt"
	"sync"

	"github.com/Kodylow/stratum/internal/stratumerr"
)

// Status is the client-side session's monotonic progression: Init,
// Configured, Subscribed. Downgrade is forbidden.
type Status int

const (
	// StatusInit is the state before any handshake exchange completes.
	StatusInit Status = iota
	// StatusConfigured follows a resolved mining.configure response.
	StatusConfigured
	// StatusSubscribed follows a resolved mining.subscribe response.
	StatusSubscribed
)

// String renders the status name for logging.
func (s Status) String() string {
	switch s {
	case StatusInit:
		return "init"
	case StatusConfigured:
		return "configured"
	case StatusSubscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}

// outstandingKind distinguishes the two ambiguous-response variants a
// ClientSession may have in flight for a given id.
type outstandingKind int

const (
	outstandingAuthorize outstandingKind = iota
	outstandingSubmit
)

type outstandingEntry struct {
	kind     outstandingKind
	userName string
}

// ClientSession is the per-connection client-side V1 session state
// machine for a mining session. All fields are guarded by mu.
type ClientSession struct {
	mu sync.Mutex

	status Status

	authorized      map[string]struct{}
	extraNonce1     HexBytes
	extraNonce2Size int
	versionMask     *HexU32Be
	versionMinBit   *HexU32Be
	signature       string
	lastNotify      *NotifyNotification

	outstanding map[string]outstandingEntry
}

// NewClientSession constructs a ClientSession in the Init state.
func NewClientSession() *ClientSession {
	return &ClientSession{
		authorized:  make(map[string]struct{}),
		outstanding: make(map[string]outstandingEntry),
	}
}

// Status returns the session's current state.
func (c *ClientSession) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastNotify returns the most recently stored job announcement, if any.
func (c *ClientSession) LastNotify() *NotifyNotification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastNotify
}

// IsAuthorized reports whether name has been accepted by a prior
// Authorize exchange.
func (c *ClientSession) IsAuthorized(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.authorized[name]
	return ok
}

func (c *ClientSession) advance(next Status) {
	if next > c.status {
		c.status = next
	}
}

// Configure builds a mining.configure Request. Valid in any state.
func (c *ClientSession) Configure(id ID, extensions []string, mask, minBit *HexU32Be) *Request {
	params := []any{extensions}
	opts := map[string]any{}
	if mask != nil {
		opts["version-rolling.mask"] = mask.String()
	}
	if minBit != nil {
		opts["version-rolling.min-bit-count"] = minBit.String()
	}
	return &Request{ID: id, Method: MethodConfigure, Params: append(params, opts)}
}

// Subscribe builds a mining.subscribe Request. Forbidden in Init.
func (c *ClientSession) Subscribe(id ID, agentSignature, resumeJobID string) (*Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusInit {
		return nil, stateViolation("subscribe forbidden in init state")
	}
	c.signature = agentSignature
	params := []any{agentSignature}
	if resumeJobID != "" {
		params = append(params, resumeJobID)
	}
	return &Request{ID: id, Method: MethodSubscribe, Params: params}, nil
}

// Authorize builds a mining.authorize Request and registers id in the
// outstanding-request table. Forbidden in Init.
func (c *ClientSession) Authorize(id ID, userName, password string) (*Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusInit {
		return nil, stateViolation("authorize forbidden in init state")
	}
	c.outstanding[id.String()] = outstandingEntry{kind: outstandingAuthorize, userName: userName}
	return &Request{ID: id, Method: MethodAuthorize, Params: []any{userName, password}}, nil
}

// Submit builds a mining.submit Request and registers id in the
// outstanding-request table. Forbidden in Init; requires a prior Notify
// and that userName is already authorized.
func (c *ClientSession) Submit(id ID, userName string, extraNonce2 HexBytes, nTime, nonce HexU32Be, versionBits *HexU32Be) (*Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusInit {
		return nil, stateViolation("submit forbidden in init state")
	}
	if c.lastNotify == nil {
		return nil, stateViolation("submit requires a prior notify")
	}
	if _, ok := c.authorized[userName]; !ok {
		return nil, stateViolation(fmt.Sprintf("user %q is not authorized", userName))
	}
	params := []any{userName, c.lastNotify.JobID, extraNonce2.String(), nTime.String(), nonce.String()}
	if versionBits != nil {
		params = append(params, versionBits.String())
	}
	c.outstanding[id.String()] = outstandingEntry{kind: outstandingSubmit}
	return &Request{ID: id, Method: MethodSubmit, Params: params}, nil
}

// HandleMessage processes one inbound V1 message on the client side. It
// returns an optional Response to send back (reserved for ErrorMessage
// handling) and an error for validation or protocol-kind failures.
func (c *ClientSession) HandleMessage(raw []byte) (*Response, error) {
	msg, kind, err := ParseMessage(raw)
	if err != nil {
		return nil, err
	}

	if IsResponse(kind) {
		resp := msg.(*Response)
		if resp.Error != nil {
			return c.handleErrorMessage(resp)
		}
		return nil, c.applyResponse(resp)
	}

	req := msg.(*Request)
	if kind == KindNotification {
		s2c, err := ParseServer2Client(req)
		if err != nil {
			return nil, err
		}
		return nil, c.applyNotification(s2c)
	}

	return nil, stratumerr.MakeError(stratumerr.ErrInvalidReceiver,
		fmt.Sprintf("client received unexpected request %q", req.Method), nil)
}

func (c *ClientSession) handleErrorMessage(resp *Response) (*Response, error) {
	return nil, stratumerr.MakeError(stratumerr.ErrOther,
		fmt.Sprintf("server error %d: %s", resp.Error.Code, resp.Error.Message), nil)
}

// applyResponse resolves an inbound Response against the typed
// Server2ClientResponse registry, consulting the outstanding table to
// disambiguate GeneralResponse, and applies the corresponding state
// transition.
func (c *ClientSession) applyResponse(resp *Response) error {
	variant, err := ParseServer2ClientResponse(resp)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch m := variant.(type) {
	case *ConfigureResponseMsg:
		c.versionMask = m.VersionRollingMask
		c.versionMinBit = m.VersionRollingMinBitCount
		c.advance(StatusConfigured)
		return nil

	case *SubscribeResponseMsg:
		c.extraNonce1 = m.ExtraNonce1
		c.extraNonce2Size = m.ExtraNonce2Size
		c.advance(StatusSubscribed)
		return nil

	case *GeneralResponseMsg:
		return c.resolveGeneral(m)

	default:
		return stratumerr.MakeError(stratumerr.ErrOther,
			fmt.Sprintf("unhandled server2client response variant %T", m), nil)
	}
}

// resolveGeneral consults the outstanding-request table to rewrite an
// ambiguous GeneralResponseMsg into Authorize or Submit. Entries
// are removed on first match; a second response for the same id yields
// UnknownID.
func (c *ClientSession) resolveGeneral(m *GeneralResponseMsg) error {
	key := m.ID.String()
	entry, ok := c.outstanding[key]
	if !ok {
		return stratumerr.MakeError(stratumerr.ErrUnknownID,
			fmt.Sprintf("no outstanding request for id %s", key), nil)
	}
	delete(c.outstanding, key)

	switch entry.kind {
	case outstandingAuthorize:
		result, _ := m.Result.(bool)
		if result {
			c.authorized[entry.userName] = struct{}{}
		}
		return nil
	case outstandingSubmit:
		return nil
	default:
		return stratumerr.MakeError(stratumerr.ErrOther, "unknown outstanding entry kind", nil)
	}
}

// applyNotification applies the state-update side effect of an inbound
// Server2Client notification.
func (c *ClientSession) applyNotification(s2c Server2Client) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch m := s2c.(type) {
	case *NotifyNotification:
		c.lastNotify = m
		return nil
	case *SetDifficultyNotification:
		// Difficulty itself is not tracked as session state in this core;
		// forwarded to the caller's mining engine outside this package.
		return nil
	case *SetExtranonceNotification:
		c.extraNonce1 = m.ExtraNonce1
		c.extraNonce2Size = m.ExtraNonce2Size
		return nil
	case *SetVersionMaskNotification:
		c.versionMask = &m.Mask
		return nil
	default:
		return stratumerr.MakeError(stratumerr.ErrOther,
			fmt.Sprintf("unhandled server2client notification variant %T", m), nil)
	}
}

func stateViolation(desc string) error {
	return stratumerr.MakeError(stratumerr.ErrStateViolation, desc, nil)
}
