// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package v1

import (
	"fmt"

	"github.com/Kodylow/stratum/internal/stratumerr"
)

// Canonical, case-sensitive wire method names.
const (
	MethodAuthorize            = "mining.authorize"
	MethodConfigure            = "mining.configure"
	MethodExtranonceSubscribe  = "mining.extranonce.subscribe"
	MethodSubmit               = "mining.submit"
	MethodSubscribe            = "mining.subscribe"
	MethodNotify               = "mining.notify"
	MethodSetDifficulty        = "mining.set_difficulty"
	MethodSetExtranonce        = "mining.set_extranonce"
	MethodSetVersionMask       = "mining.set_version_mask"
)

// Client2Server is the sum type of messages a stratum v1 client may send a
// server: Authorize, Configure, ExtranonceSubscribe, Submit, Subscribe.
type Client2Server interface {
	client2Server()
}

// AuthorizeRequest is a mining.authorize request.
type AuthorizeRequest struct {
	ID       ID
	UserName string
	Password string
}

func (*AuthorizeRequest) client2Server() {}

// ConfigureRequest is a mining.configure request.
type ConfigureRequest struct {
	ID                        ID
	Extensions                []string
	VersionRollingMask        *HexU32Be
	VersionRollingMinBitCount *HexU32Be
}

func (*ConfigureRequest) client2Server() {}

// ExtranonceSubscribeRequest is a mining.extranonce.subscribe request.
type ExtranonceSubscribeRequest struct {
	ID ID
}

func (*ExtranonceSubscribeRequest) client2Server() {}

// SubmitRequest is a mining.submit request.
type SubmitRequest struct {
	ID          ID
	UserName    string
	JobID       string
	ExtraNonce2 HexBytes
	NTime       HexU32Be
	Nonce       HexU32Be
	VersionBits *HexU32Be
}

func (*SubmitRequest) client2Server() {}

// SubscribeRequest is a mining.subscribe request.
type SubscribeRequest struct {
	ID             ID
	AgentSignature string
	ResumeJobID    string
}

func (*SubscribeRequest) client2Server() {}

// ParseClient2Server dispatches a parsed Request to its typed
// Client2Server variant by method name.
func ParseClient2Server(req *Request) (Client2Server, error) {
	switch req.Method {
	case MethodAuthorize:
		return parseAuthorizeRequest(req)
	case MethodConfigure:
		return parseConfigureRequest(req)
	case MethodExtranonceSubscribe:
		return &ExtranonceSubscribeRequest{ID: req.ID}, nil
	case MethodSubmit:
		return parseSubmitRequest(req)
	case MethodSubscribe:
		return parseSubscribeRequest(req)
	default:
		return nil, unknownMethod(req.Method)
	}
}

// Server2Client is the sum type of server-initiated notifications: Notify,
// SetDifficulty, SetExtranonce, SetVersionMask.
type Server2Client interface {
	server2Client()
}

// NotifyNotification is a mining.notify notification.
type NotifyNotification struct {
	JobID        string
	PrevHash     HexBytes
	CoinBase1    HexBytes
	CoinBase2    HexBytes
	MerkleBranch []HexBytes
	Version      HexU32Be
	Bits         HexU32Be
	Time         HexU32Be
	CleanJobs    bool
}

func (*NotifyNotification) server2Client() {}

// SetDifficultyNotification is a mining.set_difficulty notification.
type SetDifficultyNotification struct {
	Difficulty float64
}

func (*SetDifficultyNotification) server2Client() {}

// SetExtranonceNotification is a mining.set_extranonce notification.
type SetExtranonceNotification struct {
	ExtraNonce1     HexBytes
	ExtraNonce2Size int
}

func (*SetExtranonceNotification) server2Client() {}

// SetVersionMaskNotification is a mining.set_version_mask notification.
type SetVersionMaskNotification struct {
	Mask HexU32Be
}

func (*SetVersionMaskNotification) server2Client() {}

// ParseServer2Client dispatches a parsed Request to its typed
// Server2Client variant by method name.
func ParseServer2Client(req *Request) (Server2Client, error) {
	switch req.Method {
	case MethodNotify:
		return parseNotifyNotification(req)
	case MethodSetDifficulty:
		return parseSetDifficultyNotification(req)
	case MethodSetExtranonce:
		return parseSetExtranonceNotification(req)
	case MethodSetVersionMask:
		return parseSetVersionMaskNotification(req)
	default:
		return nil, unknownMethod(req.Method)
	}
}

// Server2ClientResponse is the sum type of responses a client may receive
// for a prior request: Configure, Subscribe, Authorize, Submit, and the
// transient GeneralResponse for a wire shape that cannot be resolved
// without consulting the client's outstanding-request table.
type Server2ClientResponse interface {
	server2ClientResponse()
}

// ConfigureResponseMsg is a resolved mining.configure response.
type ConfigureResponseMsg struct {
	ID                        ID
	VersionRollingMask        *HexU32Be
	VersionRollingMinBitCount *HexU32Be
}

func (*ConfigureResponseMsg) server2ClientResponse() {}

// SubscribeResponseMsg is a resolved mining.subscribe response.
type SubscribeResponseMsg struct {
	ID              ID
	Subscriptions   [][2]string
	ExtraNonce1     HexBytes
	ExtraNonce2Size int
}

func (*SubscribeResponseMsg) server2ClientResponse() {}

// AuthorizeResponseMsg is a resolved mining.authorize response.
type AuthorizeResponseMsg struct {
	ID       ID
	Result   bool
	UserName string
}

func (*AuthorizeResponseMsg) server2ClientResponse() {}

// SubmitResponseMsg is a resolved mining.submit response.
type SubmitResponseMsg struct {
	ID     ID
	Result bool
}

func (*SubmitResponseMsg) server2ClientResponse() {}

// GeneralResponseMsg is a transient, unresolved response: a bare
// {id, result, error} whose originating request method cannot be told from
// the wire shape alone.
type GeneralResponseMsg struct {
	ID     ID
	Result any
	Error  *StratumError
}

func (*GeneralResponseMsg) server2ClientResponse() {}

// ParseServer2ClientResponse classifies a Response by inspecting the shape
// of its Result: a 3-element array naming subscriptions is a Subscribe
// response, any JSON object is a Configure response (missing or malformed
// version-rolling fields are left nil), and anything else (in practice a bare bool) is a
// GeneralResponseMsg left for the caller to resolve via the outstanding
// request table.
func ParseServer2ClientResponse(resp *Response) (Server2ClientResponse, error) {
	switch result := resp.Result.(type) {
	case []any:
		if msg, ok := trySubscribeResponse(resp.ID, result); ok {
			return msg, nil
		}
	case map[string]any:
		return parseConfigureResponse(resp.ID, result), nil
	}
	return &GeneralResponseMsg{ID: resp.ID, Result: resp.Result}, nil
}

func trySubscribeResponse(id ID, result []any) (*SubscribeResponseMsg, bool) {
	if len(result) != 3 {
		return nil, false
	}
	subsRaw, ok := result[0].([]any)
	if !ok {
		return nil, false
	}
	subs, err := parseSubscriptionTuples(subsRaw)
	if err != nil {
		return nil, false
	}
	e1s, ok := result[1].(string)
	if !ok {
		return nil, false
	}
	sizeF, ok := result[2].(float64)
	if !ok {
		return nil, false
	}
	e1, err := ParseHexBytes(e1s)
	if err != nil {
		return nil, false
	}
	return &SubscribeResponseMsg{
		ID:              id,
		Subscriptions:   subs,
		ExtraNonce1:     e1,
		ExtraNonce2Size: int(sizeF),
	}, true
}

func parseSubscriptionTuples(raw []any) ([][2]string, error) {
	out := make([][2]string, 0, len(raw))
	for _, item := range raw {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("malformed subscription tuple")
		}
		a, ok1 := pair[0].(string)
		b, ok2 := pair[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("malformed subscription tuple")
		}
		out = append(out, [2]string{a, b})
	}
	return out, nil
}

func parseConfigureResponse(id ID, result map[string]any) *ConfigureResponseMsg {
	out := &ConfigureResponseMsg{ID: id}
	if raw, ok := result["version-rolling.mask"].(string); ok {
		if m, err := ParseHexU32Be(raw); err == nil {
			out.VersionRollingMask = &m
		}
	}
	if raw, ok := result["version-rolling.min-bit-count"].(string); ok {
		if m, err := ParseHexU32Be(raw); err == nil {
			out.VersionRollingMinBitCount = &m
		}
	}
	return out
}

func unknownMethod(method string) error {
	return stratumerr.MakeError(stratumerr.ErrUnknownMethod,
		fmt.Sprintf("unknown method %q", method), nil)
}

func badParams(method string, params []any) error {
	return stratumerr.MakeError(stratumerr.ErrBadParams,
		fmt.Sprintf("%s: malformed parameters: %v", method, params), nil)
}

func stringParam(method string, params []any, idx int) (string, error) {
	if idx >= len(params) {
		return "", badParams(method, params)
	}
	s, ok := params[idx].(string)
	if !ok {
		return "", badParams(method, params)
	}
	return s, nil
}

func boolParam(method string, params []any, idx int) (bool, error) {
	if idx >= len(params) {
		return false, badParams(method, params)
	}
	b, ok := params[idx].(bool)
	if !ok {
		return false, badParams(method, params)
	}
	return b, nil
}

func floatParam(method string, params []any, idx int) (float64, error) {
	if idx >= len(params) {
		return 0, badParams(method, params)
	}
	f, ok := params[idx].(float64)
	if !ok {
		return 0, badParams(method, params)
	}
	return f, nil
}

func parseAuthorizeRequest(req *Request) (*AuthorizeRequest, error) {
	name, err := stringParam(MethodAuthorize, req.Params, 0)
	if err != nil {
		return nil, err
	}
	password := ""
	if len(req.Params) > 1 {
		password, _ = req.Params[1].(string)
	}
	return &AuthorizeRequest{ID: req.ID, UserName: name, Password: password}, nil
}

func parseConfigureRequest(req *Request) (*ConfigureRequest, error) {
	if len(req.Params) < 2 {
		return nil, badParams(MethodConfigure, req.Params)
	}
	extRaw, ok := req.Params[0].([]any)
	if !ok {
		return nil, badParams(MethodConfigure, req.Params)
	}
	exts := make([]string, 0, len(extRaw))
	for _, e := range extRaw {
		s, ok := e.(string)
		if !ok {
			return nil, badParams(MethodConfigure, req.Params)
		}
		exts = append(exts, s)
	}
	paramsMap, ok := req.Params[1].(map[string]any)
	if !ok {
		return nil, badParams(MethodConfigure, req.Params)
	}
	out := &ConfigureRequest{ID: req.ID, Extensions: exts}
	if raw, ok := paramsMap["version-rolling.mask"].(string); ok {
		if mask, err := ParseHexU32Be(raw); err == nil {
			out.VersionRollingMask = &mask
		}
	}
	if raw, ok := paramsMap["version-rolling.min-bit-count"].(string); ok {
		if minBit, err := ParseHexU32Be(raw); err == nil {
			out.VersionRollingMinBitCount = &minBit
		}
	}
	return out, nil
}

func parseSubmitRequest(req *Request) (*SubmitRequest, error) {
	userName, err := stringParam(MethodSubmit, req.Params, 0)
	if err != nil {
		return nil, err
	}
	jobID, err := stringParam(MethodSubmit, req.Params, 1)
	if err != nil {
		return nil, err
	}
	extraNonce2Hex, err := stringParam(MethodSubmit, req.Params, 2)
	if err != nil {
		return nil, err
	}
	extraNonce2, err := ParseHexBytes(extraNonce2Hex)
	if err != nil {
		return nil, badParams(MethodSubmit, req.Params)
	}
	nTimeHex, err := stringParam(MethodSubmit, req.Params, 3)
	if err != nil {
		return nil, err
	}
	nTime, err := ParseHexU32Be(nTimeHex)
	if err != nil {
		return nil, badParams(MethodSubmit, req.Params)
	}
	nonceHex, err := stringParam(MethodSubmit, req.Params, 4)
	if err != nil {
		return nil, err
	}
	nonce, err := ParseHexU32Be(nonceHex)
	if err != nil {
		return nil, badParams(MethodSubmit, req.Params)
	}
	out := &SubmitRequest{
		ID:          req.ID,
		UserName:    userName,
		JobID:       jobID,
		ExtraNonce2: extraNonce2,
		NTime:       nTime,
		Nonce:       nonce,
	}
	if len(req.Params) > 5 {
		if vb, ok := req.Params[5].(string); ok && vb != "" {
			if mask, err := ParseHexU32Be(vb); err == nil {
				out.VersionBits = &mask
			}
		}
	}
	return out, nil
}

func parseSubscribeRequest(req *Request) (*SubscribeRequest, error) {
	sig, err := stringParam(MethodSubscribe, req.Params, 0)
	if err != nil {
		return nil, err
	}
	resume := ""
	if len(req.Params) > 1 {
		resume, _ = req.Params[1].(string)
	}
	return &SubscribeRequest{ID: req.ID, AgentSignature: sig, ResumeJobID: resume}, nil
}

func parseNotifyNotification(req *Request) (*NotifyNotification, error) {
	if len(req.Params) < 9 {
		return nil, badParams(MethodNotify, req.Params)
	}
	jobID, err := stringParam(MethodNotify, req.Params, 0)
	if err != nil {
		return nil, err
	}
	prevHashHex, err := stringParam(MethodNotify, req.Params, 1)
	if err != nil {
		return nil, err
	}
	coinb1Hex, err := stringParam(MethodNotify, req.Params, 2)
	if err != nil {
		return nil, err
	}
	coinb2Hex, err := stringParam(MethodNotify, req.Params, 3)
	if err != nil {
		return nil, err
	}
	merkleRaw, ok := req.Params[4].([]any)
	if !ok {
		return nil, badParams(MethodNotify, req.Params)
	}
	versionHex, err := stringParam(MethodNotify, req.Params, 5)
	if err != nil {
		return nil, err
	}
	bitsHex, err := stringParam(MethodNotify, req.Params, 6)
	if err != nil {
		return nil, err
	}
	timeHex, err := stringParam(MethodNotify, req.Params, 7)
	if err != nil {
		return nil, err
	}
	cleanJobs, err := boolParam(MethodNotify, req.Params, 8)
	if err != nil {
		return nil, err
	}

	prevHash, err := ParseHexBytes(prevHashHex)
	if err != nil {
		return nil, badParams(MethodNotify, req.Params)
	}
	coinb1, err := ParseHexBytes(coinb1Hex)
	if err != nil {
		return nil, badParams(MethodNotify, req.Params)
	}
	coinb2, err := ParseHexBytes(coinb2Hex)
	if err != nil {
		return nil, badParams(MethodNotify, req.Params)
	}
	merkle := make([]HexBytes, 0, len(merkleRaw))
	for _, m := range merkleRaw {
		s, ok := m.(string)
		if !ok {
			return nil, badParams(MethodNotify, req.Params)
		}
		hb, err := ParseHexBytes(s)
		if err != nil {
			return nil, badParams(MethodNotify, req.Params)
		}
		merkle = append(merkle, hb)
	}
	version, err := ParseHexU32Be(versionHex)
	if err != nil {
		return nil, badParams(MethodNotify, req.Params)
	}
	bits, err := ParseHexU32Be(bitsHex)
	if err != nil {
		return nil, badParams(MethodNotify, req.Params)
	}
	tm, err := ParseHexU32Be(timeHex)
	if err != nil {
		return nil, badParams(MethodNotify, req.Params)
	}

	return &NotifyNotification{
		JobID:        jobID,
		PrevHash:     prevHash,
		CoinBase1:    coinb1,
		CoinBase2:    coinb2,
		MerkleBranch: merkle,
		Version:      version,
		Bits:         bits,
		Time:         tm,
		CleanJobs:    cleanJobs,
	}, nil
}

func parseSetDifficultyNotification(req *Request) (*SetDifficultyNotification, error) {
	diff, err := floatParam(MethodSetDifficulty, req.Params, 0)
	if err != nil {
		return nil, err
	}
	return &SetDifficultyNotification{Difficulty: diff}, nil
}

func parseSetExtranonceNotification(req *Request) (*SetExtranonceNotification, error) {
	e1Hex, err := stringParam(MethodSetExtranonce, req.Params, 0)
	if err != nil {
		return nil, err
	}
	sizeF, err := floatParam(MethodSetExtranonce, req.Params, 1)
	if err != nil {
		return nil, err
	}
	e1, err := ParseHexBytes(e1Hex)
	if err != nil {
		return nil, badParams(MethodSetExtranonce, req.Params)
	}
	return &SetExtranonceNotification{ExtraNonce1: e1, ExtraNonce2Size: int(sizeF)}, nil
}

func parseSetVersionMaskNotification(req *Request) (*SetVersionMaskNotification, error) {
	s, err := stringParam(MethodSetVersionMask, req.Params, 0)
	if err != nil {
		return nil, err
	}
	mask, err := ParseHexU32Be(s)
	if err != nil {
		return nil, badParams(MethodSetVersionMask, req.Params)
	}
	return &SetVersionMaskNotification{Mask: mask}, nil
}
