// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package v2

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Kodylow/stratum/internal/stratumerr"
)

// Header is the 6-byte stratum v2 frame preface: a little-endian u16
// extension_type, a u8 msg_type, and a 24-bit little-endian msg_length.
type Header struct {
	extensionType uint16
	msgType       uint8
	msgLength     uint32
}

// NeedMoreError is returned by DecodeHeader when fewer than HeaderSize
// bytes are available. Missing reports how many additional bytes the
// caller must supply before retrying.
type NeedMoreError struct {
	Missing int
}

func (e *NeedMoreError) Error() string {
	return fmt.Sprintf("v2: need %d more bytes to decode header", e.Missing)
}

// EncodeHeader builds a Header for a payload of the given length, message
// type and extension type. It returns an error if len exceeds the 24-bit
// msg_length field's range.
func EncodeHeader(length uint32, msgType uint8, extensionType uint16) (Header, error) {
	if length > MaxMsgLength {
		return Header{}, stratumerr.MakeError(stratumerr.ErrParse,
			fmt.Sprintf("v2: frame length %d exceeds %d", length, MaxMsgLength), nil)
	}
	return Header{
		extensionType: extensionType,
		msgType:       msgType,
		msgLength:     length,
	}, nil
}

// DecodeHeader parses a Header from the first HeaderSize bytes of b. If
// fewer bytes are available it returns a *NeedMoreError naming how many
// more bytes are needed.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, &NeedMoreError{Missing: HeaderSize - len(b)}
	}
	extensionType := binary.LittleEndian.Uint16(b[0:2])
	msgType := b[2]
	msgLength := uint32(b[3]) | uint32(b[4])<<8 | uint32(b[5])<<16
	return Header{
		extensionType: extensionType,
		msgType:       msgType,
		msgLength:     msgLength,
	}, nil
}

// Bytes encodes h into its 6-byte wire representation.
func (h Header) Bytes() [HeaderSize]byte {
	var out [HeaderSize]byte
	binary.LittleEndian.PutUint16(out[0:2], h.extensionType)
	out[2] = h.msgType
	out[3] = byte(h.msgLength)
	out[4] = byte(h.msgLength >> 8)
	out[5] = byte(h.msgLength >> 16)
	return out
}

// MsgType returns the header's message type byte.
func (h Header) MsgType() uint8 { return h.msgType }

// ExtensionType returns the header's extension type field.
func (h Header) ExtensionType() uint16 { return h.extensionType }

// Len returns the payload length in bytes.
func (h Header) Len() uint32 { return h.msgLength }

// ChannelMsg reports whether the header is a channel message: true iff
// extension_type is 0 or 1 (only the low bit, if any, is set).
func (h Header) ChannelMsg() bool {
	const mask = uint16(0x0001)
	return h.extensionType&mask == h.extensionType
}

// ReadFrame reads one header and its payload from r.
func ReadFrame(r io.Reader) (Header, []byte, error) {
	var hb [HeaderSize]byte
	if _, err := io.ReadFull(r, hb[:]); err != nil {
		return Header{}, nil, err
	}
	hdr, err := DecodeHeader(hb[:])
	if err != nil {
		return Header{}, nil, err
	}
	payload := make([]byte, hdr.Len())
	if _, err := io.ReadFull(r, payload); err != nil {
		return Header{}, nil, err
	}
	return hdr, payload, nil
}

// WriteFrame writes a header for payload followed by payload itself.
func WriteFrame(w io.Writer, payload []byte, msgType uint8, extensionType uint16) error {
	hdr, err := EncodeHeader(uint32(len(payload)), msgType, extensionType)
	if err != nil {
		return err
	}
	hb := hdr.Bytes()
	if _, err := w.Write(hb[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}
