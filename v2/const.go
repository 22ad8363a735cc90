// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package v2 implements the stratum v2 binary frame header codec: the
// fixed-size {extension_type, msg_type, msg_length} preface that gates
// reading a length-prefixed v2 stream. Noise transport security and the
// v2 message bodies themselves are out of scope.
package v2

const (
	// HeaderLenOffset is the byte offset of the msg_length field within
	// the header.
	HeaderLenOffset = 3

	// HeaderLenSize is the width in bytes of the msg_length field.
	HeaderLenSize = 3

	// HeaderLenEnd is the offset just past the msg_length field.
	HeaderLenEnd = HeaderLenOffset + HeaderLenSize

	// HeaderSize is the total encoded size of a Header in bytes.
	HeaderSize = 6

	// MaxMsgLength is the largest value msg_length can hold: 2^24 - 1.
	MaxMsgLength = 1<<24 - 1
)
