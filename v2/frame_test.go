// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package v2

import "testing"

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	hdr, err := EncodeHeader(1234, 0x05, 0x0001)
	if err != nil {
		t.Fatalf("EncodeHeader: %v", err)
	}
	b := hdr.Bytes()
	got, err := DecodeHeader(b[:])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got.Len() != 1234 || got.MsgType() != 0x05 || got.ExtensionType() != 0x0001 {
		t.Fatalf("got %+v, want len=1234 type=5 ext=1", got)
	}
}

func TestEncodeHeaderRejectsOversizeLength(t *testing.T) {
	if _, err := EncodeHeader(MaxMsgLength+1, 0, 0); err == nil {
		t.Fatalf("expected error for length exceeding 24 bits")
	}
}

func TestEncodeHeaderAcceptsMaxLength(t *testing.T) {
	hdr, err := EncodeHeader(MaxMsgLength, 0, 0)
	if err != nil {
		t.Fatalf("EncodeHeader at max: %v", err)
	}
	if hdr.Len() != MaxMsgLength {
		t.Fatalf("got %d, want %d", hdr.Len(), MaxMsgLength)
	}
}

// header codec underflow.
func TestDecodeHeaderUnderflow(t *testing.T) {
	_, err := DecodeHeader([]byte{0x01, 0x00, 0x05})
	needMore, ok := err.(*NeedMoreError)
	if !ok {
		t.Fatalf("got %T, want *NeedMoreError", err)
	}
	if needMore.Missing != 3 {
		t.Fatalf("Missing = %d, want 3", needMore.Missing)
	}
}

func TestChannelMsg(t *testing.T) {
	cases := []struct {
		ext  uint16
		want bool
	}{
		{0x0000, true},
		{0x0001, true},
		{0x0002, false},
		{0x0003, false},
		{0xfffe, false},
	}
	for _, c := range cases {
		hdr, err := EncodeHeader(0, 0, c.ext)
		if err != nil {
			t.Fatalf("EncodeHeader: %v", err)
		}
		if got := hdr.ChannelMsg(); got != c.want {
			t.Fatalf("ChannelMsg(%#04x) = %v, want %v", c.ext, got, c.want)
		}
	}
}

func TestHeaderLittleEndianLayout(t *testing.T) {
	hdr, err := EncodeHeader(0x010203, 0xAB, 0x0102)
	if err != nil {
		t.Fatalf("EncodeHeader: %v", err)
	}
	b := hdr.Bytes()
	want := [HeaderSize]byte{0x02, 0x01, 0xAB, 0x03, 0x02, 0x01}
	if b != want {
		t.Fatalf("got % x, want % x", b, want)
	}
}
