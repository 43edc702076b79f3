/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// PacketHeaderSize is the fixed header preceding all fields: magic,
// type, total size, id, format, timestamp and info (spec §3).
const PacketHeaderSize = 32

// PacketFooterSize is the fixed footer: a zero checksum word followed
// by the footer magic.
const PacketFooterSize = 8

// FormatVersion is the only packet format this codec encodes; other
// values are decodable with a warning (spec §3).
const FormatVersion uint32 = 1

// DefaultPort is the default NCP TCP port (spec §6).
const DefaultPort = 9999

var (
	headerMagic = [4]byte{0xDD, 0xCC, 0xBB, 0xAA}
	footerMagic = [4]byte{0xAA, 0xBB, 0xCC, 0xDD}
	// footerNoChecksum is the 8-byte footer pattern (zero checksum +
	// magic) that Axis nodes are known to spuriously embed inside a
	// field body (spec §4.2).
	footerNoChecksum = [8]byte{0x00, 0x00, 0x00, 0x00, 0xAA, 0xBB, 0xCC, 0xDD}
)

// Packet is a complete NCP frame: a typed, identified, timestamped
// envelope carrying an ordered list of fields (spec §3).
type Packet struct {
	Type      string
	ID        uint32
	Timestamp time.Time
	Info      [4]byte
	Fields    []Field
}

// Get returns the first field named name, if any.
func (p Packet) Get(name string) (Field, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// WarnFunc receives non-fatal decode warnings (spec §4.2, §7). The
// default, used when DecodeOptions.Warn is nil, logs through logrus at
// Warn level.
type WarnFunc func(w error)

// DecodeOptions controls DecodePacket / FinishDecode behavior.
type DecodeOptions struct {
	// Raw, when true, keeps parameter values as opaque (tag, bytes)
	// pairs instead of decoding them (spec §4.2).
	Raw bool
	// Warn receives decode warnings; defaults to a logrus.Warn call.
	Warn WarnFunc
}

type decodeState struct {
	raw  bool
	warn WarnFunc
}

func newDecodeState(opts DecodeOptions) *decodeState {
	warn := opts.Warn
	if warn == nil {
		warn = func(w error) { log.Warn(w) }
	}
	return &decodeState{raw: opts.Raw, warn: warn}
}

// HeaderInfo is the result of the first phase of a streaming decode:
// everything needed to know how many more bytes to read (spec §4.2
// two-phase decode).
type HeaderInfo struct {
	Type      string
	ID        uint32
	Format    uint32
	Timestamp time.Time
	Info      [4]byte
	// BodySize is the number of bytes remaining after the fixed
	// 32-byte header: fields plus the 8-byte footer.
	BodySize int
}

// EncodePacket serializes a packet into its complete wire form,
// computing every size-in-words field from the encoded content and
// always writing a zero footer checksum (spec §4.2).
func EncodePacket(p Packet) ([]byte, error) {
	typeID, err := EncodeIdentifier(p.Type)
	if err != nil {
		return nil, fmt.Errorf("wire: packet type: %w", err)
	}
	header := make([]byte, PacketHeaderSize)
	copy(header[0:4], headerMagic[:])
	copy(header[4:8], typeID[:])
	binary.LittleEndian.PutUint32(header[12:16], p.ID)
	binary.LittleEndian.PutUint32(header[16:20], FormatVersion)
	sec, nsec := timeToWire(p.Timestamp)
	binary.LittleEndian.PutUint32(header[20:24], sec)
	binary.LittleEndian.PutUint32(header[24:28], nsec)
	copy(header[28:32], p.Info[:])

	buf := header
	for _, f := range p.Fields {
		fieldBytes, err := encodeField(f)
		if err != nil {
			return nil, fmt.Errorf("wire: packet %q: %w", p.Type, err)
		}
		buf = append(buf, fieldBytes...)
	}
	buf = append(buf, 0, 0, 0, 0)
	buf = append(buf, footerMagic[:]...)

	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(buf)/4))
	return buf, nil
}

// PeekPacketSize returns the total packet byte count by reading the
// size field at offset 8 of the header. first12 need only contain the
// first 12 bytes of the stream (spec §4.2).
func PeekPacketSize(first12 []byte) (uint32, error) {
	if len(first12) < 12 {
		return 0, DecodeError{Message: "need at least 12 bytes to peek packet size"}
	}
	return binary.LittleEndian.Uint32(first12[8:12]) * 4, nil
}

// DecodeHeader parses the fixed 32-byte packet header and reports how
// many more bytes (BodySize) must be read before FinishDecode can run
// (spec §4.2 two-phase decode). header must hold at least
// PacketHeaderSize bytes; only the first PacketHeaderSize are read.
func DecodeHeader(header []byte) (*HeaderInfo, error) {
	if len(header) < PacketHeaderSize {
		return nil, DecodeError{Message: fmt.Sprintf("short packet header: %d bytes, want %d", len(header), PacketHeaderSize)}
	}
	if !bytes.Equal(header[0:4], headerMagic[:]) {
		return nil, DecodeError{Message: fmt.Sprintf("bad packet header magic % x", header[0:4])}
	}
	totalWords := binary.LittleEndian.Uint32(header[8:12])
	totalSize := int(totalWords) * 4
	if totalSize < PacketHeaderSize+PacketFooterSize {
		return nil, DecodeError{Message: fmt.Sprintf("implausible packet size %d", totalSize)}
	}
	format := binary.LittleEndian.Uint32(header[16:20])
	sec := binary.LittleEndian.Uint32(header[20:24])
	nsec := binary.LittleEndian.Uint32(header[24:28])
	var info [4]byte
	copy(info[:], header[28:32])

	h := &HeaderInfo{
		Type:      DecodeIdentifier(header[4:8]),
		ID:        binary.LittleEndian.Uint32(header[12:16]),
		Format:    format,
		Timestamp: wireToTime(sec, nsec),
		Info:      info,
		BodySize:  totalSize - PacketHeaderSize,
	}
	return h, nil
}

// FinishDecode completes a two-phase decode: body is the HeaderInfo's
// BodySize bytes that follow the 32-byte header (fields plus the
// 8-byte footer).
func FinishDecode(h *HeaderInfo, body []byte, opts DecodeOptions) (*Packet, error) {
	if h.Format != FormatVersion {
		warnf := opts.Warn
		if warnf == nil {
			warnf = func(w error) { log.Warn(w) }
		}
		warnf(DecodeWarning{Message: fmt.Sprintf("unknown packet format %d", h.Format)})
	}
	if len(body) < PacketFooterSize {
		return nil, DecodeError{Message: fmt.Sprintf("truncated packet body: %d bytes, want at least %d", len(body), PacketFooterSize)}
	}
	if !bytes.Equal(body[len(body)-4:], footerMagic[:]) {
		return nil, DecodeError{Message: fmt.Sprintf("bad packet footer magic % x", body[len(body)-4:])}
	}

	state := newDecodeState(opts)
	fieldData := body[:len(body)-PacketFooterSize]
	fields, err := decodeFields(fieldData, state)
	if err != nil {
		return nil, err
	}
	log.Debugf("wire: decoded packet %s id=%d (%d fields)", h.Type, h.ID, len(fields))
	return &Packet{
		Type:      h.Type,
		ID:        h.ID,
		Timestamp: h.Timestamp,
		Info:      h.Info,
		Fields:    fields,
	}, nil
}

// DecodePacket parses a complete, already-buffered packet (spec
// §4.2). buf must contain at least the full packet as reported by its
// own size field.
func DecodePacket(buf []byte, opts DecodeOptions) (*Packet, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	totalSize := PacketHeaderSize + h.BodySize
	if len(buf) < totalSize {
		return nil, DecodeError{Message: fmt.Sprintf("buffer too short: %d bytes, want %d", len(buf), totalSize)}
	}
	return FinishDecode(h, buf[PacketHeaderSize:totalSize], opts)
}

// timeToWire splits t into Unix seconds and nanoseconds, truncated to
// microsecond resolution on encode (spec §3 Timestamp) and always
// expressed in UTC.
func timeToWire(t time.Time) (seconds, nanoseconds uint32) {
	u := t.UTC()
	micros := u.Nanosecond() / 1000
	return uint32(u.Unix()), uint32(micros * 1000)
}

// wireToTime reassembles a UTC timestamp from wire seconds and
// nanoseconds. Microsecond resolution is sufficient on decode (spec
// §3).
func wireToTime(seconds, nanoseconds uint32) time.Time {
	return time.Unix(int64(seconds), int64(nanoseconds)).UTC()
}
