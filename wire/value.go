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
	"math"
)

// Tag identifies the on-wire shape of a Value.
type Tag byte

// Wire type tags, see spec §3.
const (
	TagInt32      Tag = 0x00
	TagUint32     Tag = 0x01
	TagString     Tag = 0x02
	TagRaw        Tag = 0x80
	TagUint8Array Tag = 0x81
	TagUint16Array Tag = 0x82
	TagUint32Array Tag = 0x83
	TagInt8Array  Tag = 0x84
	TagInt16Array Tag = 0x85
	TagInt32Array Tag = 0x86
)

func (t Tag) String() string {
	switch t {
	case TagInt32:
		return "i32"
	case TagUint32:
		return "u32"
	case TagString:
		return "string"
	case TagRaw:
		return "raw"
	case TagUint8Array:
		return "u8array"
	case TagUint16Array:
		return "u16array"
	case TagUint32Array:
		return "u32array"
	case TagInt8Array:
		return "i8array"
	case TagInt16Array:
		return "i16array"
	case TagInt32Array:
		return "i32array"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// Value is a typed NCP parameter value: one of the concrete types
// declared in this file, or UnknownValue for a tag this codec doesn't
// understand.
type Value interface {
	// Tag reports the wire type tag for this value.
	Tag() Tag
	// encode returns the unpadded wire payload (everything after the
	// 1-byte type tag, before word-alignment padding is applied).
	encode() []byte
}

// Int32Value is a signed 32-bit integer parameter.
type Int32Value int32

// Tag implements Value.
func (Int32Value) Tag() Tag { return TagInt32 }

func (v Int32Value) encode() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

// Uint32Value is an unsigned 32-bit integer parameter.
type Uint32Value uint32

// Tag implements Value.
func (Uint32Value) Tag() Tag { return TagUint32 }

func (v Uint32Value) encode() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

// Int returns v as an int64, combining Int32Value and Uint32Value so
// callers don't need a type switch for the common case of "just give
// me the number".
func Int(v Value) (int64, bool) {
	switch vv := v.(type) {
	case Int32Value:
		return int64(vv), true
	case Uint32Value:
		return int64(vv), true
	default:
		return 0, false
	}
}

// NewInt picks Int32Value or Uint32Value for n depending on whether it
// fits in a signed 32-bit range, matching spec §4.1's encode_value
// dispatch rule ("integers that fit in signed 32-bit use i32;
// integers that need unsigned 32-bit use u32").
func NewInt(n int64) (Value, error) {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return Int32Value(n), nil
	}
	if n >= 0 && n <= math.MaxUint32 {
		return Uint32Value(n), nil
	}
	return nil, fmt.Errorf("wire: %d does not fit in a 32-bit parameter", n)
}

// StringValue is a Latin-1 string parameter, NUL-terminated on the
// wire.
type StringValue string

// Tag implements Value.
func (StringValue) Tag() Tag { return TagString }

func (v StringValue) encode() []byte {
	b := make([]byte, len(v)+1)
	copy(b, v)
	return b
}

// RawValue is an opaque byte-string parameter (tag 0x80).
type RawValue []byte

// Tag implements Value.
func (RawValue) Tag() Tag { return TagRaw }

func (v RawValue) encode() []byte { return []byte(v) }

// Uint8ArrayValue is a packed array of unsigned 8-bit integers.
type Uint8ArrayValue []uint8

// Tag implements Value.
func (Uint8ArrayValue) Tag() Tag { return TagUint8Array }

func (v Uint8ArrayValue) encode() []byte { return []byte(v) }

// Int8ArrayValue is a packed array of signed 8-bit integers.
type Int8ArrayValue []int8

// Tag implements Value.
func (Int8ArrayValue) Tag() Tag { return TagInt8Array }

func (v Int8ArrayValue) encode() []byte {
	b := make([]byte, len(v))
	for i, e := range v {
		b[i] = byte(e)
	}
	return b
}

// Uint16ArrayValue is a packed little-endian array of unsigned 16-bit
// integers.
type Uint16ArrayValue []uint16

// Tag implements Value.
func (Uint16ArrayValue) Tag() Tag { return TagUint16Array }

func (v Uint16ArrayValue) encode() []byte {
	b := make([]byte, len(v)*2)
	for i, e := range v {
		binary.LittleEndian.PutUint16(b[i*2:], e)
	}
	return b
}

// Int16ArrayValue is a packed little-endian array of signed 16-bit
// integers.
type Int16ArrayValue []int16

// Tag implements Value.
func (Int16ArrayValue) Tag() Tag { return TagInt16Array }

func (v Int16ArrayValue) encode() []byte {
	b := make([]byte, len(v)*2)
	for i, e := range v {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(e))
	}
	return b
}

// Uint32ArrayValue is a packed little-endian array of unsigned 32-bit
// integers.
type Uint32ArrayValue []uint32

// Tag implements Value.
func (Uint32ArrayValue) Tag() Tag { return TagUint32Array }

func (v Uint32ArrayValue) encode() []byte {
	b := make([]byte, len(v)*4)
	for i, e := range v {
		binary.LittleEndian.PutUint32(b[i*4:], e)
	}
	return b
}

// Int32ArrayValue is a packed little-endian array of signed 32-bit
// integers.
type Int32ArrayValue []int32

// Tag implements Value.
func (Int32ArrayValue) Tag() Tag { return TagInt32Array }

func (v Int32ArrayValue) encode() []byte {
	b := make([]byte, len(v)*4)
	for i, e := range v {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(e))
	}
	return b
}

// UnknownValue preserves a parameter whose type tag this codec does
// not recognize. It is never dropped on decode (spec §4.1).
type UnknownValue struct {
	RawTag Tag
	Bytes  []byte
}

// Tag implements Value.
func (v UnknownValue) Tag() Tag { return v.RawTag }

func (v UnknownValue) encode() []byte { return v.Bytes }

// RawParamValue wraps a parameter's wire tag and undecoded payload
// bytes. It is produced instead of a decoded Value when a decode is
// performed with DecodeOptions.Raw set (spec §4.2) — used when the
// caller wants to forward a packet without reinterpreting its
// parameters, mirroring ncplib's RawParamValue.
type RawParamValue struct {
	RawTag Tag
	Bytes  []byte
}

// Tag implements Value.
func (v RawParamValue) Tag() Tag { return v.RawTag }

func (v RawParamValue) encode() []byte { return v.Bytes }

// EncodeValue returns the wire tag and unpadded payload for v. Padding
// to the next 4-byte boundary is the caller's responsibility (done by
// the param/field encoder, which needs to know the unpadded length to
// compute size-in-words).
func EncodeValue(v Value) (Tag, []byte, error) {
	if v == nil {
		return 0, nil, fmt.Errorf("wire: nil parameter value")
	}
	return v.Tag(), v.encode(), nil
}

// DecodeValue decodes a parameter payload given its wire tag. Unknown
// tags are never an error: the value comes back as UnknownValue so
// that callers forwarding traffic never silently drop data (spec
// §4.1, §4.2 raw/forward path).
func DecodeValue(tag Tag, data []byte) Value {
	switch tag {
	case TagInt32:
		if len(data) < 4 {
			return UnknownValue{RawTag: tag, Bytes: data}
		}
		return Int32Value(int32(binary.LittleEndian.Uint32(data)))
	case TagUint32:
		if len(data) < 4 {
			return UnknownValue{RawTag: tag, Bytes: data}
		}
		return Uint32Value(binary.LittleEndian.Uint32(data))
	case TagString:
		// The string ends at the first NUL: the terminator and any
		// padding after it are dropped.
		if nul := bytes.IndexByte(data, 0x00); nul >= 0 {
			data = data[:nul]
		}
		return StringValue(data)
	case TagRaw:
		return RawValue(append([]byte(nil), data...))
	case TagUint8Array:
		return Uint8ArrayValue(append([]byte(nil), data...))
	case TagInt8Array:
		out := make([]int8, len(data))
		for i, b := range data {
			out[i] = int8(b)
		}
		return Int8ArrayValue(out)
	case TagUint16Array:
		out := make([]uint16, len(data)/2)
		for i := range out {
			out[i] = binary.LittleEndian.Uint16(data[i*2:])
		}
		return Uint16ArrayValue(out)
	case TagInt16Array:
		out := make([]int16, len(data)/2)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
		}
		return Int16ArrayValue(out)
	case TagUint32Array:
		out := make([]uint32, len(data)/4)
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
		return Uint32ArrayValue(out)
	case TagInt32Array:
		out := make([]int32, len(data)/4)
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return Int32ArrayValue(out)
	default:
		return UnknownValue{RawTag: tag, Bytes: append([]byte(nil), data...)}
	}
}
