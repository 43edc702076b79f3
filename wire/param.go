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
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ParamHeaderSize is the fixed portion of a parameter: name[4] +
// size-in-words[3] + type tag[1].
const ParamHeaderSize = 8

// Param is a named, typed value carried by a Field.
type Param struct {
	Name  string
	Value Value
}

// encodeParam serializes p into its wire form: header, value payload,
// then zero padding to the next 4-byte boundary.
func encodeParam(p Param) ([]byte, error) {
	nameID, err := EncodeIdentifier(p.Name)
	if err != nil {
		return nil, fmt.Errorf("wire: param name: %w", err)
	}
	tag, payload, err := EncodeValue(p.Value)
	if err != nil {
		return nil, fmt.Errorf("wire: param %q: %w", p.Name, err)
	}
	size := ParamHeaderSize + len(payload)
	padding := (4 - size%4) % 4
	out := make([]byte, size+padding)
	copy(out[0:4], nameID[:])
	putUint24LE(out[4:7], uint32((size+padding)/4))
	out[7] = byte(tag)
	copy(out[8:], payload)
	return out, nil
}

// decodeParams parses a field's parameter list from data (the field
// body, with the field header already stripped), tolerating the Axis
// embedded-footer quirk (spec §4.2).
func decodeParams(data []byte, opts *decodeState) ([]Param, error) {
	var params []Param
	offset := 0
	for offset < len(data) {
		if offset+8 <= len(data) && bytes.Equal(data[offset:offset+8], footerNoChecksum[:]) {
			opts.warn(DecodeWarning{Message: "encountered embedded packet footer bug (Axis quirk)"})
			offset += 8
			continue
		}
		if offset+ParamHeaderSize > len(data) {
			return nil, DecodeError{Message: fmt.Sprintf("truncated parameter header at offset %d", offset)}
		}
		name := DecodeIdentifier(data[offset : offset+4])
		sizeWords := getUint24LE(data[offset+4 : offset+7])
		tag := Tag(data[offset+7])
		paramSize := int(sizeWords) * 4
		if paramSize < ParamHeaderSize {
			return nil, DecodeError{Message: fmt.Sprintf("parameter %q has implausible size %d", name, paramSize)}
		}
		limit := offset + paramSize
		if limit > len(data) {
			return nil, DecodeError{Message: fmt.Sprintf("parameter %q overflows field by %d bytes", name, limit-len(data))}
		}
		payload := data[offset+ParamHeaderSize : limit]
		var value Value
		if opts.raw {
			value = RawParamValue{RawTag: tag, Bytes: append([]byte(nil), payload...)}
		} else {
			if tag == TagString {
				if nul := bytes.IndexByte(payload, 0x00); nul >= 0 {
					payload = payload[:nul]
				}
			}
			value = DecodeValue(tag, payload)
		}
		log.Debugf("wire: decoded param %s (%d bytes, tag %s)", name, paramSize, tag)
		params = append(params, Param{Name: name, Value: value})
		offset = limit
	}
	return params, nil
}

func putUint24LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func getUint24LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
