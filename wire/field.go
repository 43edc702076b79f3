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
	"encoding/binary"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// FieldHeaderSize is the fixed portion of a field: name[4] +
// size-in-words[3] + reserved type[1] + field id[4].
const FieldHeaderSize = 12

// Field is a named, id-bearing container of parameters within a
// packet.
type Field struct {
	Name   string
	ID     uint32
	Params []Param
}

// Get returns the value of the last parameter named name, matching
// the "duplicate names keep the last value" rule (spec §3, §9).
func (f Field) Get(name string) (Value, bool) {
	for i := len(f.Params) - 1; i >= 0; i-- {
		if f.Params[i].Name == name {
			return f.Params[i].Value, true
		}
	}
	return nil, false
}

func encodeField(f Field) ([]byte, error) {
	nameID, err := EncodeIdentifier(f.Name)
	if err != nil {
		return nil, fmt.Errorf("wire: field name: %w", err)
	}
	header := make([]byte, FieldHeaderSize)
	copy(header[0:4], nameID[:])
	header[7] = 0 // reserved type, always zero on encode
	binary.LittleEndian.PutUint32(header[8:12], f.ID)

	body := header
	for _, p := range f.Params {
		paramBytes, err := encodeParam(p)
		if err != nil {
			return nil, fmt.Errorf("wire: field %q: %w", f.Name, err)
		}
		body = append(body, paramBytes...)
	}
	putUint24LE(body[4:7], uint32(len(body)/4))
	return body, nil
}

// decodeFields parses the packet body (footer already excluded) into
// an ordered list of fields.
func decodeFields(data []byte, opts *decodeState) ([]Field, error) {
	var fields []Field
	offset := 0
	for offset < len(data) {
		if offset+FieldHeaderSize > len(data) {
			return nil, DecodeError{Message: fmt.Sprintf("truncated field header at offset %d", offset)}
		}
		name := DecodeIdentifier(data[offset : offset+4])
		sizeWords := getUint24LE(data[offset+4 : offset+7])
		fieldSize := int(sizeWords) * 4
		if fieldSize < FieldHeaderSize {
			return nil, DecodeError{Message: fmt.Sprintf("field %q has implausible size %d", name, fieldSize)}
		}
		limit := offset + fieldSize
		if limit > len(data) {
			return nil, DecodeError{Message: fmt.Sprintf("field %q overflows packet by %d bytes", name, limit-len(data))}
		}
		id := binary.LittleEndian.Uint32(data[offset+8 : offset+12])
		params, err := decodeParams(data[offset+FieldHeaderSize:limit], opts)
		if err != nil {
			return nil, err
		}
		log.Debugf("wire: decoded field %s id=%d (%d bytes, %d params)", name, id, fieldSize, len(params))
		fields = append(fields, Field{Name: name, ID: id, Params: params})
		offset = limit
	}
	return fields, nil
}
