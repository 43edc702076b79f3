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

package ncpconn

import (
	"time"

	"github.com/crfs/ncp/wire"
)

// Reserved parameter names carrying field-level error/warning metadata
// (spec §4.3).
const (
	paramErrorCode    = "ERRC"
	paramErrorDetail  = "ERRO"
	paramWarningCode  = "WARC"
	paramWarningDetail = "WARN"
)

// Field is the view of a decoded wire field handed to consumers: the
// field itself plus the identifying context of the packet that carried
// it. It holds only a back reference to its connection, used for Ack
// and nothing else, so a Field never keeps the read loop's buffers
// alive longer than necessary.
type Field struct {
	Name       string
	PacketType string
	PacketID   uint32
	Timestamp  time.Time
	Info       [4]byte
	Params     []wire.Param

	conn *Connection
}

// Get returns the value of the last parameter named name (spec §3
// duplicate-name handling).
func (f *Field) Get(name string) (wire.Value, bool) {
	for i := len(f.Params) - 1; i >= 0; i-- {
		if f.Params[i].Name == name {
			return f.Params[i].Value, true
		}
	}
	return nil, false
}

// commandError reports the CommandError this field carries, if its
// ERRC parameter is present.
func (f *Field) commandError() *CommandError {
	codeVal, ok := f.Get(paramErrorCode)
	if !ok {
		return nil
	}
	code, _ := wire.Int(codeVal)
	detail, _ := f.Get(paramErrorDetail)
	detailStr, _ := detail.(wire.StringValue)
	return &CommandError{
		PacketType: f.PacketType,
		FieldName:  f.Name,
		Code:       uint32(code),
		Detail:     string(detailStr),
	}
}

// commandWarning reports the CommandWarning this field carries, if its
// WARC parameter is present.
func (f *Field) commandWarning() *CommandWarning {
	codeVal, ok := f.Get(paramWarningCode)
	if !ok {
		return nil
	}
	code, _ := wire.Int(codeVal)
	detail, _ := f.Get(paramWarningDetail)
	detailStr, _ := detail.(wire.StringValue)
	return &CommandWarning{
		PacketType: f.PacketType,
		FieldName:  f.Name,
		Code:       uint32(code),
		Detail:     string(detailStr),
	}
}

// Ack sends a LINK ACKN field correlated by this field's packet id,
// used by servers to acknowledge a client work item (spec §4.3).
func (f *Field) Ack() error {
	return f.conn.SendPacket("LINK", f.PacketID, []wire.Field{{Name: "ACKN"}})
}
