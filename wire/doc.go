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

// Package wire implements the NCP (Node Communication Protocol) binary
// frame: identifiers, typed parameter values, parameters, fields, and
// the packet envelope that carries them.
//
// A packet is a self-contained value: header, an ordered list of
// fields each carrying an ordered list of named parameters, and a
// fixed footer. Every length-prefixed element is word-aligned (4
// bytes) and NUL-padded. See Packet, Field and Param for the decoded
// shapes, and EncodePacket/DecodePacket for the wire conversion.
package wire
