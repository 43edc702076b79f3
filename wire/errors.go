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

// DecodeError is a fatal framing error: bad magic, truncated buffer,
// or a field/param whose size overflows its container (spec §4.2,
// §7). A connection that encounters one must treat it as poisoning
// the whole stream.
type DecodeError struct {
	Message string
}

func (e DecodeError) Error() string { return "wire: decode: " + e.Message }

// DecodeWarning is raised for a non-fatal anomaly: an unrecognized
// packet format version, or the Axis embedded-footer quirk. Decoding
// continues; the warning is delivered through the WarnFunc hook (spec
// §4.2, §7).
type DecodeWarning struct {
	Message string
}

func (e DecodeWarning) Error() string { return "wire: warning: " + e.Message }
