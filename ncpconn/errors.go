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

import "fmt"

// CommandError is raised to the caller correlated with a field that
// carried an ERRC parameter. The connection remains live; only the
// waiter for this packet id is affected.
type CommandError struct {
	PacketType string
	FieldName  string
	Code       uint32
	Detail     string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("ncpconn: %s/%s: command error %d: %s", e.PacketType, e.FieldName, e.Code, e.Detail)
}

// CommandWarning mirrors CommandError for fields carrying WARC; it is
// non-fatal and delivered through the connection's WarnFunc hook, not
// returned from a waiter.
type CommandWarning struct {
	PacketType string
	FieldName  string
	Code       uint32
	Detail     string
}

func (w *CommandWarning) Error() string {
	return fmt.Sprintf("ncpconn: %s/%s: command warning %d: %s", w.PacketType, w.FieldName, w.Code, w.Detail)
}

// AuthenticationError is raised by client.Connect or the server accept
// loop when the handshake's authentication exchange fails. The
// connection is closed before this error is returned.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string { return "ncpconn: authentication failed: " + e.Reason }

// NetworkError wraps a transport-level failure (read/write error other
// than timeout or clean close). The connection transitions to Failed
// and every current waiter observes this error.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("ncpconn: network error during %s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// NetworkTimeout is raised when no packet is received within the
// connection's configured read timeout, or a write exceeds the send
// timeout.
type NetworkTimeout struct {
	Op string
}

func (e *NetworkTimeout) Error() string { return "ncpconn: " + e.Op + " timed out" }

// ConnectionClosed is delivered to a waiter once the peer has closed
// cleanly and all buffered fields have been drained.
type ConnectionClosed struct{}

func (e *ConnectionClosed) Error() string { return "ncpconn: connection closed" }

// QueueOverflow fails a single waiter whose bounded mailbox filled up
// faster than it was drained. It does not affect the connection or any
// other waiter.
type QueueOverflow struct {
	Queue string
}

func (e *QueueOverflow) Error() string { return "ncpconn: " + e.Queue + " queue overflowed" }
