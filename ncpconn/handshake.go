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
	"context"
	"fmt"

	"github.com/crfs/ncp/wire"
)

// AuthResponder computes a client's authentication response from the
// server-issued nonce carried in LINK SCAR's SIW parameter. It is the
// handshake's pluggable predicate (spec §4.3): the core only enforces
// packet sequence and error handling around it.
type AuthResponder func(nonce string) (string, error)

// AuthValidator is the server-side counterpart: it accepts a client's
// declared identity and authentication response and decides whether to
// admit the connection.
type AuthValidator func(identity, response string) error

// ClientHandshake drives the client side of the LINK exchange over an
// already-started background reader: HELO/HELO, then, unless
// autoAuth is false, CCRE/SCAR/CARE/SCON (spec §4.3 "Client-driven").
func ClientHandshake(ctx context.Context, c *Connection, identity string, autoAuth bool, respond AuthResponder) error {
	c.setState(StateHandshaking)

	if _, err := c.Send("LINK", []wire.Field{{Name: "HELO"}}); err != nil {
		return err
	}
	if _, err := c.RecvField(ctx, "LINK", "HELO"); err != nil {
		return err
	}

	if !autoAuth {
		c.Start()
		return nil
	}

	if _, err := c.Send("LINK", []wire.Field{{
		Name:   "CCRE",
		Params: []wire.Param{{Name: "CIW", Value: wire.StringValue(identity)}},
	}}); err != nil {
		return err
	}
	scar, err := c.RecvField(ctx, "LINK", "SCAR")
	if err != nil {
		return err
	}
	nonceVal, _ := scar.Get("SIW")
	nonce, _ := nonceVal.(wire.StringValue)

	response, err := respond(string(nonce))
	if err != nil {
		return &AuthenticationError{Reason: err.Error()}
	}

	if _, err := c.Send("LINK", []wire.Field{{
		Name:   "CARE",
		Params: []wire.Param{{Name: "CIW", Value: wire.StringValue(response)}},
	}}); err != nil {
		return err
	}
	_, err = c.RecvField(ctx, "LINK", "SCON")
	if cmdErr, ok := err.(*CommandError); ok {
		return &AuthenticationError{Reason: fmt.Sprintf("server rejected with code %d: %s", cmdErr.Code, cmdErr.Detail)}
	}
	if err != nil {
		return err
	}

	c.Start()
	return nil
}

// ServerHandshake drives the server side: it replies to the client's
// initial LINK HELO (unless autoLink is false, in which case the
// caller is expected to have already sent one), then validates the
// CCRE/CARE exchange through validate, sending LINK SCON with ERRC set
// on rejection (spec §4.3 "Server-driven").
func ServerHandshake(ctx context.Context, c *Connection, autoLink bool, validate AuthValidator) error {
	c.setState(StateHandshaking)

	if _, err := c.RecvField(ctx, "LINK", "HELO"); err != nil {
		return err
	}
	if autoLink {
		if _, err := c.Send("LINK", []wire.Field{{Name: "HELO"}}); err != nil {
			return err
		}
	}

	ccre, err := c.RecvField(ctx, "LINK", "CCRE")
	if err != nil {
		return err
	}
	identityVal, _ := ccre.Get("CIW")
	identity, _ := identityVal.(wire.StringValue)

	nonce := issueNonce()
	if _, err := c.Send("LINK", []wire.Field{{
		Name:   "SCAR",
		Params: []wire.Param{{Name: "SIW", Value: wire.StringValue(nonce)}},
	}}); err != nil {
		return err
	}

	care, err := c.RecvField(ctx, "LINK", "CARE")
	if err != nil {
		return err
	}
	responseVal, _ := care.Get("CIW")
	response, _ := responseVal.(wire.StringValue)

	if err := validate(string(identity), string(response)); err != nil {
		_ = c.SendPacket("LINK", care.PacketID, []wire.Field{{
			Name: "SCON",
			Params: []wire.Param{
				{Name: "ERRC", Value: Int32(1)},
				{Name: "ERRO", Value: wire.StringValue(err.Error())},
			},
		}})
		_ = c.Close()
		return &AuthenticationError{Reason: err.Error()}
	}

	if _, err := c.Send("LINK", []wire.Field{{Name: "SCON"}}); err != nil {
		return err
	}

	c.Start()
	return nil
}

// Int32 is a small convenience wrapper so handshake code doesn't need
// to import wire.Int32Value directly for the common ERRC/WARC case.
func Int32(n int32) wire.Value { return wire.Int32Value(n) }

// issueNonce generates the server's authentication challenge. The
// concrete authentication scheme is an external collaborator (spec
// §4.3); this default is 16 bytes from crypto/rand, hex-encoded, with
// a process-wide counter appended so that no two nonces issued by the
// same process are equal.
func issueNonce() string {
	return nonceSource.next()
}
