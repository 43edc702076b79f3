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

package client

import (
	"context"
	"net"
	"time"

	"github.com/crfs/ncp/ncpconn"
	"github.com/crfs/ncp/ncpconn/ncpstats"
	"github.com/crfs/ncp/wire"
)

// DefaultPort is the TCP port an NCP server listens on absent other
// configuration (spec §6).
const DefaultPort = wire.DefaultPort

// DefaultDialTimeout bounds how long Connect waits for the TCP
// handshake before giving up.
const DefaultDialTimeout = 10 * time.Second

type options struct {
	ncpconn.Options
	dialTimeout time.Duration
	autoAuth    bool
	respond     ncpconn.AuthResponder
}

func defaultOptions() options {
	return options{
		Options:     ncpconn.DefaultOptions(),
		dialTimeout: DefaultDialTimeout,
		autoAuth:    true,
		respond:     func(nonce string) (string, error) { return nonce, nil },
	}
}

// Option configures Connect.
type Option func(*options)

// WithReadTimeout overrides how long Recv/RecvField wait for a packet
// before the connection fails with NetworkTimeout.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) { o.ReadTimeout = d }
}

// WithSendTimeout overrides how long a Send/SendPacket write may block.
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) { o.SendTimeout = d }
}

// WithDialTimeout overrides how long the initial TCP dial may take.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithWarnFunc overrides how DecodeWarning/CommandWarning are
// reported; the default logs them at logrus.Warn.
func WithWarnFunc(fn wire.WarnFunc) Option {
	return func(o *options) { o.Warn = fn }
}

// WithStats installs a counter sink for the connection (spec §4.3
// supplement); the default accumulates in-memory only.
func WithStats(r ncpstats.Recorder) Option {
	return func(o *options) { o.Stats = r }
}

// WithAuthResponder overrides how the client computes its response to
// the server's LINK SCAR nonce. The default echoes the nonce back
// unmodified, which only satisfies a server configured to accept it.
func WithAuthResponder(respond ncpconn.AuthResponder) Option {
	return func(o *options) { o.respond = respond }
}

// WithoutAuth skips the CCRE/SCAR/CARE/SCON exchange entirely, leaving
// the connection Ready as soon as LINK HELO completes. Only useful
// against a server configured the same way.
func WithoutAuth() Option {
	return func(o *options) { o.autoAuth = false }
}

// Connect dials addr, completes the LINK handshake as identity, and
// returns a Connection in the Ready state (spec §4.4).
func Connect(ctx context.Context, addr string, identity string, opts ...Option) (*ncpconn.Connection, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dialer := net.Dialer{Timeout: o.dialTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ncpconn.NetworkError{Op: "dial", Err: err}
	}

	c := ncpconn.New(raw, ncpconn.RoleClient, o.Options)
	if err := ncpconn.ClientHandshake(ctx, c, identity, o.autoAuth, o.respond); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
