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

package server

import (
	"context"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/crfs/ncp/ncpconn"
	"github.com/crfs/ncp/ncpconn/ncpstats"
	"github.com/crfs/ncp/wire"
)

// DefaultPort is the TCP port an NCP server listens on absent other
// configuration (spec §6).
const DefaultPort = wire.DefaultPort

type options struct {
	ncpconn.Options
	autoLink bool
	validate ncpconn.AuthValidator
}

func defaultOptions() options {
	return options{
		Options:  ncpconn.DefaultOptions(),
		autoLink: true,
		validate: func(identity, response string) error { return nil },
	}
}

// Option configures Serve.
type Option func(*options)

// WithReadTimeout overrides how long Recv/RecvField wait for a packet
// on each accepted connection before it fails with NetworkTimeout.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) { o.ReadTimeout = d }
}

// WithSendTimeout overrides how long a Send/SendPacket write on an
// accepted connection may block.
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) { o.SendTimeout = d }
}

// WithStats installs a counter sink shared by every accepted
// connection (spec §4.3 supplement).
func WithStats(r ncpstats.Recorder) Option {
	return func(o *options) { o.Stats = r }
}

// WithWarnFunc overrides how DecodeWarning/CommandWarning are
// reported; the default logs them at logrus.Warn.
func WithWarnFunc(fn wire.WarnFunc) Option {
	return func(o *options) { o.Warn = fn }
}

// WithAuthValidator overrides how the server validates a client's
// declared identity and authentication response. The default accepts
// every client unconditionally.
func WithAuthValidator(validate ncpconn.AuthValidator) Option {
	return func(o *options) { o.validate = validate }
}

// WithoutAutoLink disables the server's automatic LINK HELO reply,
// for callers that want to send it themselves before ServerHandshake
// resumes driving the exchange.
func WithoutAutoLink() Option {
	return func(o *options) { o.autoLink = false }
}

// Server accepts NCP connections on a single listener, handshaking
// each before handing it to the configured handler, mirroring the
// corpus's accept-loop-plus-per-connection-goroutine shape
// (responder/server.Server generalized from UDP workers to per-TCP-
// connection goroutines).
type Server struct {
	ln      net.Listener
	handler func(*ncpconn.Connection)
	opts    options

	stopped   chan struct{}
	closeOnce sync.Once
}

// Serve starts listening on addr and returns immediately; connections
// are accepted and handshaken on background goroutines until Close is
// called or ctx is done (spec §4.4).
func Serve(ctx context.Context, addr string, handler func(*ncpconn.Connection), opts ...Option) (*Server, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &ncpconn.NetworkError{Op: "listen", Err: err}
	}

	s := &Server{
		ln:      ln,
		handler: handler,
		opts:    o,
		stopped: make(chan struct{}),
	}
	go s.acceptLoop(ctx)
	return s, nil
}

// Addr reports the listener's bound address, useful when addr was
// passed as "host:0" to let the OS choose a port.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

func (s *Server) acceptLoop(ctx context.Context) {
	defer close(s.stopped)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.ln.Close()
		case <-s.stopped:
		}
	}()

	for {
		raw, err := s.ln.Accept()
		if err != nil {
			log.Debugf("server: accept loop stopped: %v", err)
			return
		}
		go s.handle(raw)
	}
}

func (s *Server) handle(raw net.Conn) {
	c := ncpconn.New(raw, ncpconn.RoleServer, s.opts.Options)
	if err := ncpconn.ServerHandshake(context.Background(), c, s.opts.autoLink, s.opts.validate); err != nil {
		log.Warnf("server: handshake with %s failed: %v", raw.RemoteAddr(), err)
		return
	}
	s.handler(c)
}

// Close stops accepting new connections. It does not forcibly close
// connections already handed to the handler; callers that need those
// torn down should have their handler return once its Connection
// observes a terminal state.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.ln.Close() })
	<-s.stopped
	return err
}
