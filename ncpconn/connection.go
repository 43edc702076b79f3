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
	"io"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/crfs/ncp/ncpconn/ncpstats"
	"github.com/crfs/ncp/wire"
)

// State is a Connection's position in its lifecycle (spec §4.3).
type State int32

// Connection states, in the order a healthy connection passes through
// them.
const (
	StateNew State = iota
	StateHandshaking
	StateReady
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Role distinguishes which side of the handshake a Connection plays;
// it affects nothing in the wire format, only logging and which party
// drives the handshake.
type Role int

// The two connection roles.
const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// transport is what a Connection needs from its byte stream. net.Conn
// satisfies it; the optional deadline methods are detected with a type
// assertion so read_timeout/send_timeout can be enforced when the
// underlying transport supports them.
type transport interface {
	io.Reader
	io.Writer
	io.Closer
}

type deadlineSetter interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// Options configures a Connection. See client.Option / server.Option
// for the public constructors that populate this.
type Options struct {
	RemoteHostname string
	ReadTimeout    time.Duration
	SendTimeout    time.Duration
	Warn           wire.WarnFunc
	Stats          ncpstats.Recorder
}

// DefaultOptions mirrors spec §4.4's recognized option defaults.
func DefaultOptions() Options {
	return Options{
		ReadTimeout: 60 * time.Second,
		SendTimeout: 30 * time.Second,
	}
}

// Connection is a single NCP duplex stream: one background goroutine
// reads and demultiplexes incoming packets while Send/SendPacket
// serialize outgoing writes under a mutex, mirroring the
// lock-write-read shape of the teacher's chrony.Client and
// control.NTPClient, generalized from one request per round trip to a
// continuous read loop with a waiter registry.
type Connection struct {
	transport  transport
	role       Role
	remoteName string

	readTimeout time.Duration
	sendTimeout time.Duration
	warn        wire.WarnFunc
	stats       ncpstats.Recorder
	rtt         *rttTracker

	writeMu sync.Mutex
	nextID  uint32

	stateMu sync.Mutex
	state   State
	failErr error

	waiters   *registry
	done      chan struct{}
	closeOnce sync.Once
}

// New wraps t in a Connection in the New state. Callers normally reach
// a ready Connection through client.Connect or server.Serve, which run
// the handshake and call Start once it succeeds.
func New(t io.ReadWriteCloser, role Role, opts Options) *Connection {
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.SendTimeout == 0 {
		opts.SendTimeout = 30 * time.Second
	}
	if opts.Warn == nil {
		opts.Warn = func(w error) { log.Warn(w) }
	}
	if opts.Stats == nil {
		opts.Stats = ncpstats.NewCounters()
	}
	userWarn := opts.Warn
	stats := opts.Stats
	countingWarn := func(w error) {
		if _, ok := w.(wire.DecodeWarning); ok {
			stats.IncDecodeWarnings()
		}
		userWarn(w)
	}
	c := &Connection{
		transport:   t,
		role:        role,
		remoteName:  opts.RemoteHostname,
		readTimeout: opts.ReadTimeout,
		sendTimeout: opts.SendTimeout,
		warn:        countingWarn,
		stats:       stats,
		rtt:         newRTTTracker(),
		waiters:     newRegistry(),
		done:        make(chan struct{}),
		state:       StateNew,
	}
	go c.readLoop()
	return c
}

// State reports the connection's current lifecycle state.
func (c *Connection) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Connection) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// Start transitions the connection to Ready. The background reader is
// already running by this point (New launches it immediately, since
// the handshake itself is driven by RecvField/Send like any other
// traffic); Start just marks the handshake as complete.
func (c *Connection) Start() {
	c.setState(StateReady)
}

// RTTStats reports the running mean and standard deviation of
// send_and_recv round-trip latency observed so far.
func (c *Connection) RTTStats() (mean, stddev time.Duration) {
	return c.rtt.stats()
}

// Stats exposes the connection's counters.
func (c *Connection) Stats() ncpstats.Recorder { return c.stats }

// Send encodes and writes a packet with a fresh, monotonically
// increasing id, returning that id for correlation (spec §4.3).
func (c *Connection) Send(packetType string, fields []wire.Field) (uint32, error) {
	id := atomic.AddUint32(&c.nextID, 1)
	return id, c.SendPacket(packetType, id, fields)
}

// SendPacket writes a packet with a caller-chosen id, used for replies
// that must echo the request's id (spec §4.3).
func (c *Connection) SendPacket(packetType string, packetID uint32, fields []wire.Field) error {
	buf, err := wire.EncodePacket(wire.Packet{
		Type:      packetType,
		ID:        packetID,
		Timestamp: time.Now().UTC(),
		Fields:    fields,
	})
	if err != nil {
		return fmt.Errorf("ncpconn: encode %s: %w", packetType, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if ds, ok := c.transport.(deadlineSetter); ok && c.sendTimeout > 0 {
		_ = ds.SetWriteDeadline(time.Now().Add(c.sendTimeout))
	}
	if _, err := c.transport.Write(buf); err != nil {
		var writeErr error = &NetworkError{Op: "write", Err: err}
		if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
			writeErr = &NetworkTimeout{Op: "write"}
		}
		c.fail(writeErr)
		return writeErr
	}
	c.stats.IncPacketsSent()
	log.Debugf("ncpconn[%s/%s]: sent %s id=%d (%d fields)", c.role, c.remoteName, packetType, packetID, len(fields))
	return nil
}

// Recv returns the next field not claimed by a more specific waiter,
// in wire order, suspending until one arrives (spec §4.3). When the
// connection closes or fails with fields still buffered, those fields
// are delivered first; ConnectionClosed (or the failure error) is only
// returned once the buffer is drained.
func (c *Connection) Recv(ctx context.Context) (*Field, error) {
	select {
	case f := <-c.waiters.general:
		return checkCommandError(f)
	default:
	}
	select {
	case f := <-c.waiters.general:
		return checkCommandError(f)
	case err := <-c.waiters.generalOverflow:
		return nil, err
	case <-c.done:
		select {
		case f := <-c.waiters.general:
			return checkCommandError(f)
		default:
		}
		return nil, c.failureError()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func checkCommandError(f *Field) (*Field, error) {
	if cmdErr := f.commandError(); cmdErr != nil {
		return f, cmdErr
	}
	return f, nil
}

// RecvField returns the next field matching packetType and fieldName,
// skipping (and still delivering to other waiters) anything that
// doesn't match (spec §4.3).
func (c *Connection) RecvField(ctx context.Context, packetType, fieldName string) (*Field, error) {
	w := newWaiter(func(f *Field) bool {
		return f.PacketType == packetType && f.Name == fieldName
	})
	if err := c.waiters.register(w); err != nil {
		return nil, err
	}
	select {
	case f := <-w.field:
		if cmdErr := f.commandError(); cmdErr != nil {
			return f, cmdErr
		}
		return f, nil
	case err := <-w.err:
		return nil, err
	case <-ctx.Done():
		c.waiters.unregister(w)
		return nil, ctx.Err()
	}
}

// Response is the per-field iterator returned by SendAndRecv,
// correlating inbound fields to the packet id of the request that
// created it (spec §4.3, §6).
type Response struct {
	conn       *Connection
	packetType string
	packetID   uint32
	sentAt     time.Time
	firstSeen  bool
}

// Next blocks for the next field whose packet id matches the request,
// folding the elapsed time since the request was sent into the
// connection's RTT stats on the first field observed.
func (r *Response) Next(ctx context.Context) (*Field, error) {
	w := newWaiter(func(f *Field) bool { return f.PacketID == r.packetID })
	if err := r.conn.waiters.register(w); err != nil {
		return nil, err
	}
	select {
	case f := <-w.field:
		if !r.firstSeen {
			r.firstSeen = true
			r.conn.rtt.observe(time.Since(r.sentAt))
		}
		if cmdErr := f.commandError(); cmdErr != nil {
			return f, cmdErr
		}
		return f, nil
	case err := <-w.err:
		return nil, err
	case <-ctx.Done():
		r.conn.waiters.unregister(w)
		return nil, ctx.Err()
	}
}

// SendAndRecv sends one packet and returns an iterator over the
// fields the peer sends back correlated by packet id (spec §4.3).
func (c *Connection) SendAndRecv(ctx context.Context, packetType string, fields []wire.Field) (*Response, error) {
	id, err := c.Send(packetType, fields)
	if err != nil {
		return nil, err
	}
	return &Response{conn: c, packetType: packetType, packetID: id, sentAt: time.Now()}, nil
}

// Close transitions the connection to Closing, then Closed, and closes
// the underlying transport. Pending waiters observe ConnectionClosed.
// A connection that has already failed keeps its Failed state and its
// failure error; Close then only closes the transport.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.stateMu.Lock()
		if c.state != StateClosed && c.state != StateFailed {
			c.state = StateClosing
		}
		c.stateMu.Unlock()
		c.finish(StateClosed, &ConnectionClosed{})
		err = c.transport.Close()
	})
	return err
}

func (c *Connection) fail(err error) {
	c.finish(StateFailed, err)
}

func (c *Connection) finish(state State, err error) {
	c.stateMu.Lock()
	if c.state == StateClosed || c.state == StateFailed {
		c.stateMu.Unlock()
		return
	}
	c.state = state
	c.failErr = err
	c.stateMu.Unlock()

	c.waiters.fail(err)
	close(c.done)
}

func (c *Connection) failureError() error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.failErr != nil {
		return c.failErr
	}
	return &ConnectionClosed{}
}

// readLoop is the single background goroutine that owns the
// transport's read side: it parses packets with the wire package's
// two-phase decode and dispatches every field to the waiter registry.
// No two goroutines ever touch codec state concurrently.
func (c *Connection) readLoop() {
	header := make([]byte, wire.PacketHeaderSize)
	for {
		if ds, ok := c.transport.(deadlineSetter); ok && c.readTimeout > 0 {
			_ = ds.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		if _, err := io.ReadFull(c.transport, header); err != nil {
			classified := classifyReadError(err)
			if _, ok := classified.(*NetworkTimeout); ok {
				c.stats.IncTimeouts()
			}
			c.fail(classified)
			return
		}
		h, err := wire.DecodeHeader(header)
		if err != nil {
			c.fail(err)
			return
		}
		body := make([]byte, h.BodySize)
		if ds, ok := c.transport.(deadlineSetter); ok && c.readTimeout > 0 {
			_ = ds.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		if _, err := io.ReadFull(c.transport, body); err != nil {
			classified := classifyReadError(err)
			if _, ok := classified.(*NetworkTimeout); ok {
				c.stats.IncTimeouts()
			}
			c.fail(classified)
			return
		}
		packet, err := wire.FinishDecode(h, body, wire.DecodeOptions{Warn: c.warn})
		if err != nil {
			c.fail(err)
			return
		}
		c.stats.IncPacketsReceived()
		log.Debugf("ncpconn[%s/%s]: received %s id=%d (%d fields)", c.role, c.remoteName, packet.Type, packet.ID, len(packet.Fields))

		for _, wf := range packet.Fields {
			f := &Field{
				Name:       wf.Name,
				PacketType: packet.Type,
				PacketID:   packet.ID,
				Timestamp:  packet.Timestamp,
				Info:       packet.Info,
				Params:     wf.Params,
				conn:       c,
			}
			if cw := f.commandWarning(); cw != nil {
				c.stats.IncCommandWarnings()
				c.warn(cw)
			}
			if f.commandError() != nil {
				c.stats.IncCommandErrors()
			}
			c.stats.IncFieldsRouted()
			c.waiters.dispatch(f)
		}
	}
}

func classifyReadError(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &ConnectionClosed{}
	}
	if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
		return &NetworkTimeout{Op: "read"}
	}
	return &NetworkError{Op: "read", Err: err}
}
