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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crfs/ncp/wire"
)

// newConnPair returns a ready Connection backed by one end of a
// net.Pipe, plus the raw peer end for the test to drive directly.
func newConnPair(t *testing.T, opts Options) (*Connection, net.Conn) {
	t.Helper()
	local, peer := net.Pipe()
	c := New(local, RoleClient, opts)
	c.Start()
	t.Cleanup(func() { _ = c.Close() })
	return c, peer
}

func writePacket(t *testing.T, conn net.Conn, p wire.Packet) {
	t.Helper()
	buf, err := wire.EncodePacket(p)
	require.NoError(t, err)
	_, err = conn.Write(buf)
	require.NoError(t, err)
}

func TestSendPacket_WritesDecodablePacket(t *testing.T) {
	c, peer := newConnPair(t, DefaultOptions())

	done := make(chan wire.Packet, 1)
	go func() {
		header := make([]byte, wire.PacketHeaderSize)
		_, err := readFull(peer, header)
		require.NoError(t, err)
		h, err := wire.DecodeHeader(header)
		require.NoError(t, err)
		body := make([]byte, h.BodySize)
		_, err = readFull(peer, body)
		require.NoError(t, err)
		p, err := wire.FinishDecode(h, body, wire.DecodeOptions{})
		require.NoError(t, err)
		done <- *p
	}()

	id, err := c.Send("LINK", []wire.Field{{Name: "HELO"}})
	require.NoError(t, err)

	select {
	case p := <-done:
		assert.Equal(t, "LINK", p.Type)
		assert.Equal(t, id, p.ID)
		require.Len(t, p.Fields, 1)
		assert.Equal(t, "HELO", p.Fields[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for peer to observe the packet")
	}
}

func TestRecvField_MatchesPacketTypeAndName(t *testing.T) {
	c, peer := newConnPair(t, DefaultOptions())

	go writePacket(t, peer, wire.Packet{
		Type: "DATA",
		ID:   7,
		Fields: []wire.Field{
			{Name: "PING", Params: []wire.Param{{Name: "CIW", Value: wire.StringValue("x")}}},
		},
	})

	f, err := c.RecvField(context.Background(), "DATA", "PING")
	require.NoError(t, err)
	assert.Equal(t, "DATA", f.PacketType)
	assert.Equal(t, "PING", f.Name)
	assert.Equal(t, uint32(7), f.PacketID)
	v, ok := f.Get("CIW")
	require.True(t, ok)
	assert.Equal(t, wire.StringValue("x"), v)
}

func TestRecv_DeliversUnclaimedFieldsInOrder(t *testing.T) {
	c, peer := newConnPair(t, DefaultOptions())

	go writePacket(t, peer, wire.Packet{
		Type:   "DATA",
		ID:     1,
		Fields: []wire.Field{{Name: "FIRST"}, {Name: "SECOND"}},
	})

	ctx := context.Background()
	f1, err := c.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "FIRST", f1.Name)

	f2, err := c.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SECOND", f2.Name)
}

func TestSendAndRecv_CorrelatesByPacketID(t *testing.T) {
	c, peer := newConnPair(t, DefaultOptions())

	go func() {
		header := make([]byte, wire.PacketHeaderSize)
		_, _ = readFull(peer, header)
		h, err := wire.DecodeHeader(header)
		require.NoError(t, err)
		body := make([]byte, h.BodySize)
		_, _ = readFull(peer, body)
		req, err := wire.FinishDecode(h, body, wire.DecodeOptions{})
		require.NoError(t, err)

		writePacket(t, peer, wire.Packet{
			Type:   "DATA",
			ID:     req.ID,
			Fields: []wire.Field{{Name: "PONG"}},
		})
	}()

	resp, err := c.SendAndRecv(context.Background(), "DATA", []wire.Field{{Name: "PING"}})
	require.NoError(t, err)

	f, err := resp.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PONG", f.Name)

	mean, _ := c.RTTStats()
	assert.GreaterOrEqual(t, mean, time.Duration(0))
}

func TestCommandError_SurfacesFromERRCParam(t *testing.T) {
	c, peer := newConnPair(t, DefaultOptions())

	go writePacket(t, peer, wire.Packet{
		Type: "LINK",
		ID:   3,
		Fields: []wire.Field{{
			Name: "SCON",
			Params: []wire.Param{
				{Name: "ERRC", Value: wire.Int32Value(42)},
				{Name: "ERRO", Value: wire.StringValue("denied")},
			},
		}},
	})

	f, err := c.RecvField(context.Background(), "LINK", "SCON")
	require.Error(t, err)
	require.NotNil(t, f)
	cmdErr, ok := err.(*CommandError)
	require.True(t, ok)
	assert.Equal(t, uint32(42), cmdErr.Code)
	assert.Equal(t, "denied", cmdErr.Detail)
}

func TestCommandWarning_InvokesWarnHookAndStats(t *testing.T) {
	var warned []error
	opts := DefaultOptions()
	opts.Warn = func(w error) { warned = append(warned, w) }
	c, peer := newConnPair(t, opts)

	go writePacket(t, peer, wire.Packet{
		Type: "DATA",
		ID:   1,
		Fields: []wire.Field{{
			Name: "NOTE",
			Params: []wire.Param{
				{Name: "WARC", Value: wire.Int32Value(1)},
				{Name: "WARN", Value: wire.StringValue("deprecated field")},
			},
		}},
	})

	f, err := c.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NOTE", f.Name)

	require.Eventually(t, func() bool { return len(warned) == 1 }, time.Second, 10*time.Millisecond)
	cw, ok := warned[0].(*CommandWarning)
	require.True(t, ok)
	assert.Equal(t, "deprecated field", cw.Detail)

	snap := c.Stats().Snapshot()
	assert.Equal(t, int64(1), snap["command_warnings"])
	assert.Equal(t, int64(0), snap["command_errors"])
}

func TestClose_FailsPendingWaitersWithConnectionClosed(t *testing.T) {
	c, _ := newConnPair(t, DefaultOptions())

	errCh := make(chan error, 1)
	go func() {
		_, err := c.RecvField(context.Background(), "DATA", "NEVER")
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond) // let the goroutine register its waiter
	require.NoError(t, c.Close())

	select {
	case err := <-errCh:
		assert.IsType(t, &ConnectionClosed{}, err)
	case <-time.After(time.Second):
		t.Fatal("waiter never observed connection close")
	}
	assert.Equal(t, StateClosed, c.State())
}

func TestPeerHalfClose_DrainsBufferedFieldsThenConnectionClosed(t *testing.T) {
	c, peer := newConnPair(t, DefaultOptions())

	writePacket(t, peer, wire.Packet{
		Type:   "DATA",
		ID:     1,
		Fields: []wire.Field{{Name: "FIRST"}, {Name: "SECOND"}},
	})
	require.NoError(t, peer.Close())

	ctx := context.Background()
	f1, err := c.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "FIRST", f1.Name)

	f2, err := c.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SECOND", f2.Name)

	_, err = c.Recv(ctx)
	require.Error(t, err)
	assert.IsType(t, &ConnectionClosed{}, err)
	assert.Equal(t, StateFailed, c.State())
}

func TestReadTimeout_FailsConnectionAndWaiters(t *testing.T) {
	opts := DefaultOptions()
	opts.ReadTimeout = 30 * time.Millisecond
	c, _ := newConnPair(t, opts)

	_, err := c.RecvField(context.Background(), "DATA", "NEVER")
	require.Error(t, err)
	assert.IsType(t, &NetworkTimeout{}, err)
	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, int64(1), c.Stats().Snapshot()["timeouts"])
}

func TestQueueOverflow_FailsRecvWithoutBlockingReader(t *testing.T) {
	c, _ := newConnPair(t, DefaultOptions())

	for i := 0; i < generalQueueCapacity; i++ {
		c.waiters.dispatch(&Field{Name: "FILL", PacketType: "DATA"})
	}
	c.waiters.dispatch(&Field{Name: "OVERFLOW", PacketType: "DATA"})

	ctx := context.Background()
	for i := 0; i < generalQueueCapacity; i++ {
		f, err := c.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, "FILL", f.Name)
	}

	_, err := c.Recv(ctx)
	require.Error(t, err)
	assert.IsType(t, &QueueOverflow{}, err)
}

func TestAck_SendsCorrelatedACKN(t *testing.T) {
	c, peer := newConnPair(t, DefaultOptions())

	f := &Field{Name: "WORK", PacketType: "DATA", PacketID: 9, conn: c}

	done := make(chan wire.Packet, 1)
	go func() {
		header := make([]byte, wire.PacketHeaderSize)
		_, _ = readFull(peer, header)
		h, err := wire.DecodeHeader(header)
		require.NoError(t, err)
		body := make([]byte, h.BodySize)
		_, _ = readFull(peer, body)
		p, err := wire.FinishDecode(h, body, wire.DecodeOptions{})
		require.NoError(t, err)
		done <- *p
	}()

	require.NoError(t, f.Ack())

	select {
	case p := <-done:
		assert.Equal(t, "LINK", p.Type)
		assert.Equal(t, uint32(9), p.ID)
		require.Len(t, p.Fields, 1)
		assert.Equal(t, "ACKN", p.Fields[0].Name)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ack")
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
