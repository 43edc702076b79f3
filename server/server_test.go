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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crfs/ncp/client"
	"github.com/crfs/ncp/ncpconn"
)

func TestServe_HandshakesAcceptedConnections(t *testing.T) {
	handled := make(chan *ncpconn.Connection, 1)
	s, err := Serve(context.Background(), "127.0.0.1:0", func(c *ncpconn.Connection) {
		handled <- c
	})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := client.Connect(ctx, s.Addr().String(), "node-a")
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, ncpconn.StateReady, c.State())

	select {
	case serverSide := <-handled:
		assert.Equal(t, ncpconn.StateReady, serverSide.State())
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestServe_RejectsFailedAuth(t *testing.T) {
	s, err := Serve(context.Background(), "127.0.0.1:0", func(c *ncpconn.Connection) {
		t.Fatal("handler should not run when auth is rejected")
	}, WithAuthValidator(func(identity, response string) error {
		return assert.AnError
	}))
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = client.Connect(ctx, s.Addr().String(), "node-a")
	require.Error(t, err)
	assert.IsType(t, &ncpconn.AuthenticationError{}, err)
}

func TestClose_StopsAcceptingNewConnections(t *testing.T) {
	s, err := Serve(context.Background(), "127.0.0.1:0", func(c *ncpconn.Connection) {})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = client.Connect(ctx, s.Addr().String(), "node-a")
	require.Error(t, err)
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	c := DefaultConfig()
	assert.NoError(t, c.Validate())

	c.SendTimeout = 0
	assert.Error(t, c.Validate())
}
