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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crfs/ncp/ncpconn"
)

func TestConnect_CompletesHandshakeAgainstServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		server := ncpconn.New(raw, ncpconn.RoleServer, ncpconn.DefaultOptions())
		defer server.Close()
		_ = ncpconn.ServerHandshake(context.Background(), server, true, func(identity, response string) error {
			return nil
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Connect(ctx, ln.Addr().String(), "node-a")
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, ncpconn.StateReady, c.State())
}

func TestConnect_DialFailureIsNetworkError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = Connect(ctx, addr, "node-a", WithDialTimeout(200*time.Millisecond))
	require.Error(t, err)
	assert.IsType(t, &ncpconn.NetworkError{}, err)
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	c := DefaultConfig()
	c.Identity = "node-a"
	assert.NoError(t, c.Validate())

	c.ReadTimeout = 0
	assert.Error(t, c.Validate())
}

func TestConfig_OptionsReflectsAuthFlag(t *testing.T) {
	c := DefaultConfig()
	c.Auth = false
	opts := c.Options()
	assert.Len(t, opts, 4)
}
