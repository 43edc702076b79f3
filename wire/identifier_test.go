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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeIdentifierPadsWithSpace(t *testing.T) {
	got, err := EncodeIdentifier("HELO")
	require.NoError(t, err)
	assert.Equal(t, [4]byte{'H', 'E', 'L', 'O'}, got)

	got, err = EncodeIdentifier("ACK")
	require.NoError(t, err)
	assert.Equal(t, [4]byte{'A', 'C', 'K', ' '}, got)
}

func TestEncodeIdentifierRejectsBadInput(t *testing.T) {
	_, err := EncodeIdentifier("")
	assert.Error(t, err)

	_, err = EncodeIdentifier("TOOLONG")
	assert.Error(t, err)

	_, err = EncodeIdentifier("\xffEL")
	assert.Error(t, err)
}

func TestDecodeIdentifierStripsPadding(t *testing.T) {
	assert.Equal(t, "HELO", DecodeIdentifier([]byte("HELO")))
	assert.Equal(t, "ACK", DecodeIdentifier([]byte("ACK ")))
	assert.Equal(t, "ACK", DecodeIdentifier([]byte{'A', 'C', 'K', 0x00}))
	assert.Equal(t, "", DecodeIdentifier([]byte{0x20, 0x20, 0x20, 0x20}))
}

func TestIdentifierRoundTrip(t *testing.T) {
	for _, name := range []string{"A", "AB", "ABC", "ABCD"} {
		enc, err := EncodeIdentifier(name)
		require.NoError(t, err)
		assert.Equal(t, name, DecodeIdentifier(enc[:]))
	}
}
