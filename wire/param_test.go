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

func TestParamRoundTrip(t *testing.T) {
	p := Param{Name: "VAL", Value: Int32Value(42)}
	encoded, err := encodeParam(p)
	require.NoError(t, err)
	assert.Equal(t, 0, len(encoded)%4)

	state := newDecodeState(DecodeOptions{})
	got, err := decodeParams(encoded, state)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "VAL", got[0].Name)
	assert.Equal(t, Int32Value(42), got[0].Value)
}

func TestParamStringIsNulPadded(t *testing.T) {
	p := Param{Name: "MSG", Value: StringValue("hi")}
	encoded, err := encodeParam(p)
	require.NoError(t, err)
	// header(8) + "hi\x00"(3) padded to 4 -> 12 bytes total.
	assert.Equal(t, 12, len(encoded))

	state := newDecodeState(DecodeOptions{})
	got, err := decodeParams(encoded, state)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, StringValue("hi"), got[0].Value)
}

func TestDecodeParamsToleratesAxisQuirk(t *testing.T) {
	first, err := encodeParam(Param{Name: "A", Value: Int32Value(1)})
	require.NoError(t, err)
	second, err := encodeParam(Param{Name: "B", Value: Int32Value(2)})
	require.NoError(t, err)

	var data []byte
	data = append(data, first...)
	data = append(data, footerNoChecksum[:]...)
	data = append(data, second...)

	var warnings []error
	state := newDecodeState(DecodeOptions{Warn: func(w error) { warnings = append(warnings, w) }})
	got, err := decodeParams(data, state)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "B", got[1].Name)
	require.Len(t, warnings, 1)
	assert.IsType(t, DecodeWarning{}, warnings[0])
}

func TestDecodeParamsRawMode(t *testing.T) {
	encoded, err := encodeParam(Param{Name: "VAL", Value: Int32Value(42)})
	require.NoError(t, err)

	state := newDecodeState(DecodeOptions{Raw: true})
	got, err := decodeParams(encoded, state)
	require.NoError(t, err)
	require.Len(t, got, 1)
	raw, ok := got[0].Value.(RawParamValue)
	require.True(t, ok)
	assert.Equal(t, TagInt32, raw.RawTag)
}

func TestDecodeParamsTruncatedHeader(t *testing.T) {
	state := newDecodeState(DecodeOptions{})
	_, err := decodeParams([]byte{0x01, 0x02, 0x03}, state)
	assert.Error(t, err)
	assert.IsType(t, DecodeError{}, err)
}

func TestDecodeParamsOverflow(t *testing.T) {
	encoded, err := encodeParam(Param{Name: "VAL", Value: Int32Value(42)})
	require.NoError(t, err)
	state := newDecodeState(DecodeOptions{})
	_, err = decodeParams(encoded[:len(encoded)-4], state)
	assert.Error(t, err)
}
