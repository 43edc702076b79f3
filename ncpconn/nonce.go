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
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync/atomic"
)

type nonceGenerator struct {
	counter uint64
}

var nonceSource nonceGenerator

// next returns a fresh per-call nonce: 16 random bytes hex-encoded,
// with a monotonically increasing counter appended so two nonces
// generated within the same process are guaranteed distinct even if
// the randomness source were ever exhausted.
func (g *nonceGenerator) next() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	n := atomic.AddUint64(&g.counter, 1)
	return hex.EncodeToString(buf) + "-" + strconv.FormatUint(n, 10)
}
