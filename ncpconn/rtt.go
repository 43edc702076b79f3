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
	"sync"
	"time"

	"github.com/eclesh/welford"
)

// rttTracker folds the elapsed time between a send_and_recv call and
// its first correlated field into a running mean/variance, the same
// online-variance technique the corpus uses for clock-offset
// statistics.
type rttTracker struct {
	mu sync.Mutex
	s  *welford.Stats
}

func newRTTTracker() *rttTracker {
	return &rttTracker{s: welford.New()}
}

func (t *rttTracker) observe(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Add(float64(d))
}

func (t *rttTracker) stats() (mean, stddev time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(t.s.Mean()), time.Duration(t.s.Stddev())
}
