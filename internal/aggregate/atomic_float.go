// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package aggregate

import (
	"math"
	"sync/atomic"
)

// atomicFloat is a float64 accumulator over a CAS loop. Adds from
// concurrent writers never lose updates; reads are wait-free.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Add(delta float64) {
	for {
		old := f.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if f.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (f *atomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}
