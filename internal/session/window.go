// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package session

import (
	"sort"

	"github.com/directrix-io/directrix/internal/models"
)

// insertBounded inserts an event into the rolling window, preserving
// ascending sequence order, and evicts from the front (oldest sequence
// numbers first) when capacity is exceeded. Out-of-order arrivals are
// placed at their sorted position, keeping the window ordered at all
// times.
func insertBounded(window []models.InteractionEvent, event models.InteractionEvent, capacity int) []models.InteractionEvent {
	// Common case: append in order.
	if n := len(window); n == 0 || window[n-1].SequenceNumber <= event.SequenceNumber {
		window = append(window, event)
	} else {
		i := sort.Search(n, func(j int) bool {
			return window[j].SequenceNumber > event.SequenceNumber
		})
		window = append(window, models.InteractionEvent{})
		copy(window[i+1:], window[i:])
		window[i] = event
	}

	if over := len(window) - capacity; over > 0 {
		// FIFO eviction of the oldest entries; shift in place so the
		// backing array does not grow unbounded.
		copy(window, window[over:])
		window = window[:capacity]
	}

	return window
}
