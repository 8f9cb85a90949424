// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package ingest

import "fmt"

// RejectReason classifies why an event was refused at the boundary.
// Reasons are stable strings: they label the rejection metric and map
// to HTTP status codes in the API layer.
type RejectReason string

const (
	// ReasonMalformed covers structurally invalid events: missing
	// session ID, missing timestamp, field constraint violations.
	ReasonMalformed RejectReason = "malformed_event"

	// ReasonUnknownType is an event_type outside the known vocabulary.
	ReasonUnknownType RejectReason = "unknown_event_type"

	// ReasonClockSkew is a timestamp outside the accepted window
	// around server time.
	ReasonClockSkew RejectReason = "clock_skew"

	// ReasonOverloaded means the concurrency ceiling was hit; the
	// caller should back off and retry.
	ReasonOverloaded RejectReason = "overloaded"
)

// RejectError is a refusal at the ingestion boundary. Rejections are
// expected traffic, never pipeline failures.
type RejectError struct {
	Reason RejectReason
	Detail string
}

// Error implements the error interface.
func (e *RejectError) Error() string {
	return fmt.Sprintf("event rejected (%s): %s", e.Reason, e.Detail)
}

func reject(reason RejectReason, format string, args ...interface{}) *RejectError {
	return &RejectError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
