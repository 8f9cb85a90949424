// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package api

import (
	"errors"
	"net/http"

	"github.com/directrix-io/directrix/internal/ingest"
	"github.com/directrix-io/directrix/internal/model"
)

// writeRejectError maps an ingestion rejection onto HTTP. Rejections
// are client or load conditions, never 5xx pipeline failures except
// overload.
func writeRejectError(rw *ResponseWriter, w http.ResponseWriter, err *ingest.RejectError) {
	switch err.Reason {
	case ingest.ReasonMalformed:
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, "event failed validation", err.Detail)
	case ingest.ReasonUnknownType:
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeBadRequest, "unknown event type", err.Detail)
	case ingest.ReasonClockSkew:
		rw.ErrorWithDetails(http.StatusUnprocessableEntity, ErrCodeUnprocessable, "event timestamp outside accepted window", err.Detail)
	case ingest.ReasonOverloaded:
		w.Header().Set("Retry-After", "1")
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "ingestion at capacity, retry later")
	default:
		rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "unclassified rejection")
	}
}

// writeModelError maps registry failures onto HTTP.
func writeModelError(rw *ResponseWriter, err error) {
	var le *model.LoadError
	switch {
	case errors.As(err, &le):
		switch le.Kind {
		case model.VersionMismatch:
			rw.ErrorWithDetails(http.StatusConflict, ErrCodeConflict, "artifact schema version not servable", le.Detail)
		case model.IncompatibleSchema:
			rw.ErrorWithDetails(http.StatusUnprocessableEntity, ErrCodeUnprocessable, "artifact feature schema incompatible", le.Detail)
		default:
			rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, "artifact rejected", le.Detail)
		}
	case errors.Is(err, model.ErrLastModel):
		rw.Error(http.StatusConflict, ErrCodeConflict, "cannot remove the last active model")
	case errors.Is(err, model.ErrUnknownModel):
		rw.Error(http.StatusNotFound, ErrCodeNotFound, "model not in active set")
	default:
		rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "model operation failed")
	}
}
