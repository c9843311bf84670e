package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/plateora/plateora-backend/api/responses"
	"github.com/plateora/plateora-backend/internal/lifecycle"
	pkgerrors "github.com/plateora/plateora-backend/pkg/errors"
	"github.com/plateora/plateora-backend/pkg/logger"
)

// SchedulerService runs lifecycle passes on demand.
type SchedulerService interface {
	RunPass(ctx context.Context, opts lifecycle.RunOptions) (*lifecycle.PassSummary, error)
}

// TriggerScheduler runs a lifecycle pass. With a listing_id query parameter
// only that listing is processed, which is also the manual settlement retry
// path for a completed listing whose charge failed.
func TriggerScheduler(svc SchedulerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts lifecycle.RunOptions
		if raw := r.URL.Query().Get("listing_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "listing_id must be a valid uuid"))
				return
			}
			opts.ListingID = &id
		}

		summary, err := svc.RunPass(r.Context(), opts)
		if err != nil {
			// A partial pass still returns its summary; per-listing failures
			// are aggregated into err, not fatal to the run.
			if summary == nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			logg.Error(r.Context(), "lifecycle pass finished with failures", err)
		}
		responses.WriteSuccess(w, summary)
	}
}
