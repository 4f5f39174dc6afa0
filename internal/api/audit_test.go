package api_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/persistorai/caseqc/internal/api"
	"github.com/persistorai/caseqc/internal/models"
)

func TestAuditQuery_PassesFilters(t *testing.T) {
	t.Parallel()

	var got models.AuditQueryOpts
	audits := &mockAudits{
		queryFn: func(_ context.Context, _ models.Actor, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
			got = opts
			return []models.AuditEntry{{ID: 1, Action: models.AuditReviewTransition}}, false, nil
		},
	}

	r := newTestRouter(supervisor)
	h := api.NewAuditHandler(audits, &mockReviews{}, testLogger())
	r.GET("/audit", h.Query)

	w := doRequest(r, http.MethodGet, "/audit?review_id=r1&actor=rev-1&action=review.transition&since=2026-01-02T15:04:05Z", "")
	expectStatus(t, w, http.StatusOK)

	if got.ReviewID != "r1" || got.Actor != "rev-1" || got.Action != models.AuditReviewTransition {
		t.Errorf("unexpected opts: %+v", got)
	}

	if got.Since == nil || got.Since.Year() != 2026 {
		t.Errorf("expected since to be parsed, got %v", got.Since)
	}
}

func TestAuditQuery_BadSince(t *testing.T) {
	t.Parallel()

	r := newTestRouter(supervisor)
	h := api.NewAuditHandler(&mockAudits{}, &mockReviews{}, testLogger())
	r.GET("/audit", h.Query)

	w := doRequest(r, http.MethodGet, "/audit?since=yesterday", "")
	expectStatus(t, w, http.StatusBadRequest)
}

func TestAuditQuery_ReviewerForbidden(t *testing.T) {
	t.Parallel()

	audits := &mockAudits{
		queryFn: func(context.Context, models.Actor, models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
			return nil, false, models.ErrAccessDenied
		},
	}

	r := newTestRouter(reviewer)
	h := api.NewAuditHandler(audits, &mockReviews{}, testLogger())
	r.GET("/audit", h.Query)

	w := doRequest(r, http.MethodGet, "/audit", "")
	expectStatus(t, w, http.StatusForbidden)
}

func TestAuditForReview(t *testing.T) {
	t.Parallel()

	reviews := &mockReviews{
		auditFn: func(_ context.Context, _ models.Actor, reviewID string, limit, offset int) ([]models.AuditEntry, bool, error) {
			if reviewID != "r1" || limit != 20 || offset != 0 {
				t.Errorf("unexpected args %s %d %d", reviewID, limit, offset)
			}
			return []models.AuditEntry{{ID: 2, ReviewID: reviewID}}, true, nil
		},
	}

	r := newTestRouter(reviewer)
	h := api.NewAuditHandler(&mockAudits{}, reviews, testLogger())
	r.GET("/reviews/:id/audit", h.ForReview)

	w := doRequest(r, http.MethodGet, "/reviews/r1/audit?limit=20", "")
	expectStatus(t, w, http.StatusOK)
}
