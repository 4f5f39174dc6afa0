package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/persistorai/caseqc/internal/api"
	"github.com/persistorai/caseqc/internal/models"
)

func TestCaseRegister_UsesPathID(t *testing.T) {
	t.Parallel()

	cases := &mockCases{
		registerFn: func(_ context.Context, _ models.Actor, req models.RegisterCaseRequest) (*models.Case, error) {
			return &models.Case{ID: req.ID, OrganizationID: req.OrganizationID, Title: req.Title, Status: models.CaseStatusOpen}, nil
		},
	}

	r := newTestRouter(supervisor)
	h := api.NewCaseHandler(cases, testLogger())
	r.PUT("/cases/:id", h.Register)

	w := doRequest(r, http.MethodPut, "/cases/case-7", `{"organization_id":"org-1","title":"Doe v. Roe"}`)
	expectStatus(t, w, http.StatusOK)

	var got models.Case
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if got.ID != "case-7" || got.Title != "Doe v. Roe" {
		t.Errorf("unexpected case: %+v", got)
	}
}

func TestCaseRegister_ReviewerForbidden(t *testing.T) {
	t.Parallel()

	cases := &mockCases{
		registerFn: func(context.Context, models.Actor, models.RegisterCaseRequest) (*models.Case, error) {
			return nil, models.ErrAccessDenied
		},
	}

	r := newTestRouter(reviewer)
	h := api.NewCaseHandler(cases, testLogger())
	r.PUT("/cases/:id", h.Register)

	w := doRequest(r, http.MethodPut, "/cases/case-7", `{"title":"x"}`)
	expectStatus(t, w, http.StatusForbidden)
}

func TestCaseGet_NotFound(t *testing.T) {
	t.Parallel()

	cases := &mockCases{
		getFn: func(context.Context, models.Actor, string) (*models.Case, error) {
			return nil, models.ErrCaseNotFound
		},
	}

	r := newTestRouter(supervisor)
	h := api.NewCaseHandler(cases, testLogger())
	r.GET("/cases/:id", h.Get)

	w := doRequest(r, http.MethodGet, "/cases/nope", "")
	expectStatus(t, w, http.StatusNotFound)
}
