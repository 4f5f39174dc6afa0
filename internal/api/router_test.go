package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/persistorai/caseqc/internal/api"
	"github.com/persistorai/caseqc/internal/auth"
	"github.com/persistorai/caseqc/internal/models"
	"github.com/persistorai/caseqc/internal/service"
	"github.com/persistorai/caseqc/internal/store"
	"github.com/persistorai/caseqc/internal/workflow"
)

const routerSecret = "router-test-secret-0123456789abcdef"

type routerFixture struct {
	handler http.Handler
	tokens  map[string]string
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := testLogger()
	mem := store.NewMemory()
	worker := service.NewAuditWorker(mem, log, 16)
	go worker.Run(ctx)

	verifier := auth.NewVerifier(routerSecret, "caseqc")

	handler := api.NewRouter(ctx, &api.RouterDeps{
		Log:            log,
		Verifier:       verifier,
		Approvals:      service.NewApprovalService(mem, workflow.DefaultTable(), log),
		Reviews:        service.NewReviewService(mem, worker, log),
		Cases:          service.NewCaseService(mem, log),
		Audits:         service.NewAuditService(mem, log),
		CORSOrigins:    []string{"http://localhost:3000"},
		Version:        "test",
		Backend:        "memory",
		RateLimitRPS:   10000,
		RateLimitBurst: 10000,
	})

	tokens := make(map[string]string)
	for _, actor := range []models.Actor{
		reviewer,
		supervisor,
		{ID: "rev-2", Role: models.RoleReviewer},
		{ID: "user-1", Role: models.RoleUser},
	} {
		token, err := verifier.Sign(actor, time.Hour)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		tokens[actor.ID] = token
	}

	return &routerFixture{handler: handler, tokens: tokens}
}

func (f *routerFixture) do(actorID, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}

	if token, ok := f.tokens[actorID]; ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	return w
}

func decodeInto[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON: %v: %s", err, w.Body.String())
	}

	return v
}

func TestRouter_HealthIsPublic(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do("", http.MethodGet, "/api/v1/health", "")
	expectStatus(t, w, http.StatusOK)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do("", http.MethodGet, "/api/v1/reviews", "")
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestRouter_ReviewLifecycle(t *testing.T) {
	f := newRouterFixture(t)

	expectStatus(t, f.do("sup-1", http.MethodPut, "/api/v1/cases/case-1", `{"organization_id":"org-1","title":"Doe v. Roe"}`), http.StatusOK)

	w := f.do("sup-1", http.MethodPost, "/api/v1/reviews",
		`{"case_id":"case-1","reviewer_id":"rev-1","model_outputs":[{"model":"m1","output_id":"o1"}]}`)
	expectStatus(t, w, http.StatusCreated)
	review := decodeInto[models.Review](t, w)

	base := "/api/v1/reviews/" + review.ID

	// Another reviewer cannot touch it; a plain user cannot either.
	expectStatus(t, f.do("rev-2", http.MethodGet, base, ""), http.StatusForbidden)
	expectStatus(t, f.do("user-1", http.MethodPost, base+"/transitions", `{"target_status":"IN_REVIEW"}`), http.StatusForbidden)

	// Reviewer cannot skip ahead.
	w = f.do("rev-1", http.MethodPost, base+"/transitions", `{"target_status":"SUPERVISOR_APPROVED"}`)
	expectStatus(t, w, http.StatusUnprocessableEntity)

	expectStatus(t, f.do("rev-1", http.MethodPost, base+"/transitions", `{"target_status":"IN_REVIEW"}`), http.StatusOK)
	expectStatus(t, f.do("rev-1", http.MethodPost, base+"/changes", `{"field_name":"plaintiff","previous_value":"Acme","new_value":"Acme Corp"}`), http.StatusCreated)

	w = f.do("rev-1", http.MethodPost, base+"/transitions", `{"target_status":"REVIEWER_APPROVED","notes":"fixed plaintiff"}`)
	expectStatus(t, w, http.StatusOK)
	review = decodeInto[models.Review](t, w)

	if review.ReviewerNotes != "fixed plaintiff" || review.Version != 3 {
		t.Fatalf("unexpected review after reviewer approval: %+v", review)
	}

	w = f.do("sup-1", http.MethodPost, base+"/transitions", `{"target_status":"SUPERVISOR_APPROVED"}`)
	expectStatus(t, w, http.StatusOK)

	w = f.do("sup-1", http.MethodGet, "/api/v1/cases/case-1", "")
	expectStatus(t, w, http.StatusOK)
	finalized := decodeInto[models.Case](t, w)

	if finalized.Status != models.CaseStatusSupervisorApproved || finalized.FinalOutput == nil {
		t.Fatalf("case not finalized: %+v", finalized)
	}

	if got := finalized.FinalOutput.Fields["plaintiff"].Value; got != "Acme Corp" {
		t.Errorf("expected final plaintiff 'Acme Corp', got %q", got)
	}

	w = f.do("rev-1", http.MethodGet, base+"/audit", "")
	expectStatus(t, w, http.StatusOK)
	trail := decodeInto[struct {
		Data []models.AuditEntry `json:"data"`
	}](t, w)

	// create, three transitions and one change. The rev-2 denial is audited
	// asynchronously and may or may not have landed yet.
	writes := 0
	for _, e := range trail.Data {
		if e.Action != models.AuditReviewAccessDenied {
			writes++
		}
	}

	if writes != 5 {
		t.Errorf("expected 5 audit entries for writes, got %d", writes)
	}
}

func TestRouter_RepeatedTransitionRejected(t *testing.T) {
	f := newRouterFixture(t)

	expectStatus(t, f.do("sup-1", http.MethodPut, "/api/v1/cases/case-1", `{"title":"x"}`), http.StatusOK)

	w := f.do("sup-1", http.MethodPost, "/api/v1/reviews", `{"case_id":"case-1","reviewer_id":"rev-1"}`)
	expectStatus(t, w, http.StatusCreated)
	review := decodeInto[models.Review](t, w)

	path := "/api/v1/reviews/" + review.ID + "/transitions"
	expectStatus(t, f.do("rev-1", http.MethodPost, path, `{"target_status":"IN_REVIEW"}`), http.StatusOK)

	// Same request again: the review has moved on, so this is a rule violation.
	expectStatus(t, f.do("rev-1", http.MethodPost, path, `{"target_status":"IN_REVIEW"}`), http.StatusUnprocessableEntity)
}
