package models_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/persistorai/caseqc/internal/models"
)

func ptr[T any](v T) *T { return &v }

func assertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func assertErrorContains(t *testing.T, err error, want string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error containing %q, got nil", want)
	}

	if !strings.Contains(err.Error(), want) {
		t.Errorf("expected error containing %q, got %q", want, err.Error())
	}

	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected validation error kind, got %v", err)
	}
}

func TestCreateReviewRequest_Validate(t *testing.T) {
	ref := models.ModelOutputRef{Model: "m1", OutputID: "o1"}

	tests := []struct {
		name    string
		req     models.CreateReviewRequest
		wantErr string
	}{
		{name: "valid", req: models.CreateReviewRequest{CaseID: "c1", ReviewerID: "r1"}},
		{name: "valid with two outputs", req: models.CreateReviewRequest{CaseID: "c1", ReviewerID: "r1", ModelOutputs: []models.ModelOutputRef{ref, ref}}},
		{name: "missing case", req: models.CreateReviewRequest{ReviewerID: "r1"}, wantErr: "case_id: is required"},
		{name: "missing reviewer", req: models.CreateReviewRequest{CaseID: "c1"}, wantErr: "reviewer_id: is required"},
		{name: "case too long", req: models.CreateReviewRequest{CaseID: strings.Repeat("x", 256), ReviewerID: "r1"}, wantErr: "exceeds maximum length"},
		{name: "three outputs", req: models.CreateReviewRequest{CaseID: "c1", ReviewerID: "r1", ModelOutputs: []models.ModelOutputRef{ref, ref, ref}}, wantErr: "at most 2"},
		{name: "incomplete output ref", req: models.CreateReviewRequest{CaseID: "c1", ReviewerID: "r1", ModelOutputs: []models.ModelOutputRef{{Model: "m1"}}}, wantErr: "output_id are required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr != "" {
				assertErrorContains(t, err, tc.wantErr)
				return
			}
			assertNoError(t, err)
		})
	}
}

func TestTransitionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     models.TransitionRequest
		wantErr string
	}{
		{name: "valid", req: models.TransitionRequest{TargetStatus: models.StatusInReview}},
		{name: "valid with notes", req: models.TransitionRequest{TargetStatus: models.StatusRejected, Notes: ptr("bad extraction")}},
		{name: "missing target", req: models.TransitionRequest{}, wantErr: "target_status: is required"},
		{name: "unknown target", req: models.TransitionRequest{TargetStatus: "ARCHIVED"}, wantErr: "unknown status ARCHIVED"},
		{name: "notes too long", req: models.TransitionRequest{TargetStatus: models.StatusInReview, Notes: ptr(strings.Repeat("n", 10001))}, wantErr: "exceeds maximum length"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr != "" {
				assertErrorContains(t, err, tc.wantErr)
				return
			}
			assertNoError(t, err)
		})
	}
}

func TestChangeLogRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     models.ChangeLogRequest
		wantErr string
	}{
		{name: "valid", req: models.ChangeLogRequest{FieldName: "plaintiff", PreviousValue: "Acme", NewValue: "Acme Corp"}},
		{name: "empty values allowed", req: models.ChangeLogRequest{FieldName: "plaintiff"}},
		{name: "missing field name", req: models.ChangeLogRequest{NewValue: "x"}, wantErr: "field_name: is required"},
		{name: "annotation too long", req: models.ChangeLogRequest{FieldName: "f", Annotation: strings.Repeat("a", 10001)}, wantErr: "exceeds maximum length"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr != "" {
				assertErrorContains(t, err, tc.wantErr)
				return
			}
			assertNoError(t, err)
		})
	}
}

func TestRole_Hierarchy(t *testing.T) {
	tests := []struct {
		role  models.Role
		other models.Role
		want  bool
	}{
		{models.RoleSupervisor, models.RoleReviewer, true},
		{models.RoleSupervisor, models.RoleSupervisor, true},
		{models.RoleReviewer, models.RoleUser, true},
		{models.RoleReviewer, models.RoleSupervisor, false},
		{models.RoleUser, models.RoleReviewer, false},
		{models.Role("admin"), models.RoleUser, false},
	}

	for _, tc := range tests {
		if got := tc.role.AtLeast(tc.other); got != tc.want {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", tc.role, tc.other, got, tc.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	r, err := models.ParseRole("reviewer")
	assertNoError(t, err)

	if r != models.RoleReviewer {
		t.Errorf("ParseRole = %q, want reviewer", r)
	}

	_, err = models.ParseRole("root")
	assertErrorContains(t, err, "unknown role")
}

func TestActor_Authenticated(t *testing.T) {
	if (models.Actor{}).Authenticated() {
		t.Error("zero actor should not be authenticated")
	}

	if (models.Actor{ID: "u1", Role: "ghost"}).Authenticated() {
		t.Error("actor with unknown role should not be authenticated")
	}

	if !(models.Actor{ID: "u1", Role: models.RoleUser}).Authenticated() {
		t.Error("plain user with id should be authenticated")
	}
}

func TestTransitionError_Unwrap(t *testing.T) {
	err := &models.TransitionError{
		From:    models.StatusInReview,
		To:      models.StatusRejected,
		Role:    models.RoleReviewer,
		Allowed: []models.ReviewStatus{models.StatusChangesRequested, models.StatusReviewerApproved},
	}

	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Error("TransitionError should match ErrInvalidTransition")
	}

	want := "reviewer cannot move review from IN_REVIEW to REJECTED (allowed: [CHANGES_REQUESTED, REVIEWER_APPROVED])"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("Error() = %q, want it to contain %q", err.Error(), want)
	}
}

func TestNotFoundSentinels(t *testing.T) {
	for _, err := range []error{models.ErrReviewNotFound, models.ErrCaseNotFound, models.ErrChangeNotFound} {
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("%v should match ErrNotFound", err)
		}
	}
}

func TestReview_Clone(t *testing.T) {
	orig := &models.Review{
		ID:           "r1",
		SupervisorID: ptr("s1"),
		ModelOutputs: []models.ModelOutputRef{{Model: "m", OutputID: "o"}},
	}

	c := orig.Clone()
	*c.SupervisorID = "s2"
	c.ModelOutputs[0].Model = "changed"

	if *orig.SupervisorID != "s1" {
		t.Error("clone shares SupervisorID pointer")
	}

	if orig.ModelOutputs[0].Model != "m" {
		t.Error("clone shares ModelOutputs backing array")
	}
}
