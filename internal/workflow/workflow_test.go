package workflow_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/persistorai/caseqc/internal/models"
	"github.com/persistorai/caseqc/internal/workflow"
)

var allRoles = []models.Role{models.RoleUser, models.RoleReviewer, models.RoleSupervisor}

func TestDefaultTable_Rows(t *testing.T) {
	table := workflow.DefaultTable()

	tests := []struct {
		from       models.ReviewStatus
		reviewer   []models.ReviewStatus
		supervisor []models.ReviewStatus
	}{
		{
			from:       models.StatusPending,
			reviewer:   []models.ReviewStatus{models.StatusInReview},
			supervisor: []models.ReviewStatus{models.StatusInReview, models.StatusRejected},
		},
		{
			from:       models.StatusInReview,
			reviewer:   []models.ReviewStatus{models.StatusChangesRequested, models.StatusReviewerApproved},
			supervisor: []models.ReviewStatus{models.StatusChangesRequested, models.StatusSupervisorApproved, models.StatusRejected},
		},
		{
			from:       models.StatusChangesRequested,
			reviewer:   []models.ReviewStatus{models.StatusInReview, models.StatusReviewerApproved},
			supervisor: []models.ReviewStatus{models.StatusSupervisorApproved, models.StatusRejected},
		},
		{
			from:       models.StatusReviewerApproved,
			reviewer:   []models.ReviewStatus{},
			supervisor: []models.ReviewStatus{models.StatusChangesRequested, models.StatusSupervisorApproved, models.StatusRejected},
		},
		{
			from:       models.StatusSupervisorApproved,
			reviewer:   []models.ReviewStatus{},
			supervisor: []models.ReviewStatus{models.StatusCompleted},
		},
		{
			from:       models.StatusRejected,
			reviewer:   []models.ReviewStatus{},
			supervisor: []models.ReviewStatus{models.StatusInReview},
		},
		{
			from:       models.StatusCompleted,
			reviewer:   []models.ReviewStatus{},
			supervisor: []models.ReviewStatus{},
		},
	}

	for _, tc := range tests {
		t.Run(string(tc.from), func(t *testing.T) {
			assert.Equal(t, tc.reviewer, table.Allowed(tc.from, models.RoleReviewer))
			assert.Equal(t, tc.supervisor, table.Allowed(tc.from, models.RoleSupervisor))
			assert.Empty(t, table.Allowed(tc.from, models.RoleUser))
		})
	}
}

func TestDefaultTable_Terminal(t *testing.T) {
	table := workflow.DefaultTable()

	assert.True(t, table.IsTerminal(models.StatusCompleted))
	assert.False(t, table.IsTerminal(models.StatusRejected))
	assert.False(t, table.IsTerminal(models.StatusPending))
}

func TestTable_AllowedReturnsCopy(t *testing.T) {
	table := workflow.DefaultTable()

	got := table.Allowed(models.StatusPending, models.RoleSupervisor)
	require.NotEmpty(t, got)
	got[0] = models.StatusCompleted

	assert.False(t, table.Permits(models.StatusPending, models.RoleSupervisor, models.StatusCompleted))
}

func TestNewTable_CopiesInput(t *testing.T) {
	rules := map[models.ReviewStatus]map[models.Role][]models.ReviewStatus{
		models.StatusPending: {models.RoleReviewer: {models.StatusInReview}},
	}
	table := workflow.NewTable(rules)

	rules[models.StatusPending][models.RoleReviewer] = []models.ReviewStatus{models.StatusCompleted}

	assert.True(t, table.Permits(models.StatusPending, models.RoleReviewer, models.StatusInReview))
	assert.False(t, table.Permits(models.StatusPending, models.RoleReviewer, models.StatusCompleted))
}

func TestTable_PermitsAgreesWithAllowed(t *testing.T) {
	table := workflow.DefaultTable()

	rapid.Check(t, func(t *rapid.T) {
		from := rapid.SampledFrom(models.AllStatuses).Draw(t, "from")
		to := rapid.SampledFrom(models.AllStatuses).Draw(t, "to")
		role := rapid.SampledFrom(allRoles).Draw(t, "role")

		want := slices.Contains(table.Allowed(from, role), to)
		if got := table.Permits(from, role, to); got != want {
			t.Fatalf("Permits(%s, %s, %s) = %v, Allowed says %v", from, role, to, got, want)
		}

		if role == models.RoleUser && table.Permits(from, role, to) {
			t.Fatalf("plain user permitted %s -> %s", from, to)
		}
	})
}

func TestTable_ReviewerNeverReachesSupervisorStates(t *testing.T) {
	table := workflow.DefaultTable()

	rapid.Check(t, func(t *rapid.T) {
		from := rapid.SampledFrom(models.AllStatuses).Draw(t, "from")

		for _, to := range table.Allowed(from, models.RoleReviewer) {
			switch to {
			case models.StatusSupervisorApproved, models.StatusRejected, models.StatusCompleted:
				t.Fatalf("reviewer may move %s -> %s", from, to)
			}
		}
	})
}

func TestIsAuthorizedActor(t *testing.T) {
	review := &models.Review{ID: "r1", ReviewerID: "alice"}

	tests := []struct {
		name  string
		actor models.Actor
		want  bool
	}{
		{name: "assigned reviewer", actor: models.Actor{ID: "alice", Role: models.RoleReviewer}, want: true},
		{name: "other reviewer", actor: models.Actor{ID: "bob", Role: models.RoleReviewer}, want: false},
		{name: "any supervisor", actor: models.Actor{ID: "sam", Role: models.RoleSupervisor}, want: true},
		{name: "plain user named as reviewer", actor: models.Actor{ID: "alice", Role: models.RoleUser}, want: false},
		{name: "plain user", actor: models.Actor{ID: "carol", Role: models.RoleUser}, want: false},
		{name: "unauthenticated", actor: models.Actor{}, want: false},
		{name: "unknown role", actor: models.Actor{ID: "alice", Role: "admin"}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, workflow.IsAuthorizedActor(review, tc.actor))
		})
	}

	assert.False(t, workflow.IsAuthorizedActor(nil, models.Actor{ID: "sam", Role: models.RoleSupervisor}))
}
