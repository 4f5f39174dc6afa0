package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/persistorai/caseqc/internal/api"
	"github.com/persistorai/caseqc/internal/db"
)

const versionQuery = `SELECT COALESCE\(MAX\(version_id\), 0\) FROM goose_db_version WHERE is_applied`

type readiness struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	SchemaVersion int64             `json:"schema_version"`
}

func decodeReadiness(t *testing.T, body []byte) readiness {
	t.Helper()

	var r readiness
	if err := json.Unmarshal(body, &r); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	return r
}

func TestLiveness_ReturnsOK(t *testing.T) {
	t.Parallel()

	h := api.NewHealthHandler(nil, nil, nil, testLogger(), "test-v1", "memory")

	r := gin.New()
	r.GET("/health", h.Liveness)

	w := doRequest(r, http.MethodGet, "/health", "")
	expectStatus(t, w, http.StatusOK)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if body["status"] != "ok" || body["version"] != "test-v1" {
		t.Errorf("unexpected body: %v", body)
	}

	if body["database"] != "not_configured" {
		t.Errorf("expected database not_configured, got %v", body["database"])
	}
}

func TestReadiness_MemoryBackend(t *testing.T) {
	t.Parallel()

	h := api.NewHealthHandler(nil, nil, nil, testLogger(), "v", "memory")

	r := gin.New()
	r.GET("/ready", h.Readiness)

	w := doRequest(r, http.MethodGet, "/ready", "")
	expectStatus(t, w, http.StatusOK)

	if got := decodeReadiness(t, w.Body.Bytes()); got.Checks["database"] != "not_configured" {
		t.Errorf("unexpected checks: %v", got.Checks)
	}
}

func TestReadiness_SchemaVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		applied    int64
		wantStatus int
		wantSchema string
	}{
		{"current", db.LatestVersion(), http.StatusOK, "ok"},
		{"behind", db.LatestVersion() - 1, http.StatusServiceUnavailable, "error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sqlDB, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock: %v", err)
			}
			defer sqlDB.Close()

			mock.ExpectQuery(versionQuery).WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(tc.applied))

			h := api.NewHealthHandler(&mockPinger{}, sqlDB, nil, testLogger(), "v", "postgres")

			r := gin.New()
			r.GET("/ready", h.Readiness)

			w := doRequest(r, http.MethodGet, "/ready", "")
			expectStatus(t, w, tc.wantStatus)

			got := decodeReadiness(t, w.Body.Bytes())
			if got.Checks["schema"] != tc.wantSchema || got.SchemaVersion != tc.applied {
				t.Errorf("unexpected readiness: %+v", got)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestReadiness_DatabaseDown(t *testing.T) {
	t.Parallel()

	h := api.NewHealthHandler(&mockPinger{err: errors.New("dial tcp: refused")}, nil, nil, testLogger(), "v", "postgres")

	r := gin.New()
	r.GET("/ready", h.Readiness)

	w := doRequest(r, http.MethodGet, "/ready", "")
	expectStatus(t, w, http.StatusServiceUnavailable)

	got := decodeReadiness(t, w.Body.Bytes())
	if got.Status != "not_ready" || got.Checks["database"] != "error" {
		t.Errorf("unexpected readiness: %+v", got)
	}
}
