package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabflow/cabflow/modules/changes/domain/changerequest"
	"github.com/cabflow/cabflow/modules/changes/domain/directory"
	infradirectory "github.com/cabflow/cabflow/modules/changes/infrastructure/directory"
	"github.com/cabflow/cabflow/modules/changes/infrastructure/persistence"
	"github.com/cabflow/cabflow/modules/changes/presentation/controllers"
	"github.com/cabflow/cabflow/modules/changes/presentation/viewmodels"
	"github.com/cabflow/cabflow/modules/changes/services"
	"github.com/cabflow/cabflow/pkg/application"
	"github.com/cabflow/cabflow/pkg/eventbus"
	"github.com/cabflow/cabflow/pkg/httpapi"
	"github.com/cabflow/cabflow/pkg/middleware"
)

const rolesYAML = `
projects:
  PAY:
    roles:
      admin: Admin
      approver: Approver
      member: User
users:
  admin:
    name: Ada Admin
  requester:
    name: Rita Requester
`

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	dir, err := infradirectory.ParseYAMLDirectory([]byte(rolesYAML))
	require.NoError(t, err)

	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(log),
		Logger:   log,
	})
	repo := persistence.NewMemoryChangeRequestRepository()
	app.RegisterServices(services.NewChangeRequestService(
		repo, services.NewApprovalGate(dir), app.EventPublisher(), 3,
	))

	router := mux.NewRouter()
	router.Use(middleware.RequestID("X-Request-ID"), middleware.Actor("X-Actor-ID"))
	controllers.NewChangesAPIController(app, dir).Register(router)
	return router
}

func doJSON(t *testing.T, router *mux.Router, method, path, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeChangeRequest(t *testing.T, rec *httptest.ResponseRecorder) viewmodels.ChangeRequest {
	t.Helper()
	var vm viewmodels.ChangeRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&vm))
	return vm
}

func createViaAPI(t *testing.T, router *mux.Router) viewmodels.ChangeRequest {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/change-requests", "requester", map[string]any{
		"title":              "Renew API gateway certs",
		"project_id":         "PAY",
		"required_approvers": []string{"approver"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeChangeRequest(t, rec)
}

func TestChangesAPI_CreateAndGet(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	created := createViaAPI(t, router)

	assert.Equal(t, string(changerequest.PhaseValidationPending), created.Phase)
	assert.Equal(t, "Rita Requester", created.Requester.Name)
	assert.Equal(t, int64(1), created.Version)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/change-requests/"+created.ID, "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeChangeRequest(t, rec)
	assert.Equal(t, created.ID, got.ID)
	// No directory entry for "approver", so the raw ID is shown.
	require.Len(t, got.RequiredApprovers, 1)
	assert.Equal(t, "approver", got.RequiredApprovers[0].Name)
}

func TestChangesAPI_CreateValidation(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	t.Run("missing_actor_header", func(t *testing.T) {
		t.Parallel()
		rec := doJSON(t, router, http.MethodPost, "/api/v1/change-requests", "", map[string]any{
			"title": "x", "project_id": "PAY",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing_title", func(t *testing.T) {
		t.Parallel()
		rec := doJSON(t, router, http.MethodPost, "/api/v1/change-requests", "requester", map[string]any{
			"project_id": "PAY",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var envelope httpapi.ErrorEnvelope
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
		assert.Equal(t, "INVALID_INPUT", envelope.Code)
		assert.NotEmpty(t, envelope.RequestID)
	})

	t.Run("unknown_field", func(t *testing.T) {
		t.Parallel()
		rec := doJSON(t, router, http.MethodPost, "/api/v1/change-requests", "requester", map[string]any{
			"title": "x", "project_id": "PAY", "phase": "Approved",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestChangesAPI_ApprovalFlow(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	created := createViaAPI(t, router)

	t.Run("member_cannot_approve", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/change-requests/"+created.ID+":approve", "member", map[string]any{
			"expected_phase": created.Phase,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("approver_approves_validation", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/change-requests/"+created.ID+":approve", "approver", map[string]any{
			"expected_phase": created.Phase,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeChangeRequest(t, rec)
		assert.Equal(t, string(changerequest.PhaseValidationApproved), got.Phase)
		assert.Equal(t, string(changerequest.StatusApproved), got.ValidationStatus)
	})

	t.Run("stale_expected_phase_conflicts", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/change-requests/"+created.ID+":approve", "admin", map[string]any{
			"expected_phase": created.Phase,
		})
		assert.Equal(t, http.StatusConflict, rec.Code)

		var envelope httpapi.ErrorEnvelope
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
		assert.Equal(t, "STALE_STATE", envelope.Code)
	})

	t.Run("approve_outside_table_unprocessable", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/change-requests/"+created.ID+":approve", "admin", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestChangesAPI_SetPhase(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	created := createViaAPI(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/change-requests/"+created.ID+":approve", "approver", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/change-requests/"+created.ID+":set-phase", "admin", map[string]any{
		"phase": string(changerequest.PhaseInProgress),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(changerequest.PhaseInProgress), decodeChangeRequest(t, rec).Phase)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/change-requests/"+created.ID+":set-phase", "admin", map[string]any{
		"phase": string(changerequest.PhasePlanned),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestChangesAPI_Comments(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	created := createViaAPI(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/change-requests/"+created.ID+"/comments", "member", map[string]any{
		"body": "rollout plan looks sane",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var comment viewmodels.Comment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&comment))
	assert.Equal(t, "member", comment.Author.ID)
	assert.Equal(t, "rollout plan looks sane", comment.Body)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/change-requests/"+created.ID+"/comments", "outsider", map[string]any{
		"body": "let me in",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/change-requests/"+created.ID+"/comments", "member", map[string]any{
		"body": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangesAPI_List(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	createViaAPI(t, router)
	createViaAPI(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/change-requests?project_id=PAY", "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Items []viewmodels.ChangeRequest `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	assert.Len(t, payload.Items, 2)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/change-requests?phase=Nonsense", "member", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangesAPI_NotFoundAndBadID(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/change-requests/1e8cfa4e-13b7-44a6-9a3e-000000000000", "member", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/change-requests/not-a-uuid", "member", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Interface guard kept close to where the controller is exercised.
var _ directory.DisplayLookup = (*infradirectory.YAMLDirectory)(nil)

func TestChangesAPI_DisplayDegradationOnLookupFailure(t *testing.T) {
	t.Parallel()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	dir, err := infradirectory.ParseYAMLDirectory([]byte(rolesYAML))
	require.NoError(t, err)

	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(log),
		Logger:   log,
	})
	repo := persistence.NewMemoryChangeRequestRepository()
	app.RegisterServices(services.NewChangeRequestService(
		repo, services.NewApprovalGate(dir), app.EventPublisher(), 3,
	))

	router := mux.NewRouter()
	router.Use(middleware.RequestID("X-Request-ID"), middleware.Actor("X-Actor-ID"))
	controllers.NewChangesAPIController(app, failingDisplay{}).Register(router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/change-requests", "requester", map[string]any{
		"title": "degrade gracefully", "project_id": "PAY", "required_approvers": []string{"approver"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	got := decodeChangeRequest(t, rec)
	assert.Equal(t, "requester", got.Requester.Name)
}

type failingDisplay struct{}

func (failingDisplay) DisplayInfo(_ context.Context, _ []string) (map[string]directory.DisplayInfo, error) {
	return nil, assert.AnError
}
