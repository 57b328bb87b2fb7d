package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/cabflow/cabflow/modules/changes/domain/changerequest"
	"github.com/cabflow/cabflow/modules/changes/domain/directory"
	"github.com/cabflow/cabflow/modules/changes/presentation/mappers"
	"github.com/cabflow/cabflow/modules/changes/presentation/viewmodels"
	"github.com/cabflow/cabflow/modules/changes/services"
	"github.com/cabflow/cabflow/pkg/application"
	"github.com/cabflow/cabflow/pkg/composables"
	"github.com/cabflow/cabflow/pkg/httpapi"
	"github.com/cabflow/cabflow/pkg/serrors"
)

type ChangesAPIController struct {
	app       application.Application
	service   *services.ChangeRequestService
	display   directory.DisplayLookup
	apiPrefix string
}

func NewChangesAPIController(app application.Application, display directory.DisplayLookup) application.Controller {
	return &ChangesAPIController{
		app:       app,
		service:   app.Service(services.ChangeRequestService{}).(*services.ChangeRequestService),
		display:   display,
		apiPrefix: "/api/v1",
	}
}

func (c *ChangesAPIController) Key() string {
	return c.apiPrefix
}

func (c *ChangesAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/change-requests", instrument("create", c.Create)).Methods(http.MethodPost)
	api.HandleFunc("/change-requests", instrument("list", c.List)).Methods(http.MethodGet)
	api.HandleFunc("/change-requests/{id}", instrument("get", c.GetByID)).Methods(http.MethodGet)
	api.HandleFunc("/change-requests/{id}:approve", instrument("approve", c.Approve)).Methods(http.MethodPost)
	api.HandleFunc("/change-requests/{id}:reject", instrument("reject", c.Reject)).Methods(http.MethodPost)
	api.HandleFunc("/change-requests/{id}:submit", instrument("submit", c.Submit)).Methods(http.MethodPost)
	api.HandleFunc("/change-requests/{id}:set-phase", instrument("set_phase", c.SetPhase)).Methods(http.MethodPost)
	api.HandleFunc("/change-requests/{id}/comments", instrument("comment", c.AddComment)).Methods(http.MethodPost)
}

type createChangeRequestDTO struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Reason            string   `json:"reason"`
	Impact            string   `json:"impact"`
	AdditionalInfo    string   `json:"additional_info"`
	ProjectID         string   `json:"project_id"`
	RequiredApprovers []string `json:"required_approvers"`
	IssueIDs          []string `json:"issue_ids"`
	ChangeWindowStart string   `json:"change_window_start"`
	ChangeWindowEnd   string   `json:"change_window_end"`
	Draft             bool     `json:"draft"`
}

func (c *ChangesAPIController) Create(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())

	var dto createChangeRequestDTO
	if err := decodeJSON(r.Body, &dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, requestID, "INVALID_BODY", err.Error())
		return
	}

	params := services.CreateChangeRequestParams{
		Title:             dto.Title,
		Description:       dto.Description,
		Reason:            dto.Reason,
		Impact:            dto.Impact,
		AdditionalInfo:    dto.AdditionalInfo,
		ProjectID:         dto.ProjectID,
		RequiredApprovers: dto.RequiredApprovers,
		IssueIDs:          dto.IssueIDs,
		Draft:             dto.Draft,
	}
	if dto.ChangeWindowStart != "" || dto.ChangeWindowEnd != "" {
		start, err := time.Parse(time.RFC3339, dto.ChangeWindowStart)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, requestID, "INVALID_BODY", "change_window_start is invalid")
			return
		}
		end, err := time.Parse(time.RFC3339, dto.ChangeWindowEnd)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, requestID, "INVALID_BODY", "change_window_end is invalid")
			return
		}
		params.ChangeWindowStart = &start
		params.ChangeWindowEnd = &end
	}

	cr, err := c.service.Create(r.Context(), params)
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, c.render(r, cr))
}

func (c *ChangesAPIController) List(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())

	params := &changerequest.FindParams{
		ProjectID:     r.URL.Query().Get("project_id"),
		Phase:         changerequest.Phase(r.URL.Query().Get("phase")),
		ParticipantID: r.URL.Query().Get("participant_id"),
	}
	if params.Phase != "" && !changerequest.KnownPhase(params.Phase) {
		_ = httpapi.WriteError(w, http.StatusBadRequest, requestID, "INVALID_QUERY", "unknown phase")
		return
	}
	var err error
	if params.Limit, err = parseIntQuery(r, "limit"); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, requestID, "INVALID_QUERY", "limit is invalid")
		return
	}
	if params.Offset, err = parseIntQuery(r, "offset"); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, requestID, "INVALID_QUERY", "offset is invalid")
		return
	}

	items, err := c.service.List(r.Context(), params)
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}

	identities := c.identitiesForAll(r, items)
	out := make([]*viewmodels.ChangeRequest, 0, len(items))
	for _, cr := range items {
		out = append(out, mappers.ChangeRequestToViewModel(cr, identities))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *ChangesAPIController) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}
	cr, err := c.service.GetByID(r.Context(), id)
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, c.render(r, cr))
}

type decisionDTO struct {
	ExpectedPhase string `json:"expected_phase"`
}

func (c *ChangesAPIController) Approve(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, c.service.Approve)
}

func (c *ChangesAPIController) Reject(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, c.service.Reject)
}

func (c *ChangesAPIController) decide(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, id uuid.UUID, expectedPhase changerequest.Phase) (changerequest.ChangeRequest, error),
) {
	requestID := composables.UseRequestID(r.Context())
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}

	var dto decisionDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r.Body, &dto); err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, requestID, "INVALID_BODY", err.Error())
			return
		}
	}

	cr, err := op(r.Context(), id, changerequest.Phase(dto.ExpectedPhase))
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, c.render(r, cr))
}

func (c *ChangesAPIController) Submit(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}
	cr, err := c.service.Submit(r.Context(), id)
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, c.render(r, cr))
}

type setPhaseDTO struct {
	Phase string `json:"phase"`
}

func (c *ChangesAPIController) SetPhase(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}

	var dto setPhaseDTO
	if err := decodeJSON(r.Body, &dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, requestID, "INVALID_BODY", err.Error())
		return
	}

	cr, err := c.service.SetPhase(r.Context(), id, changerequest.Phase(dto.Phase))
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, c.render(r, cr))
}

type addCommentDTO struct {
	Body string `json:"body"`
}

func (c *ChangesAPIController) AddComment(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}

	var dto addCommentDTO
	if err := decodeJSON(r.Body, &dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, requestID, "INVALID_BODY", err.Error())
		return
	}

	comment, err := c.service.AddComment(r.Context(), id, dto.Body)
	if err != nil {
		c.writeServiceError(w, requestID, err)
		return
	}
	identities := c.identities(r, []string{comment.AuthorID()})
	_ = httpapi.WriteJSON(w, http.StatusCreated, mappers.CommentToViewModel(comment, identities))
}

func (c *ChangesAPIController) render(r *http.Request, cr changerequest.ChangeRequest) *viewmodels.ChangeRequest {
	ids := append([]string{cr.RequesterID()}, cr.RequiredApprovers()...)
	for _, comment := range cr.Comments() {
		ids = append(ids, comment.AuthorID())
	}
	return mappers.ChangeRequestToViewModel(cr, c.identities(r, ids))
}

func (c *ChangesAPIController) identitiesForAll(r *http.Request, items []changerequest.ChangeRequest) map[string]directory.DisplayInfo {
	var ids []string
	for _, cr := range items {
		ids = append(ids, cr.RequesterID())
		ids = append(ids, cr.RequiredApprovers()...)
	}
	return c.identities(r, ids)
}

// identities resolves display names, degrading to an empty map on lookup
// failure. The read path must keep working when the directory is down.
func (c *ChangesAPIController) identities(r *http.Request, ids []string) map[string]directory.DisplayInfo {
	if c.display == nil || len(ids) == 0 {
		return nil
	}
	identities, err := c.display.DisplayInfo(r.Context(), ids)
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Warn("display lookup failed")
		return nil
	}
	return identities
}

func pathID(w http.ResponseWriter, r *http.Request, requestID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, requestID, "INVALID_ID", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseIntQuery(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}

func decodeJSON(body io.ReadCloser, out any) error {
	defer func() { _ = body.Close() }()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func (c *ChangesAPIController) writeServiceError(w http.ResponseWriter, requestID string, err error) {
	switch {
	case errors.Is(err, changerequest.ErrNotFound):
		_ = httpapi.WriteError(w, http.StatusNotFound, requestID, "NOT_FOUND", "change request not found")
	case errors.Is(err, changerequest.ErrForbidden), errors.Is(err, composables.ErrNoActor):
		_ = httpapi.WriteError(w, http.StatusForbidden, requestID, "FORBIDDEN", "not allowed")
	case errors.Is(err, changerequest.ErrEmptyComment):
		_ = httpapi.WriteError(w, http.StatusBadRequest, requestID, "EMPTY_COMMENT", "comment body must not be empty")
	case errors.Is(err, changerequest.ErrInvalidInput):
		_ = httpapi.WriteError(w, http.StatusBadRequest, requestID, "INVALID_INPUT", err.Error())
	case errors.Is(err, changerequest.ErrStaleState):
		_ = httpapi.WriteError(w, http.StatusConflict, requestID, "STALE_STATE", "request changed since it was loaded")
	case errors.Is(err, changerequest.ErrPhaseRegression):
		_ = httpapi.WriteError(w, http.StatusConflict, requestID, "PHASE_REGRESSION", "phase may only move forward")
	case errors.Is(err, changerequest.ErrConflict):
		_ = httpapi.WriteError(w, http.StatusConflict, requestID, "CONFLICT", "concurrent modification, retry")
	case errors.Is(err, changerequest.ErrInvalidTransition):
		_ = httpapi.WriteError(w, http.StatusUnprocessableEntity, requestID, "INVALID_TRANSITION", "transition not allowed from current phase")
	case errors.Is(err, changerequest.ErrDependencyUnavailable):
		_ = httpapi.WriteError(w, http.StatusServiceUnavailable, requestID, "DEPENDENCY_UNAVAILABLE", "role lookup unavailable")
	default:
		var baseErr *serrors.BaseError
		if errors.As(err, &baseErr) {
			_ = httpapi.WriteError(w, http.StatusBadRequest, requestID, baseErr.Code, baseErr.Message)
			return
		}
		c.app.Logger().WithError(err).Error("unhandled API error")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, requestID, "INTERNAL", "internal error")
	}
}
