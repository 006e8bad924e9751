package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/gatepass/gatepass/internal/admin"
	"github.com/gatepass/gatepass/internal/auth"
	"github.com/gatepass/gatepass/internal/dismissal"
	"github.com/gatepass/gatepass/internal/limits"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store"
	"github.com/gatepass/gatepass/internal/tenant"
)

type scanRequest struct {
	CredentialID string    `json:"credential_id"`
	GateID       uuid.UUID `json:"gate_id"`
}

type pickupRequest struct {
	StudentID uuid.UUID `json:"student_id"`
}

type advanceRequest struct {
	Target models.DismissalStatus `json:"target"`
}

type createStudentRequest struct {
	OrgID        uuid.UUID  `json:"org_id"`
	GuardianID   uuid.UUID  `json:"guardian_id"`
	ClassID      *uuid.UUID `json:"class_id,omitempty"`
	Name         string     `json:"name"`
	CredentialID *string    `json:"credential_id,omitempty"`
}

type createStaffRequest struct {
	OrgID uuid.UUID   `json:"org_id"`
	Role  models.Role `json:"role"`
	Name  string      `json:"name"`
	Email *string     `json:"email,omitempty"`
}

type createClassRequest struct {
	OrgID      uuid.UUID   `json:"org_id"`
	Grade      string      `json:"grade"`
	Section    string      `json:"section"`
	TeacherIDs []uuid.UUID `json:"teacher_ids,omitempty"`
}

type createGateRequest struct {
	OrgID uuid.UUID `json:"org_id"`
	Name  string    `json:"name"`
}

type dismissalResponse struct {
	DismissalID uuid.UUID              `json:"dismissal_id"`
	StudentID   uuid.UUID              `json:"student_id"`
	GuardianID  uuid.UUID              `json:"guardian_id"`
	OrgID       uuid.UUID              `json:"org_id"`
	GateID      *uuid.UUID             `json:"gate_id,omitempty"`
	ScannedByID *uuid.UUID             `json:"scanned_by_id,omitempty"`
	Status      models.DismissalStatus `json:"status"`
	ScannedAt   time.Time              `json:"scanned_at"`
	CalledAt    *time.Time             `json:"called_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ConfirmedAt *time.Time             `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time             `json:"cancelled_at,omitempty"`
}

func asDismissalResponse(d *models.Dismissal) dismissalResponse {
	return dismissalResponse{
		DismissalID: d.DismissalID,
		StudentID:   d.StudentID,
		GuardianID:  d.GuardianID,
		OrgID:       d.OrgID,
		GateID:      d.GateID,
		ScannedByID: d.ScannedByID,
		Status:      d.Status,
		ScannedAt:   d.ScannedAt,
		CalledAt:    d.CalledAt,
		CompletedAt: d.CompletedAt,
		ConfirmedAt: d.ConfirmedAt,
		CancelledAt: d.CancelledAt,
	}
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	tc, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, r, tenant.ErrUnauthenticated)
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.CredentialID == "" || req.GateID == uuid.Nil {
		writeBadRequest(w, "credential_id and gate_id are required")
		return
	}

	created, err := s.engine.CreateFromScan(r.Context(), req.CredentialID, req.GateID, tc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]dismissalResponse, 0, len(created))
	for _, d := range created {
		resp = append(resp, asDismissalResponse(d))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"dismissals": resp})
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	tc, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, r, tenant.ErrUnauthenticated)
		return
	}

	var req pickupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.StudentID == uuid.Nil {
		writeBadRequest(w, "student_id is required")
		return
	}

	d, err := s.engine.CreateFromRequest(r.Context(), req.StudentID, tc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, asDismissalResponse(d))
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	tc, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, r, tenant.ErrUnauthenticated)
		return
	}

	dismissalID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeBadRequest(w, "invalid dismissal id")
		return
	}

	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	d, err := s.engine.Advance(r.Context(), dismissalID, req.Target, tc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, asDismissalResponse(d))
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	tc, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, r, tenant.ErrUnauthenticated)
		return
	}

	dismissalID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeBadRequest(w, "invalid dismissal id")
		return
	}

	d, err := s.engine.Confirm(r.Context(), dismissalID, tc.PrincipalID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, asDismissalResponse(d))
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	tc, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, r, tenant.ErrUnauthenticated)
		return
	}

	var q dismissal.ActiveQuery
	if raw := r.URL.Query().Get("org_id"); raw != "" {
		orgID, err := uuid.Parse(raw)
		if err != nil {
			writeBadRequest(w, "invalid org_id")
			return
		}
		q.OrgID = &orgID
	}
	if raw := r.URL.Query().Get("class_id"); raw != "" {
		classID, err := uuid.Parse(raw)
		if err != nil {
			writeBadRequest(w, "invalid class_id")
			return
		}
		q.ClassID = &classID
	}

	ds, err := s.engine.Active(r.Context(), tc, q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]dismissalResponse, 0, len(ds))
	for _, d := range ds {
		resp = append(resp, asDismissalResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"dismissals": resp})
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	tc, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, r, tenant.ErrUnauthenticated)
		return
	}

	var req createStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	student := &models.Student{
		OrgID:        req.OrgID,
		GuardianID:   req.GuardianID,
		ClassID:      req.ClassID,
		Name:         req.Name,
		CredentialID: req.CredentialID,
	}
	if err := s.provisioner.CreateStudent(r.Context(), student, tc); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"student_id": student.StudentID})
}

func (s *Server) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	tc, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, r, tenant.ErrUnauthenticated)
		return
	}

	var req createStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	principal := &models.Principal{
		OrgID: &req.OrgID,
		Role:  req.Role,
		Name:  req.Name,
		Email: req.Email,
	}
	if err := s.provisioner.CreateStaff(r.Context(), principal, tc); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"principal_id": principal.PrincipalID})
}

func (s *Server) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	tc, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, r, tenant.ErrUnauthenticated)
		return
	}

	var req createClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	class := &models.Class{
		OrgID:      req.OrgID,
		Grade:      req.Grade,
		Section:    req.Section,
		TeacherIDs: req.TeacherIDs,
	}
	if err := s.provisioner.CreateClass(r.Context(), class, tc); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"class_id": class.ClassID})
}

func (s *Server) handleCreateGate(w http.ResponseWriter, r *http.Request) {
	tc, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, r, tenant.ErrUnauthenticated)
		return
	}

	var req createGateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	gate := &models.Gate{
		OrgID:  req.OrgID,
		Name:   req.Name,
		Active: true,
	}
	if err := s.provisioner.CreateGate(r.Context(), gate, tc); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"gate_id": gate.GateID})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps core errors to HTTP responses with the error kind
// preserved. None of these are retried by this layer.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var kind string

	switch {
	case errors.Is(err, tenant.ErrUnauthenticated):
		status, kind = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, tenant.ErrCrossTenantAccess):
		status, kind = http.StatusForbidden, "cross_tenant_access"
	case errors.Is(err, dismissal.ErrSubscriptionInactive):
		status, kind = http.StatusForbidden, "subscription_inactive"
	case errors.Is(err, dismissal.ErrNotGuardian),
		errors.Is(err, dismissal.ErrRoleNotAllowed),
		errors.Is(err, admin.ErrRoleNotAllowed):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, dismissal.ErrInvalidTransition):
		status, kind = http.StatusConflict, "invalid_transition"
	case errors.Is(err, store.ErrDismissalImmutable):
		status, kind = http.StatusConflict, "dismissal_immutable"
	case errors.Is(err, limits.ErrLimitExceeded):
		status, kind = http.StatusUnprocessableEntity, "limit_exceeded"
	case errors.Is(err, store.ErrCredentialNotFound),
		errors.Is(err, store.ErrStudentNotFound),
		errors.Is(err, store.ErrDismissalNotFound),
		errors.Is(err, store.ErrGateNotFound),
		errors.Is(err, store.ErrPrincipalNotFound),
		errors.Is(err, store.ErrOrganizationNotFound):
		status, kind = http.StatusNotFound, "not_found"
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		status, kind = http.StatusInternalServerError, "internal"
	}

	writeJSON(w, status, errorResponse{Error: kind, Message: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
