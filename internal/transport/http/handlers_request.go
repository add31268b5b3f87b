package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hemobank/internal/request"
	reqservice "hemobank/internal/request/service"
	id "hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/requestcontext"
)

type createRecipientRequest struct {
	ABOGroup    string     `json:"abo_group,omitempty"`
	RhFactor    string     `json:"rh_factor,omitempty"`
	Component   string     `json:"component"`
	PreferredAt *time.Time `json:"preferred_at,omitempty"`
	Note        string     `json:"note,omitempty"`
}

type createPartnerRequest struct {
	PatientName string     `json:"patient_name"`
	ABOGroup    string     `json:"abo_group,omitempty"`
	RhFactor    string     `json:"rh_factor,omitempty"`
	Component   string     `json:"component"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Note        string     `json:"note,omitempty"`
}

type requestResponse struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	PersonID     string     `json:"person_id"`
	PatientName  string     `json:"patient_name,omitempty"`
	BloodType    string     `json:"blood_type"`
	Component    string     `json:"component"`
	Status       string     `json:"status"`
	PreferredAt  *time.Time `json:"preferred_at,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	ReservedUnit string     `json:"reserved_unit_id,omitempty"`
	IssuanceID   string     `json:"issuance_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toRequestResponse(req *request.Request) requestResponse {
	resp := requestResponse{
		ID:          req.ID.String(),
		Kind:        string(req.Kind),
		PersonID:    req.PersonID.String(),
		PatientName: req.PatientName,
		BloodType:   req.BloodType.String(),
		Component:   string(req.Component),
		Status:      string(req.Status),
		PreferredAt: req.PreferredAt,
		Deadline:    req.Deadline,
		CreatedAt:   req.CreatedAt,
	}
	if req.ReservedUnitID != nil {
		resp.ReservedUnit = req.ReservedUnitID.String()
	}
	if req.IssuanceID != nil {
		resp.IssuanceID = req.IssuanceID.String()
	}
	return resp
}

// handleCreateRecipientRequest creates the request and immediately attempts
// allocation; exhausted stock is reported as allocated=false, not an error.
func (h *Handler) handleCreateRecipientRequest(w http.ResponseWriter, r *http.Request) {
	var body createRecipientRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	bloodType, err := parseBloodType(body.ABOGroup, body.RhFactor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	req, decision, err := h.requests.CreateRecipient(r.Context(), reqservice.CreateRecipientParams{
		PersonID:    requestcontext.PersonID(r.Context()),
		BloodType:   bloodType,
		Component:   id.Component(body.Component),
		PreferredAt: body.PreferredAt,
		Note:        body.Note,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !decision.Eligible {
		writeJSON(w, http.StatusUnprocessableEntity, decision)
		return
	}

	req, allocated, err := h.requests.Allocate(r.Context(), req.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"request":   toRequestResponse(req),
		"allocated": allocated,
	})
}

func (h *Handler) handleCreatePartnerRequest(w http.ResponseWriter, r *http.Request) {
	var body createPartnerRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	bloodType, err := parseBloodType(body.ABOGroup, body.RhFactor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	req, err := h.requests.CreatePartner(r.Context(), reqservice.CreatePartnerParams{
		PartnerID:   requestcontext.PersonID(r.Context()),
		PatientName: body.PatientName,
		BloodType:   bloodType,
		Component:   id.Component(body.Component),
		Deadline:    body.Deadline,
		Note:        body.Note,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	req, allocated, err := h.requests.Allocate(r.Context(), req.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"request":   toRequestResponse(req),
		"allocated": allocated,
	})
}

// authorizeRequestAccess limits request reads and cancellation to the person
// the request belongs to; staff can act on anyone's.
func authorizeRequestAccess(r *http.Request, req *request.Request) error {
	if requestcontext.ActorRole(r.Context()) == requestcontext.RoleStaff {
		return nil
	}
	if requestcontext.PersonID(r.Context()) == req.PersonID {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "request belongs to another person")
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req, err := h.requests.Get(r.Context(), requestID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := authorizeRequestAccess(r, req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *Handler) handleListMyRequests(w http.ResponseWriter, r *http.Request) {
	listed, err := h.requests.ListByPerson(r.Context(), requestcontext.PersonID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]requestResponse, 0, len(listed))
	for _, req := range listed {
		out = append(out, toRequestResponse(req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": out})
}

func (h *Handler) handleAllocateRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req, allocated, err := h.requests.Allocate(r.Context(), requestID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"request":   toRequestResponse(req),
		"allocated": allocated,
	})
}

func (h *Handler) handleAgreeRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req, err := h.requests.Agree(r.Context(), requestID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *Handler) handleIssueRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	record, err := h.requests.Issue(r.Context(), requestID, requestcontext.PersonID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"issuance_id": record.ID.String(),
		"request_id":  record.RequestID.String(),
		"unit_id":     record.UnitID.String(),
		"staff_id":    record.StaffID.String(),
		"issued_at":   record.IssuedAt,
	})
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req, err := h.requests.Get(r.Context(), requestID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := authorizeRequestAccess(r, req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.requests.Cancel(r.Context(), requestID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.requests.Reject(r.Context(), requestID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
