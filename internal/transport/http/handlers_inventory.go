package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hemobank/internal/inventory"
	id "hemobank/pkg/domain"
)

type collectUnitRequest struct {
	DonorID  string `json:"donor_id"`
	ABOGroup string `json:"abo_group"`
	RhFactor string `json:"rh_factor"`
	// Component defaults to whole blood, the usual collection form.
	Component string `json:"component,omitempty"`
	VolumeML  int    `json:"volume_ml"`
}

type processUnitRequest struct {
	Splits []inventory.Split `json:"splits"`
}

type discardUnitRequest struct {
	Reason string `json:"reason"`
}

type unitResponse struct {
	ID          string     `json:"id"`
	DonorID     string     `json:"donor_id"`
	BloodType   string     `json:"blood_type"`
	Component   string     `json:"component"`
	VolumeML    int        `json:"volume_ml"`
	ParentID    string     `json:"parent_id,omitempty"`
	CollectedAt time.Time  `json:"collected_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Status      string     `json:"status"`
	ReservedFor string     `json:"reserved_for,omitempty"`
	IssuedAt    *time.Time `json:"issued_at,omitempty"`
}

func toUnitResponse(unit *inventory.BloodUnit) unitResponse {
	resp := unitResponse{
		ID:          unit.ID.String(),
		DonorID:     unit.DonorID.String(),
		BloodType:   unit.BloodType.String(),
		Component:   string(unit.Component),
		VolumeML:    unit.VolumeML,
		CollectedAt: unit.CollectedAt,
		ExpiresAt:   unit.ExpiresAt,
		Status:      string(unit.Status),
		IssuedAt:    unit.IssuedAt,
	}
	if unit.ParentID != nil {
		resp.ParentID = unit.ParentID.String()
	}
	if unit.ReservedFor != nil {
		resp.ReservedFor = unit.ReservedFor.String()
	}
	return resp
}

func (h *Handler) handleCollectUnit(w http.ResponseWriter, r *http.Request) {
	var body collectUnitRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	donorID, err := id.ParsePersonID(body.DonorID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	bloodType, err := parseBloodType(body.ABOGroup, body.RhFactor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	component := id.ComponentWholeBlood
	if body.Component != "" {
		component, err = id.ParseComponent(body.Component)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	unit, err := h.ledger.RecordCollection(r.Context(), donorID, bloodType, component, body.VolumeML)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUnitResponse(unit))
}

func (h *Handler) handleGetUnit(w http.ResponseWriter, r *http.Request) {
	unitID, err := id.ParseUnitID(chi.URLParam(r, "unitID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	unit, err := h.ledger.Get(r.Context(), unitID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUnitResponse(unit))
}

func (h *Handler) handleProcessUnit(w http.ResponseWriter, r *http.Request) {
	unitID, err := id.ParseUnitID(chi.URLParam(r, "unitID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var body processUnitRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	children, err := h.ledger.Process(r.Context(), unitID, body.Splits)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]unitResponse, 0, len(children))
	for _, child := range children {
		out = append(out, toUnitResponse(child))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"units": out})
}

func (h *Handler) handleDiscardUnit(w http.ResponseWriter, r *http.Request) {
	unitID, err := id.ParseUnitID(chi.URLParam(r, "unitID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var body discardUnitRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.ledger.Discard(r.Context(), unitID, body.Reason); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
