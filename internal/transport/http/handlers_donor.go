package httptransport

import (
	"net/http"
	"time"

	id "hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/requestcontext"
)

type registerDonorRequest struct {
	ABOGroup string `json:"abo_group"`
	RhFactor string `json:"rh_factor"`
}

type donorResponse struct {
	PersonID           string     `json:"person_id"`
	BloodType          string     `json:"blood_type"`
	LastDonationAt     *time.Time `json:"last_donation_at,omitempty"`
	Commitment         string     `json:"commitment"`
	ProcessedDonations int        `json:"processed_donations"`
}

func (h *Handler) handleRegisterDonor(w http.ResponseWriter, r *http.Request) {
	var body registerDonorRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	bloodType, err := parseBloodType(body.ABOGroup, body.RhFactor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	record, err := h.donors.Register(r.Context(), requestcontext.PersonID(r.Context()), bloodType)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, donorResponse{
		PersonID:           record.PersonID.String(),
		BloodType:          record.BloodType.String(),
		Commitment:         string(record.Commitment),
		ProcessedDonations: record.ProcessedDonations,
	})
}

func (h *Handler) handleGetDonor(w http.ResponseWriter, r *http.Request) {
	record, err := h.donors.Get(r.Context(), requestcontext.PersonID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, donorResponse{
		PersonID:           record.PersonID.String(),
		BloodType:          record.BloodType.String(),
		LastDonationAt:     record.LastDonationAt,
		Commitment:         string(record.Commitment),
		ProcessedDonations: record.ProcessedDonations,
	})
}

func (h *Handler) handleCheckDonate(w http.ResponseWriter, r *http.Request) {
	decision, err := h.gate.CanDonate(r.Context(), requestcontext.PersonID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (h *Handler) handleCheckReceive(w http.ResponseWriter, r *http.Request) {
	decision, err := h.gate.CanRequestReception(r.Context(), requestcontext.PersonID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (h *Handler) handleScheduleDonation(w http.ResponseWriter, r *http.Request) {
	decision, err := h.donors.ScheduleDonation(r.Context(), requestcontext.PersonID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !decision.Eligible {
		writeJSON(w, http.StatusUnprocessableEntity, decision)
		return
	}
	writeJSON(w, http.StatusCreated, decision)
}

func (h *Handler) handleCancelScheduled(w http.ResponseWriter, r *http.Request) {
	if err := h.donors.CancelScheduled(r.Context(), requestcontext.PersonID(r.Context())); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseBloodType(abo, rh string) (id.BloodType, error) {
	group, err := id.ParseABOGroup(abo)
	if err != nil {
		return id.BloodType{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid ABO group")
	}
	factor, err := id.ParseRh(rh)
	if err != nil {
		return id.BloodType{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid Rh factor")
	}
	return id.BloodType{ABO: group, Rh: factor}, nil
}
