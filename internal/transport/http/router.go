// Package httptransport is the thin HTTP layer. Handlers delegate to the
// engine services without embedding business logic so transport concerns
// remain isolated.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	donorservice "hemobank/internal/donor/service"
	"hemobank/internal/eligibility"
	invservice "hemobank/internal/inventory/service"
	"hemobank/internal/platform/metrics"
	"hemobank/internal/platform/middleware"
	reqservice "hemobank/internal/request/service"
	"hemobank/pkg/requestcontext"
)

type Handler struct {
	donors   *donorservice.Service
	gate     *eligibility.Gate
	ledger   *invservice.Service
	requests *reqservice.Service
	logger   *slog.Logger
}

func NewHandler(donors *donorservice.Service, gate *eligibility.Gate, ledger *invservice.Service, requests *reqservice.Service, logger *slog.Logger) *Handler {
	return &Handler{
		donors:   donors,
		gate:     gate,
		ledger:   ledger,
		requests: requests,
		logger:   logger,
	}
}

// NewRouter wires all endpoints. Donor-facing routes require the donor role,
// partner routes the partner role; everything touching physical units or other
// people's requests is staff-only.
func NewRouter(h *Handler, validator middleware.TokenValidator, httpMetrics *metrics.HTTP) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}

	r.Get("/healthz", h.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	auth := middleware.RequireAuth(validator, h.logger)
	donorOnly := middleware.RequireRole(h.logger, requestcontext.RoleDonor)
	staffOnly := middleware.RequireRole(h.logger, requestcontext.RoleStaff)
	partnerOnly := middleware.RequireRole(h.logger, requestcontext.RolePartner)
	anyActor := middleware.RequireRole(h.logger,
		requestcontext.RoleDonor, requestcontext.RolePartner, requestcontext.RoleStaff)

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Group(func(r chi.Router) {
			r.Use(donorOnly)
			r.Post("/donors", h.handleRegisterDonor)
			r.Get("/donors/me", h.handleGetDonor)
			r.Get("/eligibility/donate", h.handleCheckDonate)
			r.Get("/eligibility/receive", h.handleCheckReceive)
			r.Post("/donations/schedule", h.handleScheduleDonation)
			r.Delete("/donations/schedule", h.handleCancelScheduled)
			r.Post("/requests/recipient", h.handleCreateRecipientRequest)
		})

		r.Group(func(r chi.Router) {
			r.Use(partnerOnly)
			r.Post("/requests/partner", h.handleCreatePartnerRequest)
		})

		r.Group(func(r chi.Router) {
			r.Use(anyActor)
			r.Get("/requests", h.handleListMyRequests)
			r.Get("/requests/{requestID}", h.handleGetRequest)
			r.Post("/requests/{requestID}/cancel", h.handleCancelRequest)
		})

		r.Group(func(r chi.Router) {
			r.Use(staffOnly)
			r.Post("/units/collect", h.handleCollectUnit)
			r.Get("/units/{unitID}", h.handleGetUnit)
			r.Post("/units/{unitID}/process", h.handleProcessUnit)
			r.Post("/units/{unitID}/discard", h.handleDiscardUnit)
			r.Post("/requests/{requestID}/allocate", h.handleAllocateRequest)
			r.Post("/requests/{requestID}/agree", h.handleAgreeRequest)
			r.Post("/requests/{requestID}/issue", h.handleIssueRequest)
			r.Post("/requests/{requestID}/reject", h.handleRejectRequest)
		})
	})

	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
