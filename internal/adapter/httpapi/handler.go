package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goalvault/goalvault-backend/internal/domain"
	"github.com/goalvault/goalvault-backend/internal/usecase/orchestrator"
)

// Handler exposes the orchestrator's submit/retry/reset operations and
// its current-state stream over HTTP JSON. It is presentation glue:
// all transfer semantics live in the orchestrator.
type Handler struct {
	Orchestrator *orchestrator.Orchestrator
}

// NewHandler creates a new HTTP handler for the given orchestrator
func NewHandler(o *orchestrator.Orchestrator) *Handler {
	return &Handler{Orchestrator: o}
}

// Register wires the handler's routes onto a mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/transfers", h.handleSubmit)
	mux.HandleFunc("/transfers/retry", h.handleRetry)
	mux.HandleFunc("/transfers/reset", h.handleReset)
	mux.HandleFunc("/transfers/state", h.handleState)
}

type submitRequest struct {
	SourceAccountID      string `json:"source_account_id"`
	DestinationAccountID string `json:"destination_account_id"`
	Amount               string `json:"amount"`
	Description          string `json:"description"`
}

type outcomeResponse struct {
	AuthorizationCreated bool   `json:"authorization_created"`
	TransferID           string `json:"transfer_id,omitempty"`
	ErrorKind            string `json:"error_kind,omitempty"`
	ErrorDetail          string `json:"error_detail,omitempty"`
}

type stateResponse struct {
	State                string           `json:"state"`
	Message              string           `json:"message"`
	AuthorizationCreated bool             `json:"authorization_created,omitempty"`
	Outcome              *outcomeResponse `json:"outcome,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sourceID, err := uuid.Parse(req.SourceAccountID)
	if err != nil {
		http.Error(w, "invalid source_account_id format", http.StatusBadRequest)
		return
	}

	destinationID, err := uuid.Parse(req.DestinationAccountID)
	if err != nil {
		http.Error(w, "invalid destination_account_id format", http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		http.Error(w, "invalid amount format", http.StatusBadRequest)
		return
	}

	transfer := &domain.TransferRequest{
		SourceAccountID:      sourceID,
		DestinationAccountID: destinationID,
		Amount:               amount,
		Description:          req.Description,
	}

	terminal, err := h.Orchestrator.Submit(r.Context(), transfer)
	if err != nil {
		writeOrchestratorError(w, err)
		return
	}

	writeUpdate(w, terminal)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	terminal, err := h.Orchestrator.Retry(r.Context())
	if err != nil {
		writeOrchestratorError(w, err)
		return
	}

	writeUpdate(w, terminal)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := h.Orchestrator.Reset(); err != nil {
		writeOrchestratorError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(stateResponse{State: string(domain.StateIdle)})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	update := h.Orchestrator.LastUpdate()
	if update == nil {
		update = &orchestrator.StateUpdate{State: h.Orchestrator.CurrentState()}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(toResponse(update))
}

// writeUpdate renders a terminal update. The HTTP status is derived
// from the classified error kind so API consumers that only look at
// status codes still get a usable signal.
func writeUpdate(w http.ResponseWriter, update *orchestrator.StateUpdate) {
	status := http.StatusOK
	if update.State == domain.StateError && update.Outcome != nil {
		status = kindToStatus(update.Outcome.ErrorKind)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(toResponse(update))
}

// writeOrchestratorError maps admission failures to HTTP statuses.
func writeOrchestratorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrTransferInFlight),
		errors.Is(err, orchestrator.ErrResetMidFlight),
		errors.Is(err, orchestrator.ErrRetryNotAllowed):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// kindToStatus converts classified error kinds to HTTP status codes
func kindToStatus(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrorKindValidation:
		return http.StatusBadRequest
	case domain.ErrorKindPermissionDenied:
		return http.StatusForbidden
	case domain.ErrorKindPartnerAuthorizationFailed,
		domain.ErrorKindPartnerInsufficientFunds,
		domain.ErrorKindPartnerOther:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func toResponse(update *orchestrator.StateUpdate) stateResponse {
	resp := stateResponse{
		State:                string(update.State),
		Message:              update.Message,
		AuthorizationCreated: update.AuthorizationCreated,
	}
	if update.Outcome != nil {
		resp.Outcome = &outcomeResponse{
			AuthorizationCreated: update.Outcome.AuthorizationCreated,
			TransferID:           update.Outcome.TransferID,
			ErrorKind:            string(update.Outcome.ErrorKind),
			ErrorDetail:          update.Outcome.ErrorDetail,
		}
	}
	return resp
}
