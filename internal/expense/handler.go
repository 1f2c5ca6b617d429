package expense

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	"github.com/frahmantamala/expense-tickets/internal/auth"
	"github.com/frahmantamala/expense-tickets/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, actor *auth.Identity, dto CreateTicketDTO) (*Expense, error)
	Get(ctx context.Context, actor *auth.Identity, id int64) (*Expense, error)
	List(ctx context.Context, actor *auth.Identity, f Filter) ([]*Expense, error)
	Mine(ctx context.Context, actor *auth.Identity) ([]*Expense, error)
	PendingAmount(ctx context.Context, actor *auth.Identity) (*PendingAmountResponse, error)
	Stats(ctx context.Context, actor *auth.Identity) (*Stats, error)
	Update(ctx context.Context, actor *auth.Identity, id int64, dto UpdateTicketDTO) (*Expense, error)
	Delete(ctx context.Context, actor *auth.Identity, id int64) error
	ApplyAction(ctx context.Context, actor *auth.Identity, id int64, action, reason string) (*Expense, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// CreateTicket handles POST /tickets
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var dto CreateTicketDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	ticket, err := h.Service.Create(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, ticket)
}

// ListTickets handles GET /tickets?status=&user=&project=
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	f := Filter{CreatedBy: q.Get("user"), Project: q.Get("project")}
	if raw := q.Get("status"); raw != "" {
		status, valid := ParseStatus(raw)
		if !valid {
			h.HandleServiceError(w, r, apperrors.NewValidationFieldError("status", "status must be one of pending, validated, paid, rejected", apperrors.ErrCodeValidationFailed))
			return
		}
		f.Status = status
	}

	tickets, err := h.Service.List(r.Context(), id, f)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.writeTickets(w, tickets)
}

// MyTickets handles GET /tickets/mine
func (h *Handler) MyTickets(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	tickets, err := h.Service.Mine(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.writeTickets(w, tickets)
}

func (h *Handler) PendingAmount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	res, err := h.Service.PendingAmount(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	stats, err := h.Service.Stats(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	ticketID, ok := h.ticketID(w, r)
	if !ok {
		return
	}

	ticket, err := h.Service.Get(r.Context(), id, ticketID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ticket)
}

// UpdateTicket handles PATCH /tickets/{id}
func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	ticketID, ok := h.ticketID(w, r)
	if !ok {
		return
	}

	var dto UpdateTicketDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	ticket, err := h.Service.Update(r.Context(), id, ticketID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ticket)
}

func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	ticketID, ok := h.ticketID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), id, ticketID); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyAction handles PUT /tickets/{id}/action
func (h *Handler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	ticketID, ok := h.ticketID(w, r)
	if !ok {
		return
	}

	var dto ActionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	ticket, err := h.Service.ApplyAction(r.Context(), id, ticketID, dto.Action, dto.Reason)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ticket)
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, auth.ErrUnauthenticated)
		return nil, false
	}
	return id, true
}

func (h *Handler) ticketID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.HandleServiceError(w, r, apperrors.NewValidationFieldError("id", "invalid ticket id", apperrors.ErrCodeValidationFailed))
		return 0, false
	}
	return id, true
}

func (h *Handler) writeTickets(w http.ResponseWriter, tickets []*Expense) {
	if tickets == nil {
		tickets = []*Expense{}
	}
	h.WriteJSON(w, http.StatusOK, TicketsResponse{Tickets: tickets})
}
