package siteconfig

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-tickets/internal/transport"
)

type ServiceAPI interface {
	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, updates map[string]string) (map[string]string, error)
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

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	values, err := h.Service.All(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, values)
}

func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := h.DecodeJSON(r, &updates); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	values, err := h.Service.Set(r.Context(), updates)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, values)
}
