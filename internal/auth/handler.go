package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/expense-tickets/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service      ServiceAPI
	CookieName   string
	CookieSecure bool
}

func NewHandler(svc ServiceAPI, cookieName string, cookieSecure bool, lg *slog.Logger) *Handler {
	if cookieName == "" {
		cookieName = transport.DefaultTokenCookie
	}
	return &Handler{
		BaseHandler:  transport.NewBaseHandler(lg),
		Service:      svc,
		CookieName:   cookieName,
		CookieSecure: cookieSecure,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	session, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	h.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := transport.ExtractToken(r, h.CookieName)
	if token != "" {
		if err := h.Service.Logout(r.Context(), token); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, ErrUnauthenticated)
		return
	}

	profile, err := h.Service.Me(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}
