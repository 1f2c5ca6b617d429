package expense_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	"github.com/frahmantamala/expense-tickets/internal/auth"
	"github.com/frahmantamala/expense-tickets/internal/expense"
	"github.com/frahmantamala/expense-tickets/internal/role"
)

var _ = Describe("Expense Handler", func() {
	var (
		router  *chi.Mux
		current *auth.Identity
	)

	BeforeEach(func() {
		svc := expense.NewService(newMemRepository(), &mockReporter{}, defaultCategories{}, newGuard(nil), discardLogger())
		h := expense.NewHandler(svc, discardLogger())
		current = identity("u1@example.com", role.Operari)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if current != nil {
					r = r.WithContext(auth.ContextWithIdentity(r.Context(), current))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Route("/tickets", func(r chi.Router) {
			r.Get("/", h.ListTickets)
			r.Post("/", h.CreateTicket)
			r.Get("/mine", h.MyTickets)
			r.Get("/pending-amount", h.PendingAmount)
			r.Get("/stats", h.Stats)
			r.Get("/{id}", h.GetTicket)
			r.Patch("/{id}", h.UpdateTicket)
			r.Delete("/{id}", h.DeleteTicket)
			r.Put("/{id}/action", h.ApplyAction)
		})
	})

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decodeTicket := func(w *httptest.ResponseRecorder) map[string]interface{} {
		var payload map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&payload)).To(Succeed())
		return payload
	}

	errorCode := func(w *httptest.ResponseRecorder) apperrors.ErrorCode {
		var resp struct {
			Error apperrors.AppError `json:"error"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		return resp.Error.Code
	}

	It("creates a fuel ticket with the server side amount", func() {
		w := serve(http.MethodPost, "/tickets/", `{"categories":["Gasolina"],"amount":"1.00","kilometers":100,"price_per_km":"0.57"}`)

		Expect(w.Code).To(Equal(http.StatusCreated))
		payload := decodeTicket(w)
		Expect(payload["amount"]).To(Equal("57"))
		Expect(payload["status"]).To(Equal("pending"))
		Expect(payload["created_by"]).To(Equal("u1@example.com"))
	})

	It("moves a ticket through an action", func() {
		w := serve(http.MethodPost, "/tickets/", `{"categories":["Dieta"],"amount":12}`)
		Expect(w.Code).To(Equal(http.StatusCreated))
		id := decodeTicket(w)["id"]

		current = identity("s1@example.com", role.Supervisor)
		w = serve(http.MethodPut, fmt.Sprintf("/tickets/%v/action", id), `{"action":"validate"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decodeTicket(w)["status"]).To(Equal("validated"))

		w = serve(http.MethodPut, fmt.Sprintf("/tickets/%v/action", id), `{"action":"validate"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorCode(w)).To(Equal(apperrors.ErrCodeInvalidState))

		w = serve(http.MethodPut, fmt.Sprintf("/tickets/%v/action", id), `{"action":"reject"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorCode(w)).To(Equal(apperrors.ErrCodeMissingReason))
	})

	It("answers 403 when the role lacks the permission", func() {
		w := serve(http.MethodPost, "/tickets/", `{"categories":["Dieta"],"amount":12}`)
		id := decodeTicket(w)["id"]

		w = serve(http.MethodPut, fmt.Sprintf("/tickets/%v/action", id), `{"action":"validate"}`)
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(errorCode(w)).To(Equal(apperrors.ErrCodeForbidden))
	})

	It("answers 401 without an identity", func() {
		current = nil
		w := serve(http.MethodGet, "/tickets/mine", "")
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("validates path and query parameters", func() {
		Expect(serve(http.MethodGet, "/tickets/abc", "").Code).To(Equal(http.StatusBadRequest))
		Expect(serve(http.MethodGet, "/tickets/?status=approved", "").Code).To(Equal(http.StatusBadRequest))
		Expect(serve(http.MethodGet, "/tickets/99", "").Code).To(Equal(http.StatusNotFound))
	})

	It("lists tickets in an envelope and deletes pending ones", func() {
		w := serve(http.MethodPost, "/tickets/", `{"categories":["Dieta"],"amount":12}`)
		id := decodeTicket(w)["id"]

		w = serve(http.MethodGet, "/tickets/?status=pending", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var resp struct {
			Tickets []map[string]interface{} `json:"tickets"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Tickets).To(HaveLen(1))

		w = serve(http.MethodDelete, fmt.Sprintf("/tickets/%v", id), "")
		Expect(w.Code).To(Equal(http.StatusNoContent))

		w = serve(http.MethodGet, "/tickets/mine", "")
		Expect(w.Body.String()).To(ContainSubstring(`"tickets":[]`))
	})

	It("reports stats and pending amount", func() {
		Expect(serve(http.MethodGet, "/tickets/stats", "").Code).To(Equal(http.StatusOK))
		Expect(serve(http.MethodGet, "/tickets/pending-amount", "").Code).To(Equal(http.StatusOK))
	})
})
