package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/expense-tickets/internal/auth"
)

var _ = Describe("Auth Handler", func() {
	var (
		handler *auth.Handler
		guard   *auth.Guard
	)

	BeforeEach(func() {
		hash, err := auth.HashPassword("secret-pass", bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())

		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		codec := auth.NewTokenCodec(testSecret)
		accounts := newMockAccountStore(&auth.Account{Email: "s1@example.com", Role: "supervisor", PasswordHash: hash, IsActive: true})
		revoker := auth.NewMemoryRevoker(100, time.Hour, lg)
		guard = auth.NewGuard(codec, revoker, accounts, newBaselineRoles(), nil, lg)
		svc := auth.NewService(accounts, codec, revoker, guard, time.Hour, lg)
		handler = auth.NewHandler(svc, "access_token", false, lg)
	})

	login := func() *httptest.ResponseRecorder {
		body := strings.NewReader(`{"email":"s1@example.com","password":"secret-pass"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
		w := httptest.NewRecorder()
		handler.Login(w, req)
		return w
	}

	It("sets an http-only session cookie on login", func() {
		w := login()
		Expect(w.Code).To(Equal(http.StatusOK))

		var session auth.Session
		Expect(json.NewDecoder(w.Body).Decode(&session)).To(Succeed())
		Expect(session.Token).NotTo(BeEmpty())

		cookies := w.Result().Cookies()
		Expect(cookies).To(HaveLen(1))
		Expect(cookies[0].Name).To(Equal("access_token"))
		Expect(cookies[0].HttpOnly).To(BeTrue())
		Expect(cookies[0].Value).To(Equal(session.Token))
	})

	It("answers 401 on bad credentials", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"s1@example.com","password":"wrong"}`))
		w := httptest.NewRecorder()
		handler.Login(w, req)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("answers 400 on malformed bodies", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":`))
		w := httptest.NewRecorder()
		handler.Login(w, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("revokes the cookie session on logout", func() {
		var session auth.Session
		Expect(json.NewDecoder(login().Body).Decode(&session)).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: session.Token})
		w := httptest.NewRecorder()
		handler.Logout(w, req)

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(w.Result().Cookies()[0].MaxAge).To(BeNumerically("<", 0))

		_, err := guard.Authenticate(context.Background(), session.Token)
		Expect(err).To(HaveOccurred())
	})

	It("returns the caller profile from the request identity", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req = req.WithContext(auth.ContextWithIdentity(req.Context(), &auth.Identity{Subject: "s1@example.com", EffectiveRole: "supervisor"}))
		w := httptest.NewRecorder()
		handler.Me(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var profile auth.Profile
		Expect(json.NewDecoder(w.Body).Decode(&profile)).To(Succeed())
		Expect(profile.Role).To(Equal("supervisor"))
	})

	It("answers 401 without an identity", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		w := httptest.NewRecorder()
		handler.Me(w, req)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})
})
