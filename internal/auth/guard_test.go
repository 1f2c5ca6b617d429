package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	"github.com/frahmantamala/expense-tickets/internal/auth"
	"github.com/frahmantamala/expense-tickets/internal/core/events"
	"github.com/frahmantamala/expense-tickets/internal/role"
)

var _ = Describe("ResolveRole", func() {
	It("prefers the live user role", func() {
		Expect(auth.ResolveRole("Administrador", "operari")).To(Equal(role.Admin))
	})

	It("falls back to the claimed role when the user has none", func() {
		Expect(auth.ResolveRole("  ", "Operaria")).To(Equal(role.Operari))
	})
})

var _ = Describe("Guard", func() {
	var (
		ctx       context.Context
		codec     *auth.TokenCodec
		accounts  *mockAccountStore
		roles     *mockRoleLookup
		revoker   *auth.MemoryRevoker
		publisher *recordingPublisher
		guard     *auth.Guard
	)

	BeforeEach(func() {
		ctx = context.Background()
		codec = auth.NewTokenCodec(testSecret)
		accounts = newMockAccountStore(
			&auth.Account{Email: "u1@example.com", Role: "operari", IsActive: true},
			&auth.Account{Email: "promoted@example.com", Role: "admin", IsActive: true},
			&auth.Account{Email: "blank@example.com", Role: "", IsActive: true},
			&auth.Account{Email: "gone@example.com", Role: "operari", IsActive: false},
			&auth.Account{Email: "orphan@example.com", Role: "auditor", IsActive: true},
		)
		roles = newBaselineRoles()
		revoker = auth.NewMemoryRevoker(100, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
		publisher = &recordingPublisher{}
		guard = auth.NewGuard(codec, revoker, accounts, roles, publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	issue := func(subject, claimed string) string {
		token, _, err := codec.Encode(subject, claimed, time.Hour)
		Expect(err).NotTo(HaveOccurred())
		return token
	}

	Describe("Authenticate", func() {
		It("resolves the effective role from the live user record", func() {
			// Given a token issued while the user was still an operari
			token := issue("promoted@example.com", "operari")

			// When
			id, err := guard.Authenticate(ctx, token)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(id.Subject).To(Equal("promoted@example.com"))
			Expect(id.EffectiveRole).To(Equal(role.Admin))
			Expect(id.ClaimedRole).To(Equal("operari"))
		})

		It("falls back to the claimed role when the record has none", func() {
			id, err := guard.Authenticate(ctx, issue("blank@example.com", "Supervisora"))
			Expect(err).NotTo(HaveOccurred())
			Expect(id.EffectiveRole).To(Equal(role.Supervisor))
		})

		It("rejects missing and invalid tokens", func() {
			_, err := guard.Authenticate(ctx, "")
			Expect(errors.Is(err, auth.ErrUnauthenticated)).To(BeTrue())

			_, err = guard.Authenticate(ctx, "garbage")
			Expect(errors.Is(err, auth.ErrUnauthenticated)).To(BeTrue())
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		})

		It("rejects tokens whose subject no longer exists", func() {
			_, err := guard.Authenticate(ctx, issue("deleted@example.com", "admin"))
			Expect(errors.Is(err, auth.ErrUnauthenticated)).To(BeTrue())
		})

		It("rejects inactive users", func() {
			_, err := guard.Authenticate(ctx, issue("gone@example.com", "operari"))
			Expect(errors.Is(err, auth.ErrUnauthenticated)).To(BeTrue())
		})

		It("rejects revoked tokens", func() {
			token := issue("u1@example.com", "operari")
			claims, err := codec.Decode(token)
			Expect(err).NotTo(HaveOccurred())
			Expect(revoker.Revoke(ctx, claims.ID, claims.Expiry())).To(Succeed())

			_, err = guard.Authenticate(ctx, token)
			Expect(errors.Is(err, auth.ErrUnauthenticated)).To(BeTrue())
		})

		It("propagates user store failures", func() {
			accounts.err = errors.New("connection reset")
			_, err := guard.Authenticate(ctx, issue("u1@example.com", "operari"))
			Expect(err).To(MatchError("connection reset"))
		})
	})

	Describe("Authorize", func() {
		DescribeTable("grants exactly when required is a subset of the role's permissions",
			func(effectiveRole string, required []string, allowed bool) {
				id := &auth.Identity{Subject: "x@example.com", EffectiveRole: effectiveRole}
				err := guard.Authorize(ctx, id, required, "test")
				if allowed {
					Expect(err).NotTo(HaveOccurred())
				} else {
					Expect(errors.Is(err, auth.ErrForbidden)).To(BeTrue())
				}
			},
			Entry("empty set for operari", role.Operari, []string{}, true),
			Entry("empty set for an unknown role", "auditor", []string(nil), true),
			Entry("operari creates", role.Operari, []string{role.TicketsCreate}, true),
			Entry("operari validates", role.Operari, []string{role.TicketsValidate}, false),
			Entry("supervisor validates and rejects", role.Supervisor, []string{role.TicketsValidate, role.TicketsReject}, true),
			Entry("comptabilitat pays", role.Comptabilitat, []string{role.TicketsPay}, true),
			Entry("comptabilitat creates", role.Comptabilitat, []string{role.TicketsCreate}, false),
			Entry("admin manages roles", role.Admin, []string{role.RolesManage, role.UsersManage}, true),
			Entry("partial overlap", role.Operari, []string{role.TicketsView, role.TicketsPay}, false),
			Entry("unknown role", "auditor", []string{role.TicketsView}, false),
		)

		It("publishes an audit record on denial", func() {
			id := &auth.Identity{Subject: "u1@example.com", EffectiveRole: role.Operari}

			err := guard.Authorize(ctx, id, []string{role.TicketsPay}, "ticket:7")
			Expect(errors.Is(err, auth.ErrForbidden)).To(BeTrue())

			published := publisher.Published()
			Expect(published).To(HaveLen(1))
			denied, ok := published[0].(*events.AccessDeniedEvent)
			Expect(ok).To(BeTrue())
			Expect(denied.Subject).To(Equal("u1@example.com"))
			Expect(denied.EffectiveRole).To(Equal(role.Operari))
			Expect(denied.Required).To(Equal([]string{role.TicketsPay}))
			Expect(denied.Have).To(ConsistOf(role.TicketsCreate, role.TicketsDelete, role.TicketsView))
			Expect(denied.Resource).To(Equal("ticket:7"))
		})

		It("does not publish when access is granted", func() {
			id := &auth.Identity{Subject: "u1@example.com", EffectiveRole: role.Operari}
			Expect(guard.Authorize(ctx, id, []string{role.TicketsView}, "tickets")).To(Succeed())
			Expect(publisher.Published()).To(BeEmpty())
		})

		It("fails closed when the role store is unavailable", func() {
			roles.err = apperrors.NewInternalError("db down", nil)
			id := &auth.Identity{Subject: "u1@example.com", EffectiveRole: role.Admin}
			Expect(guard.Authorize(ctx, id, []string{role.TicketsView}, "tickets")).NotTo(Succeed())
		})

		It("rejects a missing identity", func() {
			err := guard.Authorize(ctx, nil, nil, "tickets")
			Expect(errors.Is(err, auth.ErrUnauthenticated)).To(BeTrue())
		})
	})
})
