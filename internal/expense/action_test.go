package expense_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-tickets/internal/auth"
	"github.com/frahmantamala/expense-tickets/internal/expense"
	"github.com/frahmantamala/expense-tickets/internal/role"
)

var _ = Describe("DeriveStatus", func() {
	DescribeTable("maps every flag combination onto exactly one status",
		func(validated, paid, rejected bool, want expense.Status) {
			Expect(expense.DeriveStatus(validated, paid, rejected)).To(Equal(want))
		},
		Entry("none", false, false, false, expense.StatusPending),
		Entry("validated", true, false, false, expense.StatusValidated),
		Entry("paid only", false, true, false, expense.StatusPaid),
		Entry("validated and paid", true, true, false, expense.StatusPaid),
		Entry("rejected", false, false, true, expense.StatusRejected),
		Entry("validated and rejected", true, false, true, expense.StatusRejected),
		Entry("paid and rejected", false, true, true, expense.StatusRejected),
		Entry("all flags", true, true, true, expense.StatusRejected),
	)

	It("parses only the four statuses", func() {
		for _, raw := range []string{"pending", "validated", "paid", "rejected"} {
			s, ok := expense.ParseStatus(raw)
			Expect(ok).To(BeTrue())
			Expect(string(s)).To(Equal(raw))
		}
		_, ok := expense.ParseStatus("approved")
		Expect(ok).To(BeFalse())
	})

	It("includes the derived status in the JSON payload", func() {
		rec := &expense.Expense{ID: 3, Validated: true, Amount: decimal.RequireFromString("12.50")}

		data, err := json.Marshal(rec)
		Expect(err).NotTo(HaveOccurred())

		var payload map[string]interface{}
		Expect(json.Unmarshal(data, &payload)).To(Succeed())
		Expect(payload["status"]).To(Equal("validated"))
		Expect(payload["id"]).To(BeEquivalentTo(3))
		Expect(payload["validated"]).To(BeTrue())
	})
})

var _ = Describe("ApplyAction", func() {
	var (
		ctx   context.Context
		guard *auth.Guard
		now   time.Time
		rec   *expense.Expense
	)

	BeforeEach(func() {
		ctx = context.Background()
		guard = newGuard(nil)
		now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		rec = &expense.Expense{
			ID:         7,
			CreatedBy:  "u1@example.com",
			Amount:     decimal.RequireFromString("20"),
			Categories: []string{"Dieta"},
			Version:    1,
			CreatedAt:  now.Add(-time.Hour),
			UpdatedAt:  now.Add(-time.Hour),
		}
	})

	It("rejects unknown actions", func() {
		_, err := expense.ParseAction("approve")
		Expect(errors.Is(err, expense.ErrUnknownAction)).To(BeTrue())

		_, err = expense.ApplyAction(ctx, guard, rec, expense.Action("approve"), identity("a@example.com", role.Admin), "", now)
		Expect(errors.Is(err, expense.ErrUnknownAction)).To(BeTrue())
	})

	It("parses actions case-insensitively", func() {
		a, err := expense.ParseAction("  Validate ")
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(expense.ActionValidate))
	})

	It("gates every action on exactly one catalog permission", func() {
		for _, a := range expense.Actions() {
			perm, ok := expense.RequiredPermission(a)
			Expect(ok).To(BeTrue())
			Expect(role.Catalog()).To(ContainElement(perm))
		}
	})

	DescribeTable("pay on a pending ticket is an invalid state for every role",
		func(roleName string) {
			// When
			_, err := expense.ApplyAction(ctx, guard, rec, expense.ActionPay, identity("x@example.com", roleName), "", now)

			// Then
			Expect(errors.Is(err, expense.ErrInvalidState)).To(BeTrue())
			Expect(errors.Is(err, auth.ErrForbidden)).To(BeFalse())
		},
		Entry("operari", role.Operari),
		Entry("supervisor", role.Supervisor),
		Entry("comptabilitat", role.Comptabilitat),
		Entry("admin", role.Admin),
		Entry("unknown role", "intern"),
	)

	DescribeTable("reject without a reason always fails with a missing reason",
		func(roleName, reason string) {
			_, err := expense.ApplyAction(ctx, guard, rec, expense.ActionReject, identity("x@example.com", roleName), reason, now)
			Expect(errors.Is(err, expense.ErrMissingReason)).To(BeTrue())
		},
		Entry("admin, empty", role.Admin, ""),
		Entry("supervisor, blank", role.Supervisor, "   "),
		Entry("operari, empty", role.Operari, ""),
		Entry("comptabilitat, empty", role.Comptabilitat, ""),
	)

	DescribeTable("reject with a reason succeeds for every holder of tickets:reject",
		func(roleName string) {
			// Given
			actor := identity("checker@example.com", roleName)

			// When
			next, err := expense.ApplyAction(ctx, guard, rec, expense.ActionReject, actor, "duplicate", now)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Status()).To(Equal(expense.StatusRejected))
			Expect(*next.RejectedBy).To(Equal("checker@example.com"))
			Expect(*next.RejectionReason).To(Equal("duplicate"))
		},
		Entry("supervisor", role.Supervisor),
		Entry("comptabilitat", role.Comptabilitat),
		Entry("admin", role.Admin),
	)

	It("forbids reject to a role without tickets:reject", func() {
		_, err := expense.ApplyAction(ctx, guard, rec, expense.ActionReject, identity("u1@example.com", role.Operari), "duplicate", now)
		Expect(errors.Is(err, auth.ErrForbidden)).To(BeTrue())
	})

	It("validates a pending ticket and stamps the actor and time", func() {
		next, err := expense.ApplyAction(ctx, guard, rec, expense.ActionValidate, identity("s1@example.com", role.Supervisor), "", now)

		Expect(err).NotTo(HaveOccurred())
		Expect(next.Status()).To(Equal(expense.StatusValidated))
		Expect(*next.ValidatedBy).To(Equal("s1@example.com"))
		Expect(next.UpdatedAt).To(Equal(now))
	})

	It("never modifies the record it was given", func() {
		before := rec.Clone()

		_, err := expense.ApplyAction(ctx, guard, rec, expense.ActionValidate, identity("s1@example.com", role.Supervisor), "", now)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec).To(Equal(before))

		_, err = expense.ApplyAction(ctx, guard, rec, expense.ActionValidate, identity("c1@example.com", role.Operari), "", now)
		Expect(errors.Is(err, auth.ErrForbidden)).To(BeTrue())
		Expect(rec).To(Equal(before))
	})

	It("lets comptabilitat validate", func() {
		next, err := expense.ApplyAction(ctx, guard, rec, expense.ActionValidate, identity("c1@example.com", role.Comptabilitat), "", now)
		Expect(err).NotTo(HaveOccurred())
		Expect(*next.ValidatedBy).To(Equal("c1@example.com"))
	})

	Context("reversals", func() {
		It("unvalidate needs a validated ticket", func() {
			_, err := expense.ApplyAction(ctx, guard, rec, expense.ActionUnvalidate, identity("s1@example.com", role.Supervisor), "", now)
			Expect(errors.Is(err, expense.ErrInvalidState)).To(BeTrue())

			rec.Validated = true
			next, err := expense.ApplyAction(ctx, guard, rec, expense.ActionUnvalidate, identity("s1@example.com", role.Supervisor), "", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Status()).To(Equal(expense.StatusPending))
			Expect(next.ValidatedBy).To(BeNil())
		})

		It("unpay needs a paid ticket and returns it to validated", func() {
			rec.Validated = true
			_, err := expense.ApplyAction(ctx, guard, rec, expense.ActionUnpay, identity("c1@example.com", role.Comptabilitat), "", now)
			Expect(errors.Is(err, expense.ErrInvalidState)).To(BeTrue())

			rec.Paid = true
			next, err := expense.ApplyAction(ctx, guard, rec, expense.ActionUnpay, identity("c1@example.com", role.Comptabilitat), "", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Status()).To(Equal(expense.StatusValidated))
			Expect(next.PaidBy).To(BeNil())
		})

		It("keeps a rejected ticket rejected through every reversal", func() {
			rec.Validated, rec.Paid, rec.Rejected = true, true, true
			admin := identity("a@example.com", role.Admin)

			for _, a := range []expense.Action{expense.ActionValidate, expense.ActionUnvalidate, expense.ActionPay, expense.ActionUnpay} {
				_, err := expense.ApplyAction(ctx, guard, rec, a, admin, "", now)
				Expect(errors.Is(err, expense.ErrInvalidState)).To(BeTrue(), "action %s", a)
			}
		})
	})

	It("re-stamps the actor and reason when a rejected ticket is rejected again", func() {
		// Given
		rec.Validated, rec.Rejected = true, true
		rec.RejectedBy = strPtr("s1@example.com")
		rec.RejectionReason = strPtr("missing receipt")

		// When
		next, err := expense.ApplyAction(ctx, guard, rec, expense.ActionReject, identity("c1@example.com", role.Comptabilitat), "duplicate", now)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Status()).To(Equal(expense.StatusRejected))
		Expect(*next.RejectedBy).To(Equal("c1@example.com"))
		Expect(*next.RejectionReason).To(Equal("duplicate"))
		Expect(next.Validated).To(BeTrue())
		Expect(next.UpdatedAt).To(Equal(now))
	})

	It("keeps the validation and payment trail on reject", func() {
		rec.Validated = true
		rec.ValidatedBy = strPtr("s1@example.com")

		next, err := expense.ApplyAction(ctx, guard, rec, expense.ActionReject, identity("s1@example.com", role.Supervisor), "duplicate", now)

		Expect(err).NotTo(HaveOccurred())
		Expect(next.Validated).To(BeTrue())
		Expect(*next.ValidatedBy).To(Equal("s1@example.com"))
		Expect(next.Status()).To(Equal(expense.StatusRejected))
	})

	It("publishes an audit record when the permission check fails", func() {
		pub := &recordingPublisher{}
		guard = newGuard(pub)

		_, err := expense.ApplyAction(ctx, guard, rec, expense.ActionValidate, identity("u1@example.com", role.Operari), "", now)

		Expect(errors.Is(err, auth.ErrForbidden)).To(BeTrue())
		Expect(pub.ofType("authz.access_denied")).To(HaveLen(1))
	})
})

func strPtr(s string) *string {
	return &s
}
