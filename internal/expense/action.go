package expense

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tickets/internal/auth"
	"github.com/frahmantamala/expense-tickets/internal/role"
)

// Action names one approval state machine transition.
type Action string

const (
	ActionValidate   Action = "validate"
	ActionUnvalidate Action = "unvalidate"
	ActionPay        Action = "pay"
	ActionUnpay      Action = "unpay"
	ActionReject     Action = "reject"
)

type transition struct {
	permission    string
	from          func(s Status) bool
	requireReason bool
	apply         func(e *Expense, actor, reason string)
}

func statusIs(want Status) func(Status) bool {
	return func(s Status) bool { return s == want }
}

// transitions is the only place that states who may perform an action and
// from which status.
var transitions = map[Action]transition{
	ActionValidate: {
		permission: role.TicketsValidate,
		from:       statusIs(StatusPending),
		apply: func(e *Expense, actor, _ string) {
			e.Validated = true
			e.ValidatedBy = strPtr(actor)
		},
	},
	ActionUnvalidate: {
		permission: role.TicketsUnvalidate,
		from:       statusIs(StatusValidated),
		apply: func(e *Expense, _, _ string) {
			e.Validated = false
			e.ValidatedBy = nil
		},
	},
	ActionPay: {
		permission: role.TicketsPay,
		from:       statusIs(StatusValidated),
		apply: func(e *Expense, actor, _ string) {
			e.Paid = true
			e.PaidBy = strPtr(actor)
		},
	},
	ActionUnpay: {
		permission: role.TicketsUnpay,
		from:       statusIs(StatusPaid),
		apply: func(e *Expense, _, _ string) {
			e.Paid = false
			e.PaidBy = nil
		},
	},
	// Accepted from any status. validated, paid and their actors are kept;
	// rejecting again re-stamps the actor and reason.
	ActionReject: {
		permission:    role.TicketsReject,
		from:          func(Status) bool { return true },
		requireReason: true,
		apply: func(e *Expense, actor, reason string) {
			e.Rejected = true
			e.RejectedBy = strPtr(actor)
			e.RejectionReason = strPtr(reason)
		},
	},
}

func Actions() []Action {
	return []Action{ActionValidate, ActionUnvalidate, ActionPay, ActionUnpay, ActionReject}
}

func ParseAction(raw string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := transitions[a]; !ok {
		return "", ErrUnknownAction.WithMessage(fmt.Sprintf("unknown ticket action %q", raw))
	}
	return a, nil
}

// RequiredPermission returns the permission action is gated on.
func RequiredPermission(a Action) (string, bool) {
	t, ok := transitions[a]
	return t.permission, ok
}

// ApplyAction checks and applies action to rec on behalf of actor. On success
// it returns an updated copy stamped with now; rec itself is never modified.
//
// Checks run in a fixed order: the action must exist, the record must be in
// a status the action accepts (and reject must carry a reason), then the
// actor's role must hold the action's permission.
func ApplyAction(ctx context.Context, authz auth.Authorizer, rec *Expense, action Action, actor *auth.Identity, reason string, now time.Time) (*Expense, error) {
	t, ok := transitions[action]
	if !ok {
		return nil, ErrUnknownAction
	}
	if actor == nil {
		return nil, auth.ErrUnauthenticated
	}

	reason = strings.TrimSpace(reason)
	if t.requireReason && reason == "" {
		return nil, ErrMissingReason
	}
	if status := rec.Status(); !t.from(status) {
		return nil, ErrInvalidState.WithMessage(fmt.Sprintf("cannot %s a %s ticket", action, status))
	}

	resource := fmt.Sprintf("ticket:%d", rec.ID)
	if err := authz.Authorize(ctx, actor, []string{t.permission}, resource); err != nil {
		return nil, err
	}

	next := rec.Clone()
	t.apply(next, actor.Subject, reason)
	next.UpdatedAt = now
	return next, nil
}
