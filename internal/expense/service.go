package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	"github.com/frahmantamala/expense-tickets/internal/auth"
	"github.com/frahmantamala/expense-tickets/internal/category"
	"github.com/frahmantamala/expense-tickets/internal/core/common/validation"
	"github.com/frahmantamala/expense-tickets/internal/core/events"
	"github.com/frahmantamala/expense-tickets/internal/metrics"
	"github.com/frahmantamala/expense-tickets/internal/role"
)

const dateLayout = "2006-01-02"

type Repository interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, id int64) (*Expense, error)
	List(ctx context.Context, f Filter) ([]*Expense, error)
	// Mutate loads the ticket under a row lock, passes it to fn and stores
	// the record fn returns. It fails with ErrConcurrentUpdate when the
	// stored version moved in between.
	Mutate(ctx context.Context, id int64, fn func(current *Expense) (*Expense, error)) (*Expense, error)
	// DeleteIf removes the ticket when check accepts the locked record and
	// returns the record as it was.
	DeleteIf(ctx context.Context, id int64, check func(current *Expense) error) (*Expense, error)
}

// Reporter answers the aggregate queries.
type Reporter interface {
	PendingAmount(ctx context.Context, createdBy string) (decimal.Decimal, int64, error)
	Stats(ctx context.Context, createdBy string) (*Stats, error)
}

type CategoryResolver interface {
	Resolve(ctx context.Context, names []string) (*category.Selection, error)
}

// MediaReleaser removes an attachment once its ticket is gone. Release must
// not block.
type MediaReleaser interface {
	Release(path string)
}

type Service struct {
	repo       Repository
	reports    Reporter
	categories CategoryResolver
	authz      auth.Authorizer
	publisher  auth.EventPublisher
	media      MediaReleaser
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPublisher(p auth.EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMedia(m MediaReleaser) Option {
	return func(s *Service) { s.media = m }
}

func NewService(repo Repository, reports Reporter, categories CategoryResolver, authz auth.Authorizer, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		reports:    reports,
		categories: categories,
		authz:      authz,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new pending ticket owned by actor.
func (s *Service) Create(ctx context.Context, actor *auth.Identity, dto CreateTicketDTO) (*Expense, error) {
	if err := s.authz.Authorize(ctx, actor, []string{role.TicketsCreate}, "tickets"); err != nil {
		return nil, err
	}
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	sel, err := s.categories.Resolve(ctx, dto.Categories)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec := &Expense{
		CreatedBy:      actor.Subject,
		Categories:     sel.Names,
		Description:    strings.TrimSpace(dto.Description),
		Project:        strings.TrimSpace(dto.Project),
		AttachmentPath: normalizePath(dto.AttachmentPath),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if rec.ExpenseDate, err = parseDate(dto.ExpenseDate, now); err != nil {
		return nil, err
	}
	if err := priceTicket(rec, sel, dto.Amount, dto.Kilometers, dto.PricePerKm); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to create ticket", "created_by", actor.Subject, "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "ticket created",
		"ticket_id", rec.ID,
		"created_by", rec.CreatedBy,
		"amount", rec.Amount.StringFixed(2),
		"categories", rec.Categories)
	s.publish(ctx, events.NewTicketCreatedEvent(rec.ID, rec.CreatedBy, rec.Amount.StringFixed(2)))
	return rec, nil
}

// Get returns one ticket. Operaris only ever see their own tickets.
func (s *Service) Get(ctx context.Context, actor *auth.Identity, id int64) (*Expense, error) {
	if err := s.authz.Authorize(ctx, actor, []string{role.TicketsView}, ticketResource(id)); err != nil {
		return nil, err
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner := ownScope(actor); owner != "" && !rec.IsOwnedBy(owner) {
		return nil, ErrTicketNotFound
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, actor *auth.Identity, f Filter) ([]*Expense, error) {
	if err := s.authz.Authorize(ctx, actor, []string{role.TicketsView}, "tickets"); err != nil {
		return nil, err
	}
	if owner := ownScope(actor); owner != "" {
		f.CreatedBy = owner
	}
	return s.repo.List(ctx, f)
}

// Mine lists the tickets actor created, whatever their role.
func (s *Service) Mine(ctx context.Context, actor *auth.Identity) ([]*Expense, error) {
	if actor == nil {
		return nil, auth.ErrUnauthenticated
	}
	return s.repo.List(ctx, Filter{CreatedBy: actor.Subject})
}

// PendingAmount sums actor's tickets that are neither paid nor rejected.
func (s *Service) PendingAmount(ctx context.Context, actor *auth.Identity) (*PendingAmountResponse, error) {
	if actor == nil {
		return nil, auth.ErrUnauthenticated
	}
	amount, count, err := s.reports.PendingAmount(ctx, actor.Subject)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to compute pending amount", "subject", actor.Subject, "error", err)
		return nil, err
	}
	return &PendingAmountResponse{Amount: amount.Round(2), Count: count}, nil
}

func (s *Service) Stats(ctx context.Context, actor *auth.Identity) (*Stats, error) {
	if err := s.authz.Authorize(ctx, actor, []string{role.TicketsView}, "tickets:stats"); err != nil {
		return nil, err
	}
	stats, err := s.reports.Stats(ctx, ownScope(actor))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to compute ticket stats", "error", err)
		return nil, err
	}
	return stats, nil
}

// Update applies an owner edit. Only the owner may edit, and only while the
// ticket is pending.
func (s *Service) Update(ctx context.Context, actor *auth.Identity, id int64, dto UpdateTicketDTO) (*Expense, error) {
	if actor == nil {
		return nil, auth.ErrUnauthenticated
	}
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	updated, err := s.repo.Mutate(ctx, id, func(current *Expense) (*Expense, error) {
		if !current.IsOwnedBy(actor.Subject) {
			return nil, auth.ErrForbidden.WithMessage("only the owner can edit a ticket")
		}
		if !current.IsPending() {
			return nil, ErrInvalidState.WithMessage(fmt.Sprintf("cannot edit a %s ticket", current.Status()))
		}
		return s.applyEdit(ctx, current.Clone(), dto)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "ticket updated", "ticket_id", id, "subject", actor.Subject, "amount", updated.Amount.StringFixed(2))
	return updated, nil
}

func (s *Service) applyEdit(ctx context.Context, next *Expense, dto UpdateTicketDTO) (*Expense, error) {
	names := next.Categories
	if len(dto.Categories) > 0 {
		names = dto.Categories
	}
	sel, err := s.categories.Resolve(ctx, names)
	if err != nil {
		return nil, err
	}
	next.Categories = sel.Names

	if dto.Description != nil {
		next.Description = strings.TrimSpace(*dto.Description)
	}
	if dto.Project != nil {
		next.Project = strings.TrimSpace(*dto.Project)
	}
	if dto.ExpenseDate != nil {
		if next.ExpenseDate, err = parseDate(*dto.ExpenseDate, next.ExpenseDate); err != nil {
			return nil, err
		}
	}
	if dto.AttachmentPath != nil {
		next.AttachmentPath = normalizePath(dto.AttachmentPath)
	}

	amount, km, price := dto.Amount, dto.Kilometers, dto.PricePerKm
	if !amount.Valid {
		amount = decimal.NewNullDecimal(next.Amount)
	}
	if !km.Valid {
		km = next.Kilometers
	}
	if !price.Valid {
		price = next.PricePerKm
	}
	if err := priceTicket(next, sel, amount, km, price); err != nil {
		return nil, err
	}

	next.UpdatedAt = s.now()
	return next, nil
}

// Delete removes a pending ticket. The owner or an admin may delete it; its
// attachment is released once the row is gone.
func (s *Service) Delete(ctx context.Context, actor *auth.Identity, id int64) error {
	if err := s.authz.Authorize(ctx, actor, []string{role.TicketsDelete}, ticketResource(id)); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteIf(ctx, id, func(current *Expense) error {
		if !current.IsOwnedBy(actor.Subject) && !actor.IsAdmin() {
			return auth.ErrForbidden.WithMessage("only the owner or an admin can delete a ticket")
		}
		if !current.IsPending() {
			return ErrInvalidState.WithMessage(fmt.Sprintf("cannot delete a %s ticket", current.Status()))
		}
		return nil
	})
	if err != nil {
		return err
	}

	var path string
	if deleted.AttachmentPath != nil {
		path = *deleted.AttachmentPath
		if s.media != nil {
			s.media.Release(path)
		}
	}

	s.logger.InfoContext(ctx, "ticket deleted", "ticket_id", id, "deleted_by", actor.Subject, "attachment", path)
	s.publish(ctx, events.NewTicketDeletedEvent(id, actor.Subject, path))
	return nil
}

// ApplyAction runs one approval transition against the locked ticket.
func (s *Service) ApplyAction(ctx context.Context, actor *auth.Identity, id int64, rawAction, reason string) (*Expense, error) {
	action, err := ParseAction(rawAction)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Mutate(ctx, id, func(current *Expense) (*Expense, error) {
		return ApplyAction(ctx, s.authz, current, action, actor, reason, s.now())
	})
	metrics.TicketActionsTotal.WithLabelValues(string(action), actionResult(err)).Inc()
	if err != nil {
		if _, ok := apperrors.IsAppError(err); !ok {
			s.logger.ErrorContext(ctx, "ticket action failed", "ticket_id", id, "action", action, "error", err)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "ticket action applied",
		"ticket_id", id,
		"action", action,
		"actor", actor.Subject,
		"status", updated.Status())
	s.publish(ctx, events.NewTicketActionEvent(id, string(action), actor.Subject, string(updated.Status())))
	return updated, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

// priceTicket sets the amount of rec. Fuel tickets are always priced as
// kilometers times price per km; any client amount is discarded.
func priceTicket(rec *Expense, sel *category.Selection, amount, km, price decimal.NullDecimal) error {
	b := validation.NewBuilder()
	if sel.RequiresPhoto && rec.AttachmentPath == nil {
		b.Add("attachment_path", "the selected category requires a photo of the receipt", apperrors.ErrCodeMissingAttachment)
	}

	if !sel.IsFuel {
		if !amount.Valid || !amount.Decimal.Round(2).IsPositive() {
			b.Add("amount", "amount must be greater than 0", apperrors.ErrCodeInvalidAmount)
		}
		if verr := b.Err(); verr != nil {
			return verr
		}
		rec.Amount = amount.Decimal.Round(2)
		rec.Kilometers = decimal.NullDecimal{}
		rec.PricePerKm = decimal.NullDecimal{}
		return nil
	}

	if !km.Valid || !km.Decimal.IsPositive() {
		b.Add("kilometers", "kilometers must be greater than 0 for fuel tickets", apperrors.ErrCodeInvalidAmount)
	}
	if !price.Valid || !price.Decimal.IsPositive() {
		b.Add("price_per_km", "price_per_km must be greater than 0 for fuel tickets", apperrors.ErrCodeInvalidAmount)
	}
	if verr := b.Err(); verr != nil {
		return verr
	}
	total := km.Decimal.Mul(price.Decimal).Round(2)
	if !total.IsPositive() {
		return apperrors.NewValidationFieldError("amount", "kilometers × price_per_km rounds to 0", apperrors.ErrCodeInvalidAmount)
	}
	rec.Kilometers = km
	rec.PricePerKm = price
	rec.Amount = total
	return nil
}

func parseDate(raw string, fallback time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		y, m, d := fallback.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apperrors.NewValidationFieldError("expense_date", "expense_date must be formatted as YYYY-MM-DD", apperrors.ErrCodeValidationFailed)
	}
	return t, nil
}

func normalizePath(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// ownScope returns the subject an identity's listings are restricted to, or
// "" when it may see every ticket.
func ownScope(id *auth.Identity) string {
	if id != nil && id.EffectiveRole == role.Operari {
		return id.Subject
	}
	return ""
}

func ticketResource(id int64) string {
	return fmt.Sprintf("ticket:%d", id)
}

func actionResult(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, auth.ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrMissingReason):
		return "missing_reason"
	case errors.Is(err, ErrConcurrentUpdate):
		return "conflict"
	case errors.Is(err, ErrTicketNotFound):
		return "not_found"
	default:
		return "error"
	}
}
