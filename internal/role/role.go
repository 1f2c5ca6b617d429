package role

import (
	"sort"
	"strings"
	"time"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	roleDatamodel "github.com/frahmantamala/expense-tickets/internal/core/datamodel/role"
)

// Permission catalog. Permissions are opaque identifiers; only set
// membership is ever checked.
const (
	TicketsCreate     = "tickets:create"
	TicketsDelete     = "tickets:delete"
	TicketsView       = "tickets:view"
	TicketsValidate   = "tickets:validate"
	TicketsUnvalidate = "tickets:unvalidate"
	TicketsReject     = "tickets:reject"
	TicketsPay        = "tickets:pay"
	TicketsUnpay      = "tickets:unpay"
	RolesManage       = "roles:manage"
	UsersManage       = "users:manage"
	ConfigManage      = "config:manage"
)

// Canonical names of the baseline roles.
const (
	Operari       = "operari"
	Supervisor    = "supervisor"
	Comptabilitat = "comptabilitat"
	Admin         = "admin"
)

var catalog = []string{
	TicketsCreate,
	TicketsDelete,
	TicketsView,
	TicketsValidate,
	TicketsUnvalidate,
	TicketsReject,
	TicketsPay,
	TicketsUnpay,
	RolesManage,
	UsersManage,
	ConfigManage,
}

var aliases = map[string]string{
	"operario":       Operari,
	"operaria":       Operari,
	"contabilidad":   Comptabilitat,
	"comptable":      Comptabilitat,
	"contable":       Comptabilitat,
	"finance":        Comptabilitat,
	"administrador":  Admin,
	"administradora": Admin,
	"supervisora":    Supervisor,
}

var ErrRoleNotFound = apperrors.ErrRoleNotFound

type Role struct {
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Catalog returns every permission a role may hold.
func Catalog() []string {
	out := make([]string, len(catalog))
	copy(out, catalog)
	return out
}

// Canonicalize trims and lowercases raw and resolves known alias spellings.
// Unknown names pass through so that they fail to resolve to a stored role.
func Canonicalize(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

// Baseline returns the roles that must exist at process start.
func Baseline() []Role {
	return []Role{
		{Name: Operari, Permissions: []string{TicketsCreate, TicketsDelete, TicketsView}},
		{Name: Supervisor, Permissions: []string{
			TicketsCreate, TicketsDelete, TicketsValidate, TicketsUnvalidate,
			TicketsReject, TicketsPay, TicketsUnpay, TicketsView,
		}},
		{Name: Comptabilitat, Permissions: []string{
			TicketsValidate, TicketsUnvalidate, TicketsReject, TicketsPay, TicketsUnpay, TicketsView,
		}},
		{Name: Admin, Permissions: Catalog()},
	}
}

// Has reports whether the role grants permission.
func (r *Role) Has(permission string) bool {
	if r == nil {
		return false
	}
	for _, p := range r.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Missing returns the subset of required the role does not grant. A nil role
// grants nothing.
func (r *Role) Missing(required []string) []string {
	var missing []string
	for _, p := range required {
		if !r.Has(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// NormalizePermissions deduplicates and sorts perms and rejects anything
// outside the catalog.
func NormalizePermissions(perms []string) ([]string, error) {
	known := make(map[string]struct{}, len(catalog))
	for _, p := range catalog {
		known[p] = struct{}{}
	}

	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, raw := range perms {
		p := strings.TrimSpace(raw)
		if _, ok := known[p]; !ok {
			return nil, apperrors.NewValidationFieldError("permissions", "unknown permission "+raw, apperrors.ErrCodeInvalidPermission)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func ToDataModel(r *Role) *roleDatamodel.Role {
	return &roleDatamodel.Role{
		Name:        r.Name,
		Permissions: r.Permissions,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func FromDataModel(r *roleDatamodel.Role) *Role {
	perms := make([]string, len(r.Permissions))
	copy(perms, r.Permissions)
	return &Role{
		Name:        r.Name,
		Permissions: perms,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
