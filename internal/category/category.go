package category

import (
	"time"

	categoryDatamodel "github.com/frahmantamala/expense-tickets/internal/core/datamodel/category"
)

// Names of the seeded categories.
const (
	Dieta    = "Dieta"
	Parking  = "Parking"
	Gasolina = "Gasolina"
	Peatge   = "Peatge"
	Altres   = "Altres"
)

type Category struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	IsFuel        bool      `json:"is_fuel"`
	RequiresPhoto bool      `json:"requires_photo"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Selection is the resolved set of categories attached to one ticket.
type Selection struct {
	Names         []string
	IsFuel        bool
	RequiresPhoto bool
}

func Defaults() []*Category {
	return []*Category{
		NewCategory(Dieta, "Meals and per diem", false, false),
		NewCategory(Parking, "Parking fees", false, true),
		NewCategory(Gasolina, "Mileage, charged per kilometre", true, false),
		NewCategory(Peatge, "Road tolls", false, true),
		NewCategory(Altres, "Anything else", false, false),
	}
}

func (c *Category) IsActiveCategory() bool {
	return c.IsActive
}

func (c *Category) ToResponse() CategoryResponse {
	return CategoryResponse{
		Name:          c.Name,
		Description:   c.Description,
		IsFuel:        c.IsFuel,
		RequiresPhoto: c.RequiresPhoto,
	}
}

func NewCategory(name, description string, isFuel, requiresPhoto bool) *Category {
	now := time.Now()
	return &Category{
		Name:          name,
		Description:   description,
		IsFuel:        isFuel,
		RequiresPhoto: requiresPhoto,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func ToDataModel(c *Category) *categoryDatamodel.TicketCategory {
	return &categoryDatamodel.TicketCategory{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		IsFuel:        c.IsFuel,
		RequiresPhoto: c.RequiresPhoto,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func FromDataModel(c *categoryDatamodel.TicketCategory) *Category {
	return &Category{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		IsFuel:        c.IsFuel,
		RequiresPhoto: c.RequiresPhoto,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}
