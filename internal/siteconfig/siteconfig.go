package siteconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	siteconfigDatamodel "github.com/frahmantamala/expense-tickets/internal/core/datamodel/siteconfig"
)

const (
	KeySiteName       = "site_name"
	KeyCompanyName    = "company_name"
	KeyCurrency       = "currency"
	KeyDefaultKmPrice = "default_km_price"
	KeyDailyMealLimit = "daily_meal_limit"
	KeyDailyFuelLimit = "daily_fuel_limit"
)

var defaults = map[string]string{
	KeySiteName:       "Expense Tickets",
	KeyCompanyName:    "",
	KeyCurrency:       "EUR",
	KeyDefaultKmPrice: "0.57",
	KeyDailyMealLimit: "50",
	KeyDailyFuelLimit: "100",
}

var decimalKeys = map[string]bool{
	KeyDefaultKmPrice: true,
	KeyDailyMealLimit: true,
	KeyDailyFuelLimit: true,
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Defaults returns a copy of the built-in settings.
func Defaults() map[string]string {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out
}

// Validate rejects unknown keys and malformed values.
func Validate(key, value string) error {
	if _, ok := defaults[key]; !ok {
		return apperrors.NewValidationFieldError(key, fmt.Sprintf("unknown setting %q", key), apperrors.ErrCodeUnknownConfigKey)
	}
	if decimalKeys[key] {
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || d.IsNegative() {
			return apperrors.NewValidationFieldError(key, key+" must be a non-negative number", apperrors.ErrCodeValidationFailed)
		}
	}
	if key == KeyCurrency && len(strings.TrimSpace(value)) != 3 {
		return apperrors.NewValidationFieldError(key, "currency must be a three-letter code", apperrors.ErrCodeValidationFailed)
	}
	return nil
}

func ToDataModel(s Setting) *siteconfigDatamodel.Setting {
	return &siteconfigDatamodel.Setting{
		Key:       s.Key,
		Value:     s.Value,
		UpdatedAt: s.UpdatedAt,
	}
}

func FromDataModel(s *siteconfigDatamodel.Setting) Setting {
	return Setting{
		Key:       s.Key,
		Value:     s.Value,
		UpdatedAt: s.UpdatedAt,
	}
}
