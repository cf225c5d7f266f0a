package plans

import (
	"strings"
	"time"

	"subscription-backend/internal/apperr"

	"github.com/google/uuid"
)

// Plan is immutable after creation except for the Active flag.
type Plan struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null" json:"description"`
	Price       float64   `gorm:"not null" json:"price"`
	Category    Category  `gorm:"column:category;type:varchar(20);not null;index:idx_plans_category" json:"type"`
	Features    []string  `gorm:"serializer:json;type:jsonb;not null" json:"features"`
	Active      bool      `gorm:"column:active;not null;index:idx_plans_category" json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Attributes is the administrative input for creating a plan.
type Attributes struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"type"`
	Features    []string `json:"features"`
}

// New validates attrs and builds an active plan.
func New(attrs Attributes, now time.Time) (*Plan, error) {
	title := strings.TrimSpace(attrs.Title)
	if title == "" {
		return nil, apperr.Validation("plan title is required")
	}
	description := strings.TrimSpace(attrs.Description)
	if description == "" {
		return nil, apperr.Validation("plan description is required")
	}
	if attrs.Price <= 0 {
		return nil, apperr.Validation("plan price must be positive")
	}
	category, ok := ParseCategory(attrs.Category)
	if !ok {
		return nil, apperr.Validation("invalid plan type %q: use monthly, quarterly or annual", attrs.Category)
	}

	features := make([]string, 0, len(attrs.Features))
	for _, f := range attrs.Features {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	if len(features) == 0 {
		return nil, apperr.Validation("plan features must be a non-empty list")
	}

	return &Plan{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Price:       attrs.Price,
		Category:    category,
		Features:    features,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Defaults are the plans seeded into an empty catalog.
func Defaults() []Attributes {
	return []Attributes{
		{
			Title:       "Plano Mensal",
			Description: "Acesso completo por 30 dias",
			Price:       500,
			Category:    string(Monthly),
			Features:    []string{"Agendamento ilimitado", "Gestão de clientes", "Relatórios básicos", "Suporte por email"},
		},
		{
			Title:       "Plano Trimestral",
			Description: "Acesso completo por 90 dias",
			Price:       1350,
			Category:    string(Quarterly),
			Features:    []string{"Agendamento ilimitado", "Gestão de clientes", "Relatórios avançados", "Suporte prioritário", "15% de desconto"},
		},
		{
			Title:       "Plano Anual",
			Description: "Acesso completo por 365 dias",
			Price:       4800,
			Category:    string(Annual),
			Features:    []string{"Agendamento ilimitado", "Gestão de clientes", "Relatórios avançados", "Suporte prioritário 24/7", "Backup automático", "20% de desconto"},
		},
	}
}
