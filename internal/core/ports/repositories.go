package ports

import (
	"context"

	"github.com/samirrijal/raasta/internal/core/domain"
)

// HazardStore reads hazard coordinates. A category with no hazards yields an
// empty slice and a nil error.
type HazardStore interface {
	ListByCategory(ctx context.Context, category domain.HazardCategory) ([]domain.Point, error)
}

// HazardWriter is implemented by stores that can be seeded by hazardctl.
type HazardWriter interface {
	ReplaceCategory(ctx context.Context, category domain.HazardCategory, points []domain.Point) error
}
