package branch

import (
	"context"
	"fmt"

	"github.com/Stephani-e/food-delivery-app/internal/models"
	"github.com/Stephani-e/food-delivery-app/internal/remote"
)

// Repository reads branches from the remote store. Branches are
// server-owned reference data; this subsystem never writes them.
type Repository struct {
	store remote.Store
}

// NewRepository returns a branch repository over the given store.
func NewRepository(store remote.Store) *Repository {
	return &Repository{store: store}
}

// ListByCountry returns every branch serving the given country.
func (r *Repository) ListByCountry(ctx context.Context, country string) ([]models.Branch, error) {
	docs, err := r.store.ListDocuments(ctx, remote.CollectionBranches, []remote.Filter{
		remote.Equal("country", country),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	branches := make([]models.Branch, 0, len(docs))
	for _, doc := range docs {
		branches = append(branches, decodeBranchRow(doc))
	}
	return branches, nil
}

// decodeBranchRow is the single ingestion point for branch rows.
func decodeBranchRow(doc remote.Document) models.Branch {
	return models.Branch{
		ID:      doc.ID,
		Country: doc.String("country"),
		City:    doc.String("city"),
		Name:    doc.String("name"),
		Coordinate: models.Coordinate{
			Latitude:  doc.Float("latitude"),
			Longitude: doc.Float("longitude"),
		},
		DeliveryRadiusKm: doc.Float("deliveryRadiusKm"),
	}
}
