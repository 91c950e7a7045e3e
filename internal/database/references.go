package database

import (
	"context"
	"fmt"

	"github.com/irfndi/skupulse/internal/models"
)

// ReferenceRepository reads the static SKU reference dataset.
type ReferenceRepository struct {
	pool DatabasePool
}

// NewReferenceRepository creates a reference repository.
func NewReferenceRepository(pool DatabasePool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

const loadReferencesQuery = `
	SELECT nm_id,
		COALESCE(category_wb, ''),
		COALESCE(sub_category_wb, ''),
		COALESCE(brand_manager, ''),
		COALESCE(category_manager, '')
	FROM sku_reference
	ORDER BY nm_id
`

// LoadSKUReferences returns every reference row.
func (r *ReferenceRepository) LoadSKUReferences(ctx context.Context) ([]models.SKUReference, error) {
	rows, err := r.pool.Query(ctx, loadReferencesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query sku references: %w", err)
	}
	defer rows.Close()

	var refs []models.SKUReference
	for rows.Next() {
		var ref models.SKUReference
		if err := rows.Scan(&ref.NmID, &ref.CategoryWB, &ref.SubCategoryWB, &ref.BrandManager, &ref.CategoryManager); err != nil {
			return nil, fmt.Errorf("failed to scan sku reference: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sku references: %w", err)
	}

	return refs, nil
}
