package usecase

import (
	"pawmarket-backend/internal/domain"
)

// PlanProductWrites builds the insert statements for one normalized product.
// The writes are pure data; they execute later inside the batch transaction.
// Every insert is ON CONFLICT DO NOTHING so re-running a cursor is harmless.
func PlanProductWrites(product *domain.CanonicalProduct, supplierID string, audience []string) []domain.WriteOp {
	writes := make([]domain.WriteOp, 0, 3+len(audience))

	writes = append(writes, domain.WriteOp{
		SQL: `INSERT INTO products
			(sku, supplier_id, name, name_en, brand, description, ingredients,
			 dimensions, origin, case_pack, barcode, weight_grams, msrp, is_public, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, true, $14)
		ON CONFLICT (sku) DO NOTHING`,
		Args: []interface{}{
			product.SKU, supplierID, product.Name, product.NameEn, product.Brand,
			product.Description, product.Ingredients, product.Dimensions,
			product.Origin, product.CasePack, product.Barcode,
			product.WeightGrams, product.MSRP, product.IsActive,
		},
	})

	onHand := 0
	if product.OnHand != nil {
		onHand = *product.OnHand
	}
	writes = append(writes, domain.WriteOp{
		SQL: `INSERT INTO product_inventory (sku, available_good, available_defective, last_synced_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (sku) DO NOTHING`,
		Args: []interface{}{product.SKU, onHand},
	})

	if product.Category != "" {
		writes = append(writes, domain.WriteOp{
			SQL: `INSERT INTO product_tags (sku, tag)
			VALUES ($1, $2)
			ON CONFLICT (sku, tag) DO NOTHING`,
			Args: []interface{}{product.SKU, product.Category},
		})
	}

	for _, tag := range audience {
		writes = append(writes, domain.WriteOp{
			SQL: `INSERT INTO product_audience (sku, audience)
			VALUES ($1, $2)
			ON CONFLICT (sku, audience) DO NOTHING`,
			Args: []interface{}{product.SKU, tag},
		})
	}

	return writes
}

// PlanImageWrite records a mirrored image. The first image of a product is
// its primary.
func PlanImageWrite(sku, storageKey string, position int) domain.WriteOp {
	return domain.WriteOp{
		SQL: `INSERT INTO product_images (sku, storage_key, is_primary)
		VALUES ($1, $2, $3)
		ON CONFLICT (sku, storage_key) DO NOTHING`,
		Args: []interface{}{sku, storageKey, position == 0},
	}
}
