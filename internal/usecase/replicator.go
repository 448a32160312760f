package usecase

import (
	"context"
	"fmt"

	"pawmarket-backend/internal/domain"
	"pawmarket-backend/pkg/logger"
	"pawmarket-backend/pkg/utils"
)

// ImageStore is the bucket surface the replicator writes mirrored copies to.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

const (
	defaultImageContentType = "image/jpeg"
	failureReasonLimit      = 120
)

// Upload modes. In await mode image copies happen inline and only successful
// copies get a database row. In background mode rows are planned up front
// (keys are deterministic) and the copies run after the batch commits.
const (
	UploadModeAwait      = "await"
	UploadModeBackground = "background"
)

// Replicator mirrors origin images into our bucket. One image failing never
// fails its siblings or the product row.
type Replicator struct {
	fetcher domain.ImageFetcher
	blob    ImageStore
	mode    string
}

func NewReplicator(fetcher domain.ImageFetcher, blob ImageStore, mode string) *Replicator {
	return &Replicator{fetcher: fetcher, blob: blob, mode: mode}
}

// ImageKey is the deterministic bucket key for one product image. Re-imports
// overwrite the same object instead of piling up duplicates.
func ImageKey(supplierID, sku string, position int) string {
	return fmt.Sprintf("%s/%s/image-%d.jpg", supplierID, sku, position+1)
}

// MirrorImages processes a product's image list, appending a row write per
// mirrored image. In background mode the writes are appended immediately and
// Deferred returns the copy work to run after commit.
func (r *Replicator) MirrorImages(ctx context.Context, product *domain.CanonicalProduct, supplierID string, batch *domain.ImportBatch) []func(context.Context) {
	var deferred []func(context.Context)

	for _, img := range product.Images {
		key := ImageKey(supplierID, product.SKU, img.Position)

		if r.mode == UploadModeBackground {
			batch.AddWrites(PlanImageWrite(product.SKU, key, img.Position))
			batch.Logf("image %d of %s uploading in background", img.Position+1, product.SKU)
			url := img.URL
			sku := product.SKU
			deferred = append(deferred, func(ctx context.Context) {
				if err := r.copy(ctx, url, key); err != nil {
					logger.Warn().Err(err).Str("sku", sku).Str("key", key).Msg("background image copy failed")
				}
			})
			continue
		}

		if err := r.copy(ctx, img.URL, key); err != nil {
			batch.Logf("image %d of %s skipped: %s", img.Position+1, product.SKU, utils.Truncate(err.Error(), failureReasonLimit))
			continue
		}
		batch.AddWrites(PlanImageWrite(product.SKU, key, img.Position))
	}

	return deferred
}

func (r *Replicator) copy(ctx context.Context, originURL, key string) error {
	data, contentType, err := r.fetcher.Fetch(ctx, originURL)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = defaultImageContentType
	}
	if err := r.blob.Put(ctx, key, data, contentType); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	return nil
}
