package usecase

import (
	"context"
	"fmt"
	"time"

	"pawmarket-backend/internal/domain"
	"pawmarket-backend/pkg/cache"
	"pawmarket-backend/pkg/logger"
	"pawmarket-backend/pkg/utils"
)

const supplierCacheTTL = 10 * time.Minute

// ImportUsecase runs one bounded import batch: fetch a page, normalize each
// row, classify, plan writes, mirror images, then commit everything in a
// single transaction. Invocations are stateless; the caller carries the
// cursor between calls.
type ImportUsecase struct {
	store       domain.ImportStore
	classifier  *Classifier
	replicator  *Replicator
	cache       cache.CacheService
	emailDomain string
}

func NewImportUsecase(store domain.ImportStore, classifier *Classifier, replicator *Replicator, cacheSvc cache.CacheService, emailDomain string) *ImportUsecase {
	return &ImportUsecase{
		store:       store,
		classifier:  classifier,
		replicator:  replicator,
		cache:       cacheSvc,
		emailDomain: emailDomain,
	}
}

// RunBatch processes one page of the source starting at cursor. Page fetch
// and the final commit are batch-fatal; everything per-row degrades to a log
// line instead.
func (u *ImportUsecase) RunBatch(ctx context.Context, src domain.Source, cursor string) (*domain.BatchReport, error) {
	start := time.Now()

	page, err := src.FetchPage(ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page from %s: %w", src.Name(), err)
	}

	batch := domain.NewImportBatch()
	vocab := src.Vocabulary()
	processed := 0
	var deferred []func(context.Context)

	for _, row := range page.Rows {
		product, ok := src.Normalize(row)
		if !ok {
			// No SKU: silent skip, not counted
			continue
		}
		if product.SupplierID == "" {
			batch.Logf("row %s skipped: no supplier and no default configured", product.SKU)
			continue
		}

		supplierSlug, err := u.ensureSupplier(ctx, product.SupplierID)
		if err != nil {
			batch.Logf("row %s skipped: supplier %q could not be created: %s",
				product.SKU, product.SupplierID, utils.Truncate(err.Error(), failureReasonLimit))
			continue
		}

		audience := u.classifier.Classify(ctx, product, vocab, batch)
		batch.AddWrites(PlanProductWrites(product, supplierSlug, audience)...)
		deferred = append(deferred, u.replicator.MirrorImages(ctx, product, supplierSlug, batch)...)
		processed++
	}

	if len(batch.Writes()) == 0 {
		logger.Warn().Str("source", src.Name()).Str("cursor", cursor).Msg("batch produced no writes, skipping commit")
	} else if err := u.store.ApplyWrites(ctx, batch.Writes()); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}

	if len(deferred) > 0 {
		// Detached from the request: the response goes out before the copies
		// finish.
		go func() {
			bg := context.Background()
			for _, run := range deferred {
				run(bg)
			}
		}()
	}

	report := &domain.BatchReport{
		Processed:       processed,
		NextCursor:      page.NextCursor,
		Remaining:       page.Remaining,
		DurationSeconds: time.Since(start).Seconds(),
		Logs:            batch.Logs(),
	}

	logger.Info().
		Str("source", src.Name()).
		Str("cursor", cursor).
		Int("processed", processed).
		Float64("duration_s", report.DurationSeconds).
		Msg("import batch committed")

	return report, nil
}

// ensureSupplier slugifies the supplier reference and creates the supplier
// row if it does not exist, memoized so a batch full of one supplier's rows
// hits the database once.
func (u *ImportUsecase) ensureSupplier(ctx context.Context, reference string) (string, error) {
	slug := utils.GenerateSlug(reference)
	if slug == "" {
		return "", fmt.Errorf("supplier reference %q produced an empty slug", reference)
	}

	cacheKey := "supplier:" + slug
	if _, found := u.cache.Get(cacheKey); found {
		return slug, nil
	}

	supplier := domain.Supplier{
		ID:    slug,
		Name:  reference,
		Email: fmt.Sprintf("%s@%s", slug, u.emailDomain),
	}
	if err := u.store.EnsureSupplier(ctx, supplier); err != nil {
		return "", err
	}

	u.cache.Set(cacheKey, true, supplierCacheTTL)
	return slug, nil
}
