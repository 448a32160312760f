package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pawmarket-backend/internal/domain"
	infracache "pawmarket-backend/internal/infrastructure/cache"
)

type fakeSource struct {
	page     *domain.SourcePage
	pageErr  error
	fallback string
	vocab    domain.AudienceVocabulary
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Vocabulary() domain.AudienceVocabulary { return f.vocab }

func (f *fakeSource) FetchPage(_ context.Context, _ string) (*domain.SourcePage, error) {
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	return f.page, nil
}

func (f *fakeSource) Normalize(row domain.SourceRow) (*domain.CanonicalProduct, bool) {
	sku := row.String("sku")
	if sku == "" {
		return nil, false
	}
	supplier := row.String("supplier")
	if supplier == "" {
		supplier = f.fallback
	}
	p := &domain.CanonicalProduct{
		SKU:        sku,
		SupplierID: supplier,
		Name:       row.String("name"),
		Category:   row.String("category"),
	}
	if urls := row.String("images"); urls != "" {
		for i, u := range strings.Split(urls, " ") {
			p.Images = append(p.Images, domain.ImageRef{URL: u, Position: i})
		}
	}
	return p, true
}

type fakeStore struct {
	suppliers    []domain.Supplier
	supplierErr  error
	applied      []domain.WriteOp
	applyErr     error
	applyCalls   int
	ensuredSlugs map[string]int
}

func (f *fakeStore) EnsureSupplier(_ context.Context, s domain.Supplier) error {
	if f.supplierErr != nil {
		return f.supplierErr
	}
	if f.ensuredSlugs == nil {
		f.ensuredSlugs = map[string]int{}
	}
	f.ensuredSlugs[s.ID]++
	f.suppliers = append(f.suppliers, s)
	return nil
}

func (f *fakeStore) ApplyWrites(_ context.Context, ops []domain.WriteOp) error {
	f.applyCalls++
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, ops...)
	return nil
}

type fakeFetcher struct {
	failURLs map[string]bool
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, string, error) {
	if f.failURLs[url] {
		return nil, "", fmt.Errorf("origin returned 404")
	}
	return []byte("image-bytes"), "image/png", nil
}

type fakeImageStore struct {
	objects map[string]string // key -> content type
}

func (f *fakeImageStore) Put(_ context.Context, key string, _ []byte, contentType string) error {
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[key] = contentType
	return nil
}

func newTestImportUsecase(store *fakeStore, gen *fakeGenerator, fetcher *fakeFetcher, blob *fakeImageStore, mode string) *ImportUsecase {
	classifier := NewClassifier(gen)
	replicator := NewReplicator(fetcher, blob, mode)
	memCache := infracache.NewMemoryCache(time.Minute, time.Minute)
	return NewImportUsecase(store, classifier, replicator, memCache, "suppliers.pawmarket.example")
}

func pageOf(rows ...domain.SourceRow) *domain.SourcePage {
	next := "3"
	return &domain.SourcePage{Rows: rows, NextCursor: &next}
}

func TestRunBatchHappyPath(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{reply: `["Dog"]`}
	fetcher := &fakeFetcher{}
	blob := &fakeImageStore{}

	src := &fakeSource{
		vocab: testVocab,
		page: pageOf(
			domain.SourceRow{"sku": "A1", "name": "Chew Bone", "category": "Dog Toys",
				"supplier": "Happy Paw Co.", "images": "https://cdn.example.com/a.jpg https://cdn.example.com/b.jpg"},
		),
	}

	uc := newTestImportUsecase(store, gen, fetcher, blob, UploadModeAwait)
	report, err := uc.RunBatch(context.Background(), src, "")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	require.NotNil(t, report.NextCursor)
	assert.Equal(t, "3", *report.NextCursor)
	assert.Empty(t, report.Logs)
	assert.GreaterOrEqual(t, report.DurationSeconds, 0.0)

	// Supplier created once with slug identity and placeholder email
	require.Len(t, store.suppliers, 1)
	assert.Equal(t, "happy-paw-co", store.suppliers[0].ID)
	assert.Equal(t, "Happy Paw Co.", store.suppliers[0].Name)
	assert.Equal(t, "happy-paw-co@suppliers.pawmarket.example", store.suppliers[0].Email)

	// Both images mirrored under deterministic keys with the observed type
	assert.Equal(t, "image/png", blob.objects["happy-paw-co/A1/image-1.jpg"])
	assert.Equal(t, "image/png", blob.objects["happy-paw-co/A1/image-2.jpg"])

	// One commit carrying product, inventory, tag, audience and two image rows
	assert.Equal(t, 1, store.applyCalls)
	require.Len(t, store.applied, 6)
	assert.Contains(t, store.applied[0].SQL, "INSERT INTO products")
	assert.Contains(t, store.applied[4].SQL, "INSERT INTO product_images")
}

func TestRunBatchImageFailureIsIsolated(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{reply: `["Dog"]`}
	fetcher := &fakeFetcher{failURLs: map[string]bool{"https://cdn.example.com/b.jpg": true}}
	blob := &fakeImageStore{}

	src := &fakeSource{
		vocab: testVocab,
		page: pageOf(
			domain.SourceRow{"sku": "A1", "name": "Chew Bone", "supplier": "Happy Paw Co.",
				"images": "https://cdn.example.com/a.jpg https://cdn.example.com/b.jpg https://cdn.example.com/c.jpg"},
		),
	}

	uc := newTestImportUsecase(store, gen, fetcher, blob, UploadModeAwait)
	report, err := uc.RunBatch(context.Background(), src, "")
	require.NoError(t, err)

	// Row still imported; siblings of the failed image survive
	assert.Equal(t, 1, report.Processed)
	assert.Contains(t, blob.objects, "happy-paw-co/A1/image-1.jpg")
	assert.NotContains(t, blob.objects, "happy-paw-co/A1/image-2.jpg")
	assert.Contains(t, blob.objects, "happy-paw-co/A1/image-3.jpg")

	// The failure is reported, not fatal
	require.Len(t, report.Logs, 1)
	assert.Contains(t, report.Logs[0], "image 2 of A1")

	imageWrites := 0
	for _, w := range store.applied {
		if strings.Contains(w.SQL, "product_images") {
			imageWrites++
		}
	}
	assert.Equal(t, 2, imageWrites)
}

func TestRunBatchRowWithoutSKUIsSilentlySkipped(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{reply: `["Dog"]`}

	src := &fakeSource{
		vocab: testVocab,
		page: pageOf(
			domain.SourceRow{"name": "no sku"},
			domain.SourceRow{"sku": "A2", "name": "Cat Tower", "supplier": "Happy Paw Co."},
		),
	}

	uc := newTestImportUsecase(store, gen, &fakeFetcher{}, &fakeImageStore{}, UploadModeAwait)
	report, err := uc.RunBatch(context.Background(), src, "")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Empty(t, report.Logs)
}

func TestRunBatchSupplierFailureSkipsRow(t *testing.T) {
	store := &fakeStore{supplierErr: fmt.Errorf("connection refused")}
	gen := &fakeGenerator{reply: `["Dog"]`}

	src := &fakeSource{
		vocab: testVocab,
		page:  pageOf(domain.SourceRow{"sku": "A1", "supplier": "Happy Paw Co."}),
	}

	uc := newTestImportUsecase(store, gen, &fakeFetcher{}, &fakeImageStore{}, UploadModeAwait)
	report, err := uc.RunBatch(context.Background(), src, "")
	require.NoError(t, err)

	assert.Equal(t, 0, report.Processed)
	require.Len(t, report.Logs, 1)
	assert.Contains(t, report.Logs[0], "supplier")
	assert.Empty(t, store.applied)
}

func TestRunBatchMissingSupplierSkipsRow(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{reply: `["Dog"]`}

	// No row supplier and no fallback configured
	src := &fakeSource{
		vocab: testVocab,
		page:  pageOf(domain.SourceRow{"sku": "A1"}),
	}

	uc := newTestImportUsecase(store, gen, &fakeFetcher{}, &fakeImageStore{}, UploadModeAwait)
	report, err := uc.RunBatch(context.Background(), src, "")
	require.NoError(t, err)

	assert.Equal(t, 0, report.Processed)
	require.Len(t, report.Logs, 1)
}

func TestRunBatchSupplierIsMemoized(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{reply: `["Dog"]`}

	src := &fakeSource{
		vocab: testVocab,
		page: pageOf(
			domain.SourceRow{"sku": "A1", "supplier": "Happy Paw Co."},
			domain.SourceRow{"sku": "A2", "supplier": "Happy Paw Co."},
			domain.SourceRow{"sku": "A3", "supplier": "Happy Paw Co."},
		),
	}

	uc := newTestImportUsecase(store, gen, &fakeFetcher{}, &fakeImageStore{}, UploadModeAwait)
	report, err := uc.RunBatch(context.Background(), src, "")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 1, store.ensuredSlugs["happy-paw-co"])
}

func TestRunBatchFetchErrorIsFatal(t *testing.T) {
	store := &fakeStore{}
	src := &fakeSource{vocab: testVocab, pageErr: fmt.Errorf("upstream down")}

	uc := newTestImportUsecase(store, &fakeGenerator{reply: `["Dog"]`}, &fakeFetcher{}, &fakeImageStore{}, UploadModeAwait)
	_, err := uc.RunBatch(context.Background(), src, "")

	require.Error(t, err)
	assert.Equal(t, 0, store.applyCalls)
}

func TestRunBatchCommitErrorIsFatal(t *testing.T) {
	store := &fakeStore{applyErr: fmt.Errorf("deadlock detected")}
	src := &fakeSource{
		vocab: testVocab,
		page:  pageOf(domain.SourceRow{"sku": "A1", "supplier": "Happy Paw Co."}),
	}

	uc := newTestImportUsecase(store, &fakeGenerator{reply: `["Dog"]`}, &fakeFetcher{}, &fakeImageStore{}, UploadModeAwait)
	_, err := uc.RunBatch(context.Background(), src, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock")
}

func TestRunBatchClassifierFallbackStillImports(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{err: fmt.Errorf("model overloaded")}

	src := &fakeSource{
		vocab: testVocab,
		page:  pageOf(domain.SourceRow{"sku": "A1", "supplier": "Happy Paw Co."}),
	}

	uc := newTestImportUsecase(store, gen, &fakeFetcher{}, &fakeImageStore{}, UploadModeAwait)
	report, err := uc.RunBatch(context.Background(), src, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)

	var audienceArgs []interface{}
	for _, w := range store.applied {
		if strings.Contains(w.SQL, "product_audience") {
			audienceArgs = append(audienceArgs, w.Args[1])
		}
	}
	assert.Equal(t, []interface{}{"Other"}, audienceArgs)
}

func TestRunBatchEmptyPageCompletes(t *testing.T) {
	store := &fakeStore{}
	remaining := 0
	src := &fakeSource{
		vocab: testVocab,
		page:  &domain.SourcePage{Rows: nil, NextCursor: nil, Remaining: &remaining},
	}

	uc := newTestImportUsecase(store, &fakeGenerator{reply: `["Dog"]`}, &fakeFetcher{}, &fakeImageStore{}, UploadModeAwait)
	report, err := uc.RunBatch(context.Background(), src, "99")
	require.NoError(t, err)

	assert.Equal(t, 0, report.Processed)
	assert.Nil(t, report.NextCursor)
	require.NotNil(t, report.Remaining)
	assert.Equal(t, 0, *report.Remaining)
}
