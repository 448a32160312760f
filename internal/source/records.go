package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"pawmarket-backend/internal/domain"
	"pawmarket-backend/pkg/utils"
)

var recordsVocabulary = domain.AudienceVocabulary{
	Tags:     []string{"Dog", "Cat", "Humans", "Other"},
	Fallback: "Other",
}

type recordsResponse struct {
	Records []recordEnvelope `json:"records"`
	Offset  string           `json:"offset"`
}

type recordEnvelope struct {
	ID          string           `json:"id"`
	CreatedTime string           `json:"createdTime"`
	Fields      domain.SourceRow `json:"fields"`
}

// RecordsSource pages the hosted records API. The API hands back an opaque
// offset token with each non-final page; we pass it through as the cursor
// without interpreting it.
type RecordsSource struct {
	client           *resty.Client
	baseURL          string
	pageSize         int
	fallbackSupplier string
}

func NewRecordsSource(baseURL, token string, timeout time.Duration, pageSize int, fallbackSupplier string) *RecordsSource {
	client := resty.New().
		SetTimeout(timeout).
		SetAuthToken(token).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &RecordsSource{
		client:           client,
		baseURL:          baseURL,
		pageSize:         pageSize,
		fallbackSupplier: fallbackSupplier,
	}
}

func (s *RecordsSource) Name() string { return "records" }

func (s *RecordsSource) Vocabulary() domain.AudienceVocabulary { return recordsVocabulary }

func (s *RecordsSource) FetchPage(ctx context.Context, cursor string) (*domain.SourcePage, error) {
	var body recordsResponse

	req := s.client.R().
		SetContext(ctx).
		SetQueryParam("pageSize", strconv.Itoa(s.pageSize)).
		SetResult(&body)
	if cursor != "" {
		req.SetQueryParam("offset", cursor)
	}

	resp, err := req.Get(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("records api request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("records api returned %d: %s", resp.StatusCode(), utils.Truncate(resp.String(), 200))
	}

	page := &domain.SourcePage{Rows: make([]domain.SourceRow, 0, len(body.Records))}
	for _, rec := range body.Records {
		if rec.Fields != nil {
			page.Rows = append(page.Rows, rec.Fields)
		}
	}
	if body.Offset != "" {
		offset := body.Offset
		page.NextCursor = &offset
	}
	// The API does not report a total, so Remaining stays nil.
	return page, nil
}

func (s *RecordsSource) Normalize(row domain.SourceRow) (*domain.CanonicalProduct, bool) {
	sku := row.String("SKU")
	if sku == "" {
		return nil, false
	}

	supplier := row.String("Supplier")
	if supplier == "" {
		supplier = s.fallbackSupplier
	}

	p := &domain.CanonicalProduct{
		SKU:         sku,
		SupplierID:  supplier,
		Name:        row.String("Name"),
		NameEn:      row.String("NameEn"),
		Brand:       row.String("Brand"),
		Description: row.String("Description"),
		Ingredients: row.String("Ingredients"),
		Dimensions:  row.String("Dimensions"),
		Origin:      row.String("Origin"),
		CasePack:    row.String("CasePack"),
		WeightGrams: utils.ParseFloatDefault(row.String("Weight"), 0),
		MSRP:        utils.ParsePriceDefault(row.String("MSRP"), 0),
		IsActive:    isAffirmative(row["Active"]),
		Category:    row.String("Category"),
		Images:      attachmentRefs(row["Images"]),
	}

	if barcode := row.String("Barcode"); barcode != "" {
		p.Barcode = &barcode
	}
	if stock, ok := row["Stock"]; ok {
		switch v := stock.(type) {
		case float64:
			n := int(v)
			p.OnHand = &n
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				p.OnHand = &n
			}
		}
	}

	return p, true
}

// The only affirmative string is exactly "yes"; casing or padding variants
// do not activate a product.
func isAffirmative(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "yes"
	default:
		return false
	}
}

// attachmentRefs unpacks the API's attachment array, a list of objects each
// carrying a url field. Entries without a url are skipped but positions keep
// counting so ordering survives.
func attachmentRefs(value interface{}) []domain.ImageRef {
	items, ok := value.([]interface{})
	if !ok || len(items) == 0 {
		return nil
	}
	refs := make([]domain.ImageRef, 0, len(items))
	for i, item := range items {
		attachment, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		url, _ := attachment["url"].(string)
		if url == "" {
			continue
		}
		refs = append(refs, domain.ImageRef{URL: url, Position: i})
	}
	return refs
}
