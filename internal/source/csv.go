package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pawmarket-backend/internal/domain"
	"pawmarket-backend/pkg/utils"
)

// Supplier sheet column names. The sheets come from Korean distributors and
// keep their original headers; mapping happens here and nowhere else.
const (
	colSKU         = "상품코드"
	colName        = "상품명"
	colNameEn      = "영문상품명"
	colBarcode     = "바코드"
	colBrand       = "브랜드"
	colDescription = "상품설명"
	colIngredients = "성분"
	colDimensions  = "크기"
	colWeight      = "중량"
	colOrigin      = "원산지"
	colMSRP        = "소비자가"
	colCasePack    = "입수량"
	colActive      = "판매여부"
	colCategory    = "카테고리"
	colOnHand      = "재고"
	colImages      = "이미지"
	colSupplier    = "거래처"

	// The only affirmative token; anything else (including "y", "YES") is false.
	activeToken = "Y"
)

// Image cells hold free-text markup with parenthesized URLs:
// "(https://cdn.example/a)(https://cdn.example/b)".
var imageURLPattern = regexp.MustCompile(`\((https?://[^\s()]+)\)`)

var sheetVocabulary = domain.AudienceVocabulary{
	Tags:     []string{"강아지", "고양이", "사람", "기타"},
	Fallback: "기타",
}

// SheetSource reads the supplier catalog sheet from blob storage. The object
// is re-read on every call: invocations are stateless, only the row offset
// travels in the cursor.
type SheetSource struct {
	blob             domain.BlobStore
	objectKey        string
	pageSize         int
	fallbackSupplier string
}

func NewSheetSource(blob domain.BlobStore, objectKey string, pageSize int, fallbackSupplier string) *SheetSource {
	return &SheetSource{
		blob:             blob,
		objectKey:        objectKey,
		pageSize:         pageSize,
		fallbackSupplier: fallbackSupplier,
	}
}

func (s *SheetSource) Name() string { return "sheet" }

func (s *SheetSource) Vocabulary() domain.AudienceVocabulary { return sheetVocabulary }

func (s *SheetSource) FetchPage(ctx context.Context, cursor string) (*domain.SourcePage, error) {
	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("%w: sheet cursor %q", domain.ErrInvalidCursor, cursor)
		}
		offset = parsed
	}

	data, _, err := s.blob.Get(ctx, s.objectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load sheet %q: %w", s.objectKey, err)
	}

	rows, err := parseSheet(data)
	if err != nil {
		return nil, err
	}

	total := len(rows)
	if offset >= total {
		// Past the end: terminal empty page.
		return &domain.SourcePage{Rows: nil, NextCursor: nil, Remaining: intPtr(0)}, nil
	}

	end := offset + s.pageSize
	if end > total {
		end = total
	}

	page := &domain.SourcePage{Rows: rows[offset:end]}
	remaining := total - end
	page.Remaining = &remaining
	if end < total {
		next := strconv.Itoa(end)
		page.NextCursor = &next
	}
	return page, nil
}

// parseSheet decodes the CSV into header-keyed rows. A sheet with only the
// header row yields zero rows, which the orchestrator treats as completed.
func parseSheet(data []byte) ([]domain.SourceRow, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // supplier sheets have ragged rows

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheet csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	rows := make([]domain.SourceRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(domain.SourceRow, len(headers))
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *SheetSource) Normalize(row domain.SourceRow) (*domain.CanonicalProduct, bool) {
	sku := row.String(colSKU)
	if sku == "" {
		return nil, false
	}

	supplier := row.String(colSupplier)
	if supplier == "" {
		supplier = s.fallbackSupplier
	}

	p := &domain.CanonicalProduct{
		SKU:         sku,
		SupplierID:  supplier,
		Name:        row.String(colName),
		NameEn:      row.String(colNameEn),
		Brand:       row.String(colBrand),
		Description: row.String(colDescription),
		Ingredients: row.String(colIngredients),
		Dimensions:  row.String(colDimensions),
		Origin:      row.String(colOrigin),
		CasePack:    row.String(colCasePack),
		WeightGrams: utils.ParseFloatDefault(row.String(colWeight), 0),
		MSRP:        utils.ParsePriceDefault(row.String(colMSRP), 0),
		IsActive:    row.String(colActive) == activeToken,
		Category:    row.String(colCategory),
		Images:      parseImageMarkup(row.String(colImages)),
	}

	if barcode := row.String(colBarcode); barcode != "" {
		p.Barcode = &barcode
	}
	if onHand := row.String(colOnHand); onHand != "" {
		if n, err := strconv.Atoi(onHand); err == nil {
			p.OnHand = &n
		}
	}

	return p, true
}

// parseImageMarkup extracts ordered image refs from the free-text image cell.
func parseImageMarkup(markup string) []domain.ImageRef {
	if markup == "" {
		return nil
	}
	matches := imageURLPattern.FindAllStringSubmatch(markup, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]domain.ImageRef, 0, len(matches))
	for i, m := range matches {
		refs = append(refs, domain.ImageRef{URL: m[1], Position: i})
	}
	return refs
}

func intPtr(n int) *int { return &n }
