package source

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pawmarket-backend/internal/domain"
)

type fakeBlob struct {
	data map[string][]byte
}

func (f *fakeBlob) Get(_ context.Context, key string) ([]byte, string, error) {
	data, ok := f.data[key]
	if !ok {
		return nil, "", fmt.Errorf("no such object %q", key)
	}
	return data, "text/csv", nil
}

func (f *fakeBlob) Put(_ context.Context, key string, data []byte, _ string) error {
	f.data[key] = data
	return nil
}

const sheetHeader = "상품코드,상품명,영문상품명,바코드,브랜드,상품설명,성분,크기,중량,원산지,소비자가,입수량,판매여부,카테고리,재고,이미지,거래처\n"

func sheetWithRows(rows ...string) *fakeBlob {
	body := sheetHeader
	for _, r := range rows {
		body += r + "\n"
	}
	return &fakeBlob{data: map[string][]byte{"imports/catalog.csv": []byte(body)}}
}

func sheetRow(sku string) string {
	return sku + `,츄잉본,Chew Bone,8801234567890,PawBrand,오래 씹는 간식,소가죽,10x5cm,120,KR,"₩12,000",24,Y,Dog Toys,35,(https://cdn.example.com/a.jpg)(https://cdn.example.com/b.jpg),해피펫`
}

func TestSheetSourcePagination(t *testing.T) {
	rows := make([]string, 7)
	for i := range rows {
		rows[i] = sheetRow(fmt.Sprintf("A%d", i+1))
	}
	src := NewSheetSource(sheetWithRows(rows...), "imports/catalog.csv", 3, "default-supplier")

	// First page from the top
	page, err := src.FetchPage(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, page.Rows, 3)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "3", *page.NextCursor)
	require.NotNil(t, page.Remaining)
	assert.Equal(t, 4, *page.Remaining)
	assert.Equal(t, "A1", page.Rows[0].String("상품코드"))

	// Middle page
	page, err = src.FetchPage(context.Background(), *page.NextCursor)
	require.NoError(t, err)
	require.Len(t, page.Rows, 3)
	assert.Equal(t, "6", *page.NextCursor)
	assert.Equal(t, 1, *page.Remaining)

	// Final short page terminates
	page, err = src.FetchPage(context.Background(), *page.NextCursor)
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Nil(t, page.NextCursor)
	assert.Equal(t, 0, *page.Remaining)
	assert.Equal(t, "A7", page.Rows[0].String("상품코드"))
}

func TestSheetSourceCursorPastEnd(t *testing.T) {
	src := NewSheetSource(sheetWithRows(sheetRow("A1")), "imports/catalog.csv", 3, "")

	page, err := src.FetchPage(context.Background(), "99")
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.Nil(t, page.NextCursor)
	assert.Equal(t, 0, *page.Remaining)
}

func TestSheetSourceInvalidCursor(t *testing.T) {
	src := NewSheetSource(sheetWithRows(sheetRow("A1")), "imports/catalog.csv", 3, "")

	_, err := src.FetchPage(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)

	_, err = src.FetchPage(context.Background(), "-1")
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestSheetSourceHeaderOnly(t *testing.T) {
	src := NewSheetSource(sheetWithRows(), "imports/catalog.csv", 3, "")

	page, err := src.FetchPage(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.Nil(t, page.NextCursor)
	assert.Equal(t, 0, *page.Remaining)
}

func TestSheetSourceMissingObject(t *testing.T) {
	src := NewSheetSource(&fakeBlob{data: map[string][]byte{}}, "imports/catalog.csv", 3, "")

	_, err := src.FetchPage(context.Background(), "")
	assert.Error(t, err)
}

func TestSheetNormalize(t *testing.T) {
	src := NewSheetSource(sheetWithRows(sheetRow("A1")), "imports/catalog.csv", 3, "default-supplier")

	page, err := src.FetchPage(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)

	p, ok := src.Normalize(page.Rows[0])
	require.True(t, ok)

	assert.Equal(t, "A1", p.SKU)
	assert.Equal(t, "해피펫", p.SupplierID)
	assert.Equal(t, "츄잉본", p.Name)
	assert.Equal(t, "Chew Bone", p.NameEn)
	require.NotNil(t, p.Barcode)
	assert.Equal(t, "8801234567890", *p.Barcode)
	assert.Equal(t, "PawBrand", p.Brand)
	assert.InDelta(t, 120.0, p.WeightGrams, 0.001)
	assert.Equal(t, 12000, p.MSRP)
	assert.Equal(t, "24", p.CasePack)
	assert.True(t, p.IsActive)
	assert.Equal(t, "Dog Toys", p.Category)
	require.NotNil(t, p.OnHand)
	assert.Equal(t, 35, *p.OnHand)

	require.Len(t, p.Images, 2)
	assert.Equal(t, "https://cdn.example.com/a.jpg", p.Images[0].URL)
	assert.Equal(t, 0, p.Images[0].Position)
	assert.Equal(t, "https://cdn.example.com/b.jpg", p.Images[1].URL)
	assert.Equal(t, 1, p.Images[1].Position)
}

func TestSheetNormalizeDefaults(t *testing.T) {
	src := NewSheetSource(sheetWithRows(), "imports/catalog.csv", 3, "default-supplier")

	p, ok := src.Normalize(map[string]interface{}{
		"상품코드": "B2",
		"상품명":  "고양이 캣타워",
		"소비자가": "가격미정",
		"판매여부": "N",
	})
	require.True(t, ok)
	assert.Equal(t, "default-supplier", p.SupplierID)
	assert.Equal(t, 0, p.MSRP)
	assert.False(t, p.IsActive)
	assert.Nil(t, p.Barcode)
	assert.Nil(t, p.OnHand)
	assert.Empty(t, p.Images)
}

func TestSheetNormalizeSkipsMissingSKU(t *testing.T) {
	src := NewSheetSource(sheetWithRows(), "imports/catalog.csv", 3, "")

	_, ok := src.Normalize(map[string]interface{}{"상품명": "이름만 있는 행"})
	assert.False(t, ok)
}

func TestSheetActiveTokenIsStrict(t *testing.T) {
	src := NewSheetSource(sheetWithRows(), "imports/catalog.csv", 3, "s")

	for _, token := range []string{"y", "YES", "예", "true", ""} {
		p, ok := src.Normalize(map[string]interface{}{"상품코드": "C1", "판매여부": token})
		require.True(t, ok)
		assert.False(t, p.IsActive, "token %q must not activate", token)
	}
}

func TestSheetVocabulary(t *testing.T) {
	src := NewSheetSource(sheetWithRows(), "imports/catalog.csv", 3, "")
	vocab := src.Vocabulary()

	assert.Equal(t, []string{"강아지", "고양이", "사람", "기타"}, vocab.Tags)
	assert.Equal(t, "기타", vocab.Fallback)
	assert.True(t, vocab.Contains("강아지"))
	assert.False(t, vocab.Contains("Dog"))
}
