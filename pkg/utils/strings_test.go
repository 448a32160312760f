package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	assert.Equal(t, "happy-paw-co", GenerateSlug("Happy Paw Co."))
	assert.Equal(t, "happy-paw-co", GenerateSlug("  Happy   Paw --- Co. "))
	assert.Equal(t, "해피펫", GenerateSlug("해피펫"))
	assert.Equal(t, "", GenerateSlug("!!!"))
}

func TestParsePriceDefault(t *testing.T) {
	assert.Equal(t, 12000, ParsePriceDefault("₩12,000", 0))
	assert.Equal(t, 12000, ParsePriceDefault("12,000", 0))
	assert.Equal(t, 12, ParsePriceDefault("$12.50", 0))
	assert.Equal(t, 0, ParsePriceDefault("가격미정", 0))
	assert.Equal(t, 99, ParsePriceDefault("", 99))
}

func TestParseFloatDefault(t *testing.T) {
	assert.InDelta(t, 120.5, ParseFloatDefault("120.5", 0), 0.001)
	assert.InDelta(t, 1200, ParseFloatDefault("1,200", 0), 0.001)
	assert.InDelta(t, 7, ParseFloatDefault("junk", 7), 0.001)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "강아", Truncate("강아지용", 2))
	assert.Equal(t, "", Truncate("abc", 0))
}
