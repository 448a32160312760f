package domain

// CanonicalProduct is the normalized, typed view of one source row.
// String fields default to "" when the source omits them; Barcode keeps
// its absence (nil) because downstream systems distinguish "no barcode"
// from an empty one.
type CanonicalProduct struct {
	SKU         string   `json:"sku"`
	SupplierID  string   `json:"supplierId"`
	Name        string   `json:"name"`
	NameEn      string   `json:"nameEn"`
	Brand       string   `json:"brand"`
	Description string   `json:"description"`
	Ingredients string   `json:"ingredients"`
	Dimensions  string   `json:"dimensions"`
	Origin      string   `json:"origin"`
	CasePack    string   `json:"casePack"`
	Barcode     *string  `json:"barcode"`
	WeightGrams float64  `json:"weightGrams"`
	MSRP        int      `json:"msrp"`
	IsActive    bool     `json:"isActive"`
	Category    string   `json:"category"`
	OnHand      *int     `json:"onHand,omitempty"` // explicit on-hand quantity, when the source carries one
	Images      []ImageRef
}

// ImageRef points at one product image at the origin. Position 0 is the
// primary image.
type ImageRef struct {
	URL      string
	Position int
}

// Supplier is the owning vendor of a catalog row. Auto-created suppliers get
// a synthesized placeholder email until real contact data is backfilled.
type Supplier struct {
	ID    string `json:"supplierId"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AudienceVocabulary is the closed tag set a source classifies into, plus the
// tag substituted when classification fails.
type AudienceVocabulary struct {
	Tags     []string
	Fallback string
}

// Contains reports whether tag is part of the vocabulary.
func (v AudienceVocabulary) Contains(tag string) bool {
	for _, t := range v.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
