package domain

// Option describes one option axis of a product (e.g. "Size", "Color").
// Position is the 1-based index into a Variant's option-value list.
type Option struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Variant is a single purchasable variant of a product.
// Immutable once loaded from the storefront's embedded product JSON.
type Variant struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	Options        []string `json:"options"`
	Price          Cents    `json:"price"`
	CompareAtPrice Cents    `json:"compare_at_price"`
	Available      bool     `json:"available"`
}

// Product is the main product on a storefront product page.
type Product struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Options  []Option  `json:"options"`
	Variants []Variant `json:"variants"`
}

// UpsellProduct is a secondary product offered alongside the main product.
// ID is the storefront's upsell block identifier, Name its display name.
type UpsellProduct struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OptionNames []string  `json:"optionNames"`
	Variants    []Variant `json:"variants"`
}

// HideCondition suppresses the named upsell products when the shopper's
// selection for OptionName equals OptionValue. Name and value are stored
// lower-cased so later comparisons are case-insensitive.
type HideCondition struct {
	OptionName     string   `json:"optionName"`
	OptionValue    string   `json:"optionValue"`
	HiddenProducts []string `json:"hiddenProducts"`
}

// MatchResult pairs an upsell variant with its similarity score (0-100)
// against the shopper's current main-product selection.
type MatchResult struct {
	Variant       *Variant `json:"variant"`
	Score         float64  `json:"score"`
	LowConfidence bool     `json:"lowConfidence,omitempty"`
}
