package usecase

import (
	"log"
	"regexp"
	"strings"

	"github.com/udopaints/storefront-backend/internal/domain"
)

// Package-level compiled regex pattern for performance.
// Shape: OptionName:Value[Product A, Product B]
var hideConditionRegex = regexp.MustCompile(`^([^:\[\]]+):([^:\[\]]*)\[([^\[\]]*)\]$`)

// ParseHideConditions parses the merchant-configured hide-condition string
// into structured rules. Entries are separated by ";"; each entry names an
// option, a triggering value, and a bracketed comma-separated list of upsell
// product names to suppress when the shopper selects that value.
//
// Option name and value are lower-cased for later case-insensitive
// comparison. Malformed entries are logged and skipped; sibling entries
// still parse. Empty input yields no conditions.
func ParseHideConditions(raw string) []domain.HideCondition {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var conditions []domain.HideCondition
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		m := hideConditionRegex.FindStringSubmatch(entry)
		if m == nil {
			log.Printf("[RULES] skipping malformed hide condition entry: %q", entry)
			continue
		}

		name := strings.ToLower(strings.TrimSpace(m[1]))
		value := strings.ToLower(strings.TrimSpace(m[2]))
		if name == "" || value == "" {
			log.Printf("[RULES] skipping hide condition with empty name or value: %q", entry)
			continue
		}

		var products []string
		for _, p := range strings.Split(m[3], ",") {
			if p = strings.TrimSpace(p); p != "" {
				products = append(products, p)
			}
		}

		conditions = append(conditions, domain.HideCondition{
			OptionName:     name,
			OptionValue:    value,
			HiddenProducts: products,
		})
	}

	return conditions
}

// conditionHides reports whether cond suppresses the named upsell product
// given the shopper's current option selection. Product-name comparison is
// case-insensitive; condition fields are already lower-cased by the parser.
func conditionHides(cond domain.HideCondition, selected map[string]string, productName string) bool {
	value, ok := selected[cond.OptionName]
	if !ok || !strings.EqualFold(value, cond.OptionValue) {
		return false
	}
	for _, name := range cond.HiddenProducts {
		if strings.EqualFold(name, productName) {
			return true
		}
	}
	return false
}
