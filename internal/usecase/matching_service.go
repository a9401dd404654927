package usecase

import (
	"context"
	"log"
	"strings"

	"github.com/udopaints/storefront-backend/internal/domain"
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	MinConfidenceThreshold float64
	EnableDebugLogging     bool
}

// MatchingService scores upsell variants against the shopper's currently
// selected main-product options and picks the closest match.
type MatchingService struct {
	minConfidenceThreshold float64
	enableDebugLogging     bool
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	threshold := config.MinConfidenceThreshold
	if threshold <= 0 {
		threshold = 50.0 // Default: at least half the comparable options must match
	}

	return &MatchingService{
		minConfidenceThreshold: threshold,
		enableDebugLogging:     config.EnableDebugLogging,
	}
}

// MapSelectedOptions resolves the shopper's selected variant into a flat
// {option name -> chosen value} map, using each Option's 1-based position
// to index into the variant's option-value list. Keys are lower-cased.
// Returns an empty map when the variant id is not found.
func MapSelectedOptions(variantID int64, options []domain.Option, variants []domain.Variant) map[string]string {
	for _, v := range variants {
		if v.ID != variantID {
			continue
		}
		selected := make(map[string]string, len(options))
		for _, opt := range options {
			idx := opt.Position - 1
			if idx < 0 || idx >= len(v.Options) {
				continue
			}
			selected[strings.ToLower(opt.Name)] = v.Options[idx]
		}
		return selected
	}
	return map[string]string{}
}

// ScoreVariant computes how closely a candidate upsell variant mirrors the
// shopper's main-product selection. For each upsell option position whose
// name also appears in the selection, the denominator grows; the numerator
// grows when the values match case-insensitively. Score is 0-100, and 0
// when no option is comparable (no comparable options means no confidence,
// not full confidence).
func ScoreVariant(candidate domain.Variant, optionNames []string, selected map[string]string) float64 {
	matched := 0
	comparable := 0

	for i, name := range optionNames {
		if i >= len(candidate.Options) {
			break
		}
		want, ok := selected[strings.ToLower(name)]
		if !ok {
			continue
		}
		comparable++
		if strings.EqualFold(candidate.Options[i], want) {
			matched++
		}
	}

	if comparable == 0 {
		return 0
	}
	return float64(matched) / float64(comparable) * 100
}

// BestMatch selects the upsell variant with the highest score against the
// shopper's selection. Ties break to the first-encountered variant; when
// every candidate scores 0 the product's first variant is returned as the
// fallback. Returns ErrNoVariants only when the upsell has zero variants.
func (s *MatchingService) BestMatch(
	ctx context.Context,
	upsell *domain.UpsellProduct,
	selected map[string]string,
) (*domain.MatchResult, error) {
	if upsell == nil {
		return nil, domain.ErrInvalidRequest
	}
	if len(upsell.Variants) == 0 {
		return nil, domain.ErrNoVariants
	}

	var best *domain.MatchResult
	highest := -1.0 // any score, including 0, beats the initial value

	for i := range upsell.Variants {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		score := ScoreVariant(upsell.Variants[i], upsell.OptionNames, selected)

		if s.enableDebugLogging {
			log.Printf("[MATCH] upsell %q variant %q score %.1f", upsell.Name, upsell.Variants[i].Title, score)
		}

		if score > highest {
			highest = score
			best = &domain.MatchResult{Variant: &upsell.Variants[i], Score: score}
		}
	}

	// With the -1 sentinel the all-zero case already lands on the first
	// variant, which is the documented fallback.
	best.LowConfidence = best.Score < s.minConfidenceThreshold

	if s.enableDebugLogging {
		log.Printf("[MATCH] best for %q: %q (%.1f%%)", upsell.Name, best.Variant.Title, best.Score)
	}

	return best, nil
}
