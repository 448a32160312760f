package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"pawmarket-backend/internal/domain"
	"pawmarket-backend/pkg/logger"
	"pawmarket-backend/pkg/utils"
)

const descriptionPromptLimit = 300

// Classifier asks the text model which audiences a product is for. A single
// attempt per product; on any failure the product falls back to the
// vocabulary's catch-all tag so a flaky model never blocks an import.
type Classifier struct {
	generator domain.TextGenerator
}

func NewClassifier(generator domain.TextGenerator) *Classifier {
	return &Classifier{generator: generator}
}

// Classify returns a deduplicated list of vocabulary tags for the product.
// The result is never empty; a failed or unparseable call falls back and
// leaves a line in the batch log.
func (c *Classifier) Classify(ctx context.Context, product *domain.CanonicalProduct, vocab domain.AudienceVocabulary, batch *domain.ImportBatch) []string {
	prompt := buildPrompt(product, vocab)

	raw, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Warn().Err(err).Str("sku", product.SKU).Msg("audience classification failed, using fallback")
		batch.Logf("classification of %s fell back to %s: %s", product.SKU, vocab.Fallback, utils.Truncate(err.Error(), failureReasonLimit))
		return []string{vocab.Fallback}
	}

	tags, err := parseTags(raw, vocab)
	if err != nil {
		logger.Warn().Err(err).Str("sku", product.SKU).Str("response", utils.Truncate(raw, 120)).Msg("unparseable classification, using fallback")
		batch.Logf("classification of %s fell back to %s: unparseable reply", product.SKU, vocab.Fallback)
		return []string{vocab.Fallback}
	}

	logger.Debug().Str("sku", product.SKU).Strs("audience", tags).Msg("product classified")
	return tags
}

func buildPrompt(product *domain.CanonicalProduct, vocab domain.AudienceVocabulary) string {
	var b strings.Builder
	b.WriteString("You classify pet-shop catalog products by intended audience.\n")
	fmt.Fprintf(&b, "Valid audiences: %s\n", strings.Join(vocab.Tags, ", "))
	b.WriteString("Reply with a JSON array of audience strings, nothing else.\n")
	b.WriteString("A product may target more than one audience.\n\n")
	b.WriteString("Examples:\n")
	fmt.Fprintf(&b, "- a chew bone -> [\"%s\"]\n", vocab.Tags[0])
	fmt.Fprintf(&b, "- a scratching post -> [\"%s\"]\n", vocab.Tags[1])
	fmt.Fprintf(&b, "- a grooming apron worn by the owner -> [\"%s\"]\n", vocab.Tags[2])
	fmt.Fprintf(&b, "- a grooming spa shampoo whose description mentions cats -> [\"%s\"]\n", vocab.Tags[1])
	fmt.Fprintf(&b, "- a treat labeled for both dogs and cats -> [\"%s\", \"%s\"]\n", vocab.Tags[0], vocab.Tags[1])
	b.WriteString("\nProduct:\n")
	fmt.Fprintf(&b, "Name: %s\n", product.Name)
	if product.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", product.Category)
	}
	if product.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", utils.Truncate(product.Description, descriptionPromptLimit))
	}
	return b.String()
}

// parseTags decodes the model reply, tolerating markdown code fences, and
// keeps only non-empty tags that belong to the vocabulary.
func parseTags(raw string, vocab domain.AudienceVocabulary) ([]string, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var tags []string
	if err := json.Unmarshal([]byte(cleaned), &tags); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}

	seen := make(map[string]bool, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || !vocab.Contains(tag) || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	if len(result) == 0 {
		result = append(result, vocab.Fallback)
	}
	return result, nil
}
