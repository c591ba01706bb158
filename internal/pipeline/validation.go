package pipeline

import (
	"strings"

	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
)

// CategoryMatcher resolves category names produced by the model to the
// user's category IDs.
type CategoryMatcher struct {
	byType map[domain.TransactionType]map[string]string
}

// NewCategoryMatcher indexes categories by type and normalized name.
func NewCategoryMatcher(categories []domain.Category) *CategoryMatcher {
	m := &CategoryMatcher{byType: make(map[domain.TransactionType]map[string]string)}
	for _, c := range categories {
		names := m.byType[c.Type]
		if names == nil {
			names = make(map[string]string)
			m.byType[c.Type] = names
		}
		key := normalizeCategory(c.Name)
		// a user's own category wins over a default with the same name
		if _, taken := names[key]; !taken || !c.IsDefault {
			names[key] = c.ID
		}
	}
	return m
}

// Match returns the ID of the category named name for transactions of type
// t, or nil when there is none.
func (m *CategoryMatcher) Match(name string, t domain.TransactionType) *string {
	key := normalizeCategory(name)
	if key == "" {
		return nil
	}
	id, ok := m.byType[t][key]
	if !ok {
		return nil
	}
	return &id
}

// normalizeCategory normalizes a category name for comparison.
// Converts to uppercase and trims whitespace for case-insensitive comparison.
func normalizeCategory(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
