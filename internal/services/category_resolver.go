package services

import (
	"github.com/agnivade/levenshtein"

	"smartspend/internal/models"
)

// maxSuggestionDistance is the largest edit distance still offered as a suggestion.
const maxSuggestionDistance = 2

// CategoryResolver maps a draft's category label to one of the user's categories.
type CategoryResolver interface {
	// Resolve returns the matching category ID, or nil when nothing matches.
	Resolve(label string, kind models.TransactionType) *string
}

// CategorySuggester is implemented by resolvers that can propose a near match
// for a label they could not resolve.
type CategorySuggester interface {
	Suggest(label string, kind models.TransactionType) *string
}

// ResolverFactory builds a resolver over one user's categories, given in creation order.
type ResolverFactory func(categories []models.Category) CategoryResolver

// exactNameResolver matches the first category, in creation order, whose
// name equals the label exactly and whose type equals the draft kind.
type exactNameResolver struct {
	categories []models.Category
}

// NewExactNameResolver is the default ResolverFactory.
func NewExactNameResolver(categories []models.Category) CategoryResolver {
	return &exactNameResolver{categories: categories}
}

func (r *exactNameResolver) Resolve(label string, kind models.TransactionType) *string {
	for i := range r.categories {
		c := &r.categories[i]
		if c.Name == label && string(c.Type) == string(kind) {
			id := c.ID
			return &id
		}
	}
	return nil
}

// Suggest returns the closest same-kind category name within maxSuggestionDistance.
// Ties go to the earlier category.
func (r *exactNameResolver) Suggest(label string, kind models.TransactionType) *string {
	var best *string
	bestDistance := maxSuggestionDistance + 1
	for i := range r.categories {
		c := &r.categories[i]
		if string(c.Type) != string(kind) {
			continue
		}
		if d := levenshtein.ComputeDistance(label, c.Name); d < bestDistance {
			name := c.Name
			best, bestDistance = &name, d
		}
	}
	return best
}
