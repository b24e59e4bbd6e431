// Package catalog holds the fixed set of rankable items loaded at startup.
package catalog

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/go-playground/validator/v10"

	"github.com/okian/arena/internal/domain/model"
)

// maxSuggestDistance bounds how far a misspelling may be from a real name.
const maxSuggestDistance = 3

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // validator caches struct metadata

// Catalog is an immutable, ordered set of items keyed by name.
type Catalog struct {
	items  []model.Item
	byName map[string]int
}

// New validates items and builds a catalog preserving their order. An empty
// list yields ErrEmptyCatalog.
func New(items []model.Item) (*Catalog, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		items:  make([]model.Item, 0, len(items)),
		byName: make(map[string]int, len(items)),
	}
	for i, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		if err := validate.Struct(it); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidItem, i, err)
		}
		if _, ok := c.byName[it.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, it.Name)
		}
		c.byName[it.Name] = len(c.items)
		c.items = append(c.items, it)
	}
	return c, nil
}

// Items returns a copy of the items in catalog order.
func (c *Catalog) Items() []model.Item {
	out := make([]model.Item, len(c.items))
	copy(out, c.items)
	return out
}

// Names returns item names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.items))
	for i, it := range c.items {
		out[i] = it.Name
	}
	return out
}

// Item looks up an item by exact name.
func (c *Catalog) Item(name string) (model.Item, bool) {
	i, ok := c.byName[name]
	if !ok {
		return model.Item{}, false
	}
	return c.items[i], true
}

// Contains reports whether name is in the catalog.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Suggest returns the closest catalog name to a misspelled one, compared
// case-insensitively, or "" when nothing is close enough.
func (c *Catalog) Suggest(name string) string {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return ""
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, it := range c.items {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(it.Name))
		if d < bestDist {
			best, bestDist = it.Name, d
		}
	}
	return best
}
