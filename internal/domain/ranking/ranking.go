// Package ranking keeps items ordered by rating in a treap.
//
// Ordering: rating DESC, then name ASC. "less" means ranks earlier, so an
// in-order traversal yields the standings from best to worst. Ranks are dense:
// equal ratings share a rank and the next distinct rating takes the next
// integer.
//
// An Index is not safe for concurrent use; the owner serializes access.
package ranking

import (
	"errors"
	"hash/fnv"
)

// ErrNotFound is returned for names the index does not hold.
var ErrNotFound = errors.New("item not ranked")

// Entry is one row of the standings.
type Entry struct {
	Rank   int
	Name   string
	Rating float64
}

type node struct {
	name   string
	rating float64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aRating, aName) should appear before (bRating, bName).
func less(aRating float64, aName string, bRating float64, bName string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aName < bName
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// priority derives a stable heap priority from the name so the tree shape
// depends only on the set of (name, rating) pairs.
func priority(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

func insert(n *node, name string, rating float64, prio uint64) *node {
	if n == nil {
		return &node{name: name, rating: rating, prio: prio, size: 1}
	}
	if less(rating, name, n.rating, n.name) {
		n.left = insert(n.left, name, rating, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, name, rating, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, name string, rating float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.name == name:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, name, rating)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, name, rating)
		}
	case less(rating, name, n.rating, n.name):
		n.left = deleteNode(n.left, name, rating)
	default:
		n.right = deleteNode(n.right, name, rating)
	}
	fix(n)
	return n
}

// collect appends up to limit nodes in rank order.
func collect(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Entry{Name: n.name, Rating: n.rating})
	}
	if len(*out) < limit {
		collect(n.right, limit, out)
	}
}

// assignDenseRanks numbers an ordered prefix of the standings.
func assignDenseRanks(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Rating != entries[i-1].Rating {
			rank++
		}
		entries[i].Rank = rank
	}
}

// Index is an order-statistics treap over (rating, name).
type Index struct {
	root   *node
	byName map[string]float64
}

// New returns an empty index.
func New() *Index {
	return &Index{byName: make(map[string]float64)}
}

// Set inserts name or moves it to its new rating in O(log n) expected time.
func (x *Index) Set(name string, rating float64) {
	if old, ok := x.byName[name]; ok {
		if old == rating {
			return
		}
		x.root = deleteNode(x.root, name, old)
	}
	x.byName[name] = rating
	x.root = insert(x.root, name, rating, priority(name))
}

// Remove drops name from the index. It reports whether name was present.
func (x *Index) Remove(name string) bool {
	old, ok := x.byName[name]
	if !ok {
		return false
	}
	x.root = deleteNode(x.root, name, old)
	delete(x.byName, name)
	return true
}

// Len returns the number of ranked items.
func (x *Index) Len() int { return nsize(x.root) }

// Position returns the zero-based ordinal of name in the standings,
// ignoring ties, in O(log n).
func (x *Index) Position(name string) (int, error) {
	rating, ok := x.byName[name]
	if !ok {
		return 0, ErrNotFound
	}
	pos := 0
	for n := x.root; n != nil; {
		switch {
		case n.name == name:
			return pos + nsize(n.left), nil
		case less(rating, name, n.rating, n.name):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0, ErrNotFound
}

// TopN returns the best n entries with dense ranks.
func (x *Index) TopN(n int) []Entry {
	if n <= 0 {
		return []Entry{}
	}
	if size := x.Len(); n > size {
		n = size
	}
	out := make([]Entry, 0, n)
	collect(x.root, n, &out)
	assignDenseRanks(out)
	return out
}

// All returns the full standings with dense ranks.
func (x *Index) All() []Entry {
	return x.TopN(x.Len())
}

// Lookup returns the standing of a single item.
func (x *Index) Lookup(name string) (Entry, error) {
	pos, err := x.Position(name)
	if err != nil {
		return Entry{}, err
	}
	// Dense rank depends on the distinct ratings above, so walk the prefix.
	prefix := x.TopN(pos + 1)
	return prefix[pos], nil
}
