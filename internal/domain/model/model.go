// Package model contains domain models passed between layers.
package model

// Item is one rankable entry of the catalog, a language model with its
// descriptive metadata. Costs are per million tokens and may be unknown.
type Item struct {
	Name       string   `json:"name" yaml:"name" validate:"required,max=128"`
	Provider   string   `json:"provider" yaml:"provider" validate:"required"`
	Open       bool     `json:"open" yaml:"open"`
	Context    string   `json:"context" yaml:"context"`
	Params     string   `json:"params" yaml:"params"`
	Reasoning  bool     `json:"reasoning" yaml:"reasoning"`
	InputCost  *float64 `json:"input_cost" yaml:"input_cost" validate:"omitempty,gte=0"`
	OutputCost *float64 `json:"output_cost" yaml:"output_cost" validate:"omitempty,gte=0"`
}

// VoteEvent is one recorded pairwise outcome. Seq is assigned by the vote log
// on append and defines replay order. Time is an RFC3339 timestamp or empty
// when the source did not record one.
type VoteEvent struct {
	Seq    int64  `json:"seq"`
	ID     string `json:"vote_id,omitempty"`
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
	Time   string `json:"time,omitempty"`
}

// TimelinePoint is one sample of an item's rating trajectory. The first point
// of every timeline has no time.
type TimelinePoint struct {
	Time  string  `json:"time,omitempty"`
	Score float64 `json:"score"`
}

// Outcome records a single applied vote with full before/after snapshots.
type Outcome struct {
	Winner string             `json:"winner"`
	Loser  string             `json:"loser"`
	Before map[string]float64 `json:"before"`
	After  map[string]float64 `json:"after"`
	Time   string             `json:"time,omitempty"`
}

// VoteReceipt describes what happened to a submitted vote. A duplicate
// receipt carries the submitted event without a Seq and an empty outcome.
type VoteReceipt struct {
	Event     VoteEvent
	Outcome   Outcome
	Duplicate bool
}
