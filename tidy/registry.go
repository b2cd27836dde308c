/*
registry.go - Item and construct registry

PURPOSE:
  The registry is the single place where item semantics live: label,
  polarity, phase, value domain, and which composite indices an item
  contributes to (and whether it enters them reverse-coded). Every
  downstream stage consults the registry instead of hard-coding item
  knowledge, so construct documentation and computed composites can
  never drift apart.

KEY CONCEPTS:
  - ItemDefinition: One survey item (A_1, B_5, aim, ...)
  - ConstructDefinition: A composite index with members and a formula
  - Polarity: Reporting direction of an item (display only)
  - Reversal: Per-construct scoring flag (governs actual arithmetic)

POLARITY vs REVERSAL:
  An item may be "negative polarity" for plotting purposes yet still be
  used un-reversed in some composite. Item polarity governs reporting;
  the per-construct Reversed flag governs scoring. Both are defined here
  and nowhere else.

LIFECYCLE:
  Built once at process start (from the study package's defaults or a
  YAML override), validated, then read-only. Stages receive it as an
  injected dependency, never via a package global, so every stage is
  testable with a substitute registry.

SEE ALSO:
  - melt.go: Resolves labels/polarity/constructs per long row
  - composite.go: Resolves formulas and reversal flags
  - study/registry.go: The concrete TZ5 definitions
*/
package tidy

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DEFINITIONS
// =============================================================================

// Polarity is the reporting direction of an item.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
	PolarityUnknown  Polarity = "unknown" // sentinel for unregistered items
)

// ValueDomain declares what kind of value an item holds.
type ValueDomain string

const (
	// DomainLikert is an integer scale bounded by ScaleMin..ScaleMax.
	DomainLikert ValueDomain = "likert"
	// DomainRank is a per-condition integer ranking (rank_A, rank_B, ...).
	DomainRank ValueDomain = "rank"
	// DomainConditionChoice is a categorical pick of one condition code.
	DomainConditionChoice ValueDomain = "condition_choice"
	// DomainFreeText is unconstrained text, carried into the wide table only.
	DomainFreeText ValueDomain = "free_text"
	// DomainMultiSelect is a set-valued field, carried into the wide table only.
	DomainMultiSelect ValueDomain = "multi_select"
)

// Numeric reports whether the domain is numeric-ordinal, i.e. eligible for
// long-table values and construct membership.
func (d ValueDomain) Numeric() bool {
	return d == DomainLikert || d == DomainRank
}

// ItemDefinition describes one survey item.
type ItemDefinition struct {
	ID       ItemID
	Label    string
	Phase    Phase
	Polarity Polarity
	Domain   ValueDomain

	// Response scale bounds for Likert items. Zero values default to 1..7.
	ScaleMin int
	ScaleMax int
}

func (d ItemDefinition) scale() (int, int) {
	if d.ScaleMin == 0 && d.ScaleMax == 0 {
		return 1, 7
	}
	return d.ScaleMin, d.ScaleMax
}

// ConstructMember is one item's role inside a construct.
type ConstructMember struct {
	Item     ItemID
	Reversed bool
	// Negated places the member in the subtracted subgroup of a
	// mean_minus_mean construct. Ignored by other formulas.
	Negated bool
	// Weight applies to weighted_sum constructs. Zero means weight 1.
	Weight decimal.Decimal
}

// Formula selects how member scores combine into a composite.
type Formula string

const (
	// FormulaMean: arithmetic mean of (possibly reversed) members.
	FormulaMean Formula = "mean"
	// FormulaMeanMinusMean: mean of forward members minus mean of negated members.
	FormulaMeanMinusMean Formula = "mean_minus_mean"
	// FormulaWeightedSum: sum of weight * (possibly reversed) member values.
	FormulaWeightedSum Formula = "weighted_sum"
)

// ConstructDefinition describes one composite index.
type ConstructDefinition struct {
	ID             ConstructID
	Members        []ConstructMember
	Formula        Formula
	Interpretation string
}

// =============================================================================
// REGISTRY
// =============================================================================

// UnknownLabel is the sentinel label returned for unregistered items, so
// downstream stages can warn and continue instead of failing.
const UnknownLabel = "unknown"

// Registry is the process-wide, read-only item/construct lookup table.
type Registry struct {
	items          map[ItemID]ItemDefinition
	constructs     map[ConstructID]ConstructDefinition
	itemOrder      []ItemID
	constructOrder []ConstructID
	containing     map[ItemID][]ConstructID
	reversedIn     map[ItemID]bool
}

// NewRegistry builds and validates a registry. Definition order is
// preserved as the canonical column order for the wide table.
//
// Validation failures are fatal: a registry that references undefined or
// non-numeric members would make every downstream composite meaningless.
func NewRegistry(items []ItemDefinition, constructs []ConstructDefinition) (*Registry, error) {
	r := &Registry{
		items:      make(map[ItemID]ItemDefinition, len(items)),
		constructs: make(map[ConstructID]ConstructDefinition, len(constructs)),
		containing: make(map[ItemID][]ConstructID),
		reversedIn: make(map[ItemID]bool),
	}

	for _, it := range items {
		if _, dup := r.items[it.ID]; dup {
			return nil, &RegistryError{Item: it.ID, Err: ErrDuplicateItem}
		}
		if it.Polarity == "" {
			it.Polarity = PolarityPositive
		}
		r.items[it.ID] = it
		r.itemOrder = append(r.itemOrder, it.ID)
	}

	for _, c := range constructs {
		if _, dup := r.constructs[c.ID]; dup {
			return nil, &RegistryError{Construct: c.ID, Err: ErrDuplicateConstruct}
		}
		if len(c.Members) == 0 {
			return nil, &RegistryError{Construct: c.ID, Err: ErrEmptyConstruct}
		}
		for _, m := range c.Members {
			def, ok := r.items[m.Item]
			if !ok {
				return nil, &RegistryError{Construct: c.ID, Item: m.Item, Err: ErrUnknownMember}
			}
			if !def.Domain.Numeric() {
				return nil, &RegistryError{Construct: c.ID, Item: m.Item, Err: ErrNonNumericMember}
			}
			r.containing[m.Item] = append(r.containing[m.Item], c.ID)
			if m.Reversed {
				r.reversedIn[m.Item] = true
			}
		}
		r.constructs[c.ID] = c
		r.constructOrder = append(r.constructOrder, c.ID)
	}

	return r, nil
}

// Item returns the definition for an item id.
func (r *Registry) Item(id ItemID) (ItemDefinition, bool) {
	d, ok := r.items[id]
	return d, ok
}

// Label returns the item's label, or the UnknownLabel sentinel.
func (r *Registry) Label(id ItemID) string {
	if d, ok := r.items[id]; ok {
		return d.Label
	}
	return UnknownLabel
}

// PolarityOf returns the item's polarity, or PolarityUnknown.
func (r *Registry) PolarityOf(id ItemID) Polarity {
	if d, ok := r.items[id]; ok {
		return d.Polarity
	}
	return PolarityUnknown
}

// ConstructsContaining returns the ids of constructs the item belongs to,
// in construct definition order.
func (r *Registry) ConstructsContaining(id ItemID) []ConstructID {
	return r.containing[id]
}

// IsReversed reports whether at least one construct claims the item as a
// reversed member. This, not polarity, drives the long table's is_reverse.
func (r *Registry) IsReversed(id ItemID) bool {
	return r.reversedIn[id]
}

// Construct returns a construct definition by id.
func (r *Registry) Construct(id ConstructID) (ConstructDefinition, bool) {
	c, ok := r.constructs[id]
	return c, ok
}

// Constructs returns all construct definitions in definition order.
func (r *Registry) Constructs() []ConstructDefinition {
	out := make([]ConstructDefinition, 0, len(r.constructOrder))
	for _, id := range r.constructOrder {
		out = append(out, r.constructs[id])
	}
	return out
}

// CanonicalItems returns all item ids in definition order. This order fixes
// the wide table's column layout across runs.
func (r *Registry) CanonicalItems() []ItemID {
	return r.itemOrder
}

// ItemsForPhase returns item ids of the given phase, in canonical order,
// optionally filtered to numeric-ordinal domains.
func (r *Registry) ItemsForPhase(p Phase, numericOnly bool) []ItemID {
	var out []ItemID
	for _, id := range r.itemOrder {
		d := r.items[id]
		if d.Phase != p {
			continue
		}
		if numericOnly && !d.Domain.Numeric() {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Scale returns the response scale bounds for an item (1..7 by default).
func (r *Registry) Scale(id ItemID) (min, max int) {
	if d, ok := r.items[id]; ok {
		return d.scale()
	}
	return 1, 7
}

// SortItemIDs sorts ids in canonical registry order; ids not in the
// registry sort last, alphabetically. Used for deterministic reporting.
func (r *Registry) SortItemIDs(ids []ItemID) {
	pos := make(map[ItemID]int, len(r.itemOrder))
	for i, id := range r.itemOrder {
		pos[id] = i
	}
	sort.SliceStable(ids, func(i, j int) bool {
		pi, iok := pos[ids[i]]
		pj, jok := pos[ids[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok:
			return true
		case jok:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
}
