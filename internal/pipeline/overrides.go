package pipeline

import (
	"ortkod/internal"
	"ortkod/internal/util"
)

type ResolutionKind int

const (
	ResolutionNormal ResolutionKind = iota
	ResolutionManual
	ResolutionReplaced
)

// Resolution is the override outcome for one order number. Kind follows the
// precedence manual > replaced > normal. The replacement lookup is independent of
// the manual one, so Replaced and Replacement are also set on a manual resolution.
type Resolution struct {
	Kind         ResolutionKind
	Abbreviation string
	Replaced     bool
	Replacement  string
}

// Resolver answers override lookups against one snapshot of the operator tables.
// Keys are compared trimmed and case-insensitive; the first entry for a key wins.
type Resolver struct {
	manual       map[string]string
	replacements map[string]string
	excluded     map[string]struct{}
}

func NewResolver(manual []internal.ManualAbbreviation, replacements []internal.OrderReplacement, exclusions []string) *Resolver {
	r := &Resolver{
		manual:       make(map[string]string, len(manual)),
		replacements: make(map[string]string, len(replacements)),
		excluded:     make(map[string]struct{}, len(exclusions)),
	}
	for _, m := range manual {
		key := util.FoldKey(m.OrderNumber)
		if key == "" {
			continue
		}
		if _, ok := r.manual[key]; !ok {
			r.manual[key] = m.Abbreviation
		}
	}
	for _, rep := range replacements {
		key := util.FoldKey(rep.OriginalOrderNumber)
		if key == "" {
			continue
		}
		if _, ok := r.replacements[key]; !ok {
			r.replacements[key] = rep.ReplacementOrderNumber
		}
	}
	for _, e := range exclusions {
		key := util.FoldKey(e)
		if key != "" {
			r.excluded[key] = struct{}{}
		}
	}
	return r
}

func (r *Resolver) ManualAbbreviation(orderNumber string) (string, bool) {
	key := util.FoldKey(orderNumber)
	if key == "" {
		return "", false
	}
	v, ok := r.manual[key]
	return v, ok
}

func (r *Resolver) Replacement(orderNumber string) (string, bool) {
	key := util.FoldKey(orderNumber)
	if key == "" {
		return "", false
	}
	v, ok := r.replacements[key]
	return v, ok
}

func (r *Resolver) Resolve(orderNumber string) Resolution {
	res := Resolution{Kind: ResolutionNormal}
	if rep, ok := r.Replacement(orderNumber); ok {
		res.Kind = ResolutionReplaced
		res.Replaced = true
		res.Replacement = rep
	}
	if abbr, ok := r.ManualAbbreviation(orderNumber); ok {
		res.Kind = ResolutionManual
		res.Abbreviation = abbr
	}
	return res
}

func (r *Resolver) IsExcluded(orderNumber string) bool {
	key := util.FoldKey(orderNumber)
	if key == "" {
		return false
	}
	_, ok := r.excluded[key]
	return ok
}
