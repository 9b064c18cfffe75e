package refsheet

import (
	"strings"

	"ortkod/internal"
	"ortkod/internal/util"
)

const (
	colGeneralApproval  = 0
	colSpecificApproval = 3
	colCode             = 6
)

// Index is the reference list reduced to the set of known codes and the approved subset.
type Index struct {
	all      map[string]struct{}
	approved map[string]struct{}
}

func BuildIndex(rows [][]string) *Index {
	idx := &Index{
		all:      map[string]struct{}{},
		approved: map[string]struct{}{},
	}
	for _, row := range rows {
		code := util.NormalizeCode(cellAt(row, colCode))
		if code == "" {
			continue
		}
		idx.all[code] = struct{}{}
		if isTrue(cellAt(row, colGeneralApproval)) && isTrue(cellAt(row, colSpecificApproval)) {
			idx.approved[code] = struct{}{}
		}
	}
	return idx
}

func (idx *Index) Len() int {
	return len(idx.all)
}

// Check classifies codes. The reported lists keep the caller's spelling, deduplicated
// in first-seen order. ExistingCount is derived from the raw per-code tallies.
func (idx *Index) Check(codes []string) internal.CodeCheckResult {
	total := len(codes)
	if idx == nil || len(idx.all) == 0 {
		return internal.CodeCheckResult{
			Success:         true,
			MissingCodes:    []string{},
			UnapprovedCodes: []string{},
			TotalChecked:    total,
			ExistingCount:   total,
		}
	}

	var rawMissing, rawUnapproved int
	missing := newOrderedSet()
	unapproved := newOrderedSet()
	for _, code := range codes {
		normalized := util.NormalizeCode(code)
		if normalized == "" {
			continue
		}
		if _, ok := idx.all[normalized]; !ok {
			rawMissing++
			missing.add(code)
			continue
		}
		if _, ok := idx.approved[normalized]; !ok {
			rawUnapproved++
			unapproved.add(code)
		}
	}

	return internal.CodeCheckResult{
		Success:         true,
		MissingCodes:    missing.items,
		UnapprovedCodes: unapproved.items,
		TotalChecked:    total,
		ExistingCount:   total - rawMissing - rawUnapproved,
		MissingCount:    len(missing.items),
		UnapprovedCount: len(unapproved.items),
	}
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}, items: []string{}}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isTrue(v string) bool {
	return strings.ToLower(v) == "true"
}
