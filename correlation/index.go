// Package correlation maps rendered geometry fragments back to the express
// ids of the elements they were generated from.
package correlation

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

type Confidence uint8

const (
	None Confidence = iota
	Exact
	// Approximate means the fragment was merged from several elements and the
	// hit could not be attributed to one of them
	Approximate
)

var confidenceNames = [...]string{"none", "exact", "approximate"}

func (c Confidence) String() string {
	if int(c) < len(confidenceNames) {
		return confidenceNames[c]
	}
	return fmt.Sprintf("Confidence(%d)", c)
}

func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Region is a range of hit indices (e.g. triangles) inside a fragment
type Region struct {
	Start uint32 `json:"start"`
	Count uint32 `json:"count"`
}

func (r Region) end() int64 {
	return int64(r.Start) + int64(r.Count)
}

// Fragment is one rendered primitive. Regions is optional; when given it runs
// parallel to ElementIDs, region i belonging to ElementIDs[i].
type Fragment struct {
	ID         string   `json:"id"`
	ElementIDs []int64  `json:"elementIds"`
	Regions    []Region `json:"regions,omitempty"`
}

type Resolution struct {
	ElementID  int64      `json:"expressId"`
	Confidence Confidence `json:"confidence"`
}

func (r Resolution) Found() bool {
	return r.Confidence != None
}

var ErrInvalidFragment = errors.New("correlation: invalid fragment")

type FragmentError struct {
	FragmentID string
	Reason     string
}

func (e *FragmentError) Error() string {
	return fmt.Sprintf("correlation: fragment %q: %s", e.FragmentID, e.Reason)
}

func (e *FragmentError) Is(target error) bool { return target == ErrInvalidFragment }

type region struct {
	Region
	element int64
}

type entry struct {
	elements []int64
	regions  []region // sorted by start
}

// Index is immutable once built and safe for concurrent use
type Index struct {
	fragments map[string]entry
	byElement map[int64][]string
}

// New validates the fragments and builds the index. All errors match ErrInvalidFragment.
func New(fragments []Fragment) (*Index, error) {
	idx := &Index{
		fragments: make(map[string]entry, len(fragments)),
		byElement: map[int64][]string{},
	}
	for _, f := range fragments {
		if f.ID == "" {
			return nil, &FragmentError{Reason: "empty id"}
		}
		if _, exists := idx.fragments[f.ID]; exists {
			return nil, &FragmentError{FragmentID: f.ID, Reason: "defined more than once"}
		}
		if len(f.ElementIDs) == 0 {
			return nil, &FragmentError{FragmentID: f.ID, Reason: "no elements"}
		}
		e := entry{elements: slices.Clone(f.ElementIDs)}
		if len(f.Regions) > 0 {
			if len(f.Regions) != len(f.ElementIDs) {
				return nil, &FragmentError{FragmentID: f.ID, Reason: fmt.Sprintf("%d regions for %d elements", len(f.Regions), len(f.ElementIDs))}
			}
			e.regions = make([]region, len(f.Regions))
			for i, r := range f.Regions {
				e.regions[i] = region{Region: r, element: f.ElementIDs[i]}
			}
			sort.Slice(e.regions, func(i, j int) bool { return e.regions[i].Start < e.regions[j].Start })
			for i := 1; i < len(e.regions); i++ {
				if int64(e.regions[i].Start) < e.regions[i-1].end() {
					return nil, &FragmentError{FragmentID: f.ID, Reason: fmt.Sprintf("regions starting at %d and %d overlap", e.regions[i-1].Start, e.regions[i].Start)}
				}
			}
		}
		idx.fragments[f.ID] = e
		seen := make(map[int64]bool, len(e.elements))
		for _, id := range e.elements {
			if !seen[id] {
				seen[id] = true
				idx.byElement[id] = append(idx.byElement[id], f.ID)
			}
		}
	}
	for _, ids := range idx.byElement {
		sort.Strings(ids)
	}
	return idx, nil
}

// Resolve names the element a hit on a fragment belongs to. Unknown fragments
// resolve with confidence None.
func (idx *Index) Resolve(fragmentID string, hit int64) Resolution {
	e, ok := idx.fragments[fragmentID]
	if !ok {
		return Resolution{Confidence: None}
	}
	if len(e.elements) == 1 {
		return Resolution{ElementID: e.elements[0], Confidence: Exact}
	}
	if len(e.regions) > 0 {
		// Last region starting at or before the hit
		i := sort.Search(len(e.regions), func(i int) bool { return int64(e.regions[i].Start) > hit }) - 1
		if i >= 0 && hit < e.regions[i].end() {
			return Resolution{ElementID: e.regions[i].element, Confidence: Exact}
		}
	}
	return Resolution{ElementID: e.elements[0], Confidence: Approximate}
}

// Fragments returns the sorted ids of the fragments an element contributes to
func (idx *Index) Fragments(expressID int64) []string {
	return slices.Clone(idx.byElement[expressID])
}

// Len is the number of fragments
func (idx *Index) Len() int {
	return len(idx.fragments)
}
