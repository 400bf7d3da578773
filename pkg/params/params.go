// Package params classifies observed path and query parameter sets into
// required and optional parameter descriptors.
//
// Each observed set is reduced to (name, kind) pairs. A pair is required when
// it occurs in every observed set of its location and optional when it occurs
// in some but not all. A name observed with two kinds yields two distinct
// pairs; such names are reported as conflicts and never merged.
package params

import (
	"sort"

	"github.com/usestring/apirecord/pkg/value"
)

// Location is where a parameter appears in the request.
type Location string

const (
	LocationPath  Location = "path"
	LocationQuery Location = "query"
)

// Descriptor describes one inferred parameter.
type Descriptor struct {
	Name     string     `json:"name"`
	In       Location   `json:"in"`
	Type     value.Kind `json:"type"`
	Required bool       `json:"required"`
}

// Conflict reports a parameter name observed with more than one kind.
type Conflict struct {
	In    Location     `json:"in"`
	Name  string       `json:"name"`
	Kinds []value.Kind `json:"kinds"`
}

// Result holds the descriptors of one classification run, required before
// optional, each group ordered by name and then kind.
type Result struct {
	Descriptors []Descriptor `json:"descriptors"`
	Conflicts   []Conflict   `json:"conflicts,omitempty"`
}

type pair struct {
	name string
	kind value.Kind
}

// Classify infers descriptors for one location from parameter sets in
// arrival order. Null-valued parameters are treated as absent.
func Classify(in Location, sets []value.Object) Result {
	res := Result{Descriptors: make([]Descriptor, 0)}
	if len(sets) == 0 {
		return res
	}

	required := pairsOf(sets[0])
	union := make(map[pair]bool, len(required))
	for p := range required {
		union[p] = true
	}

	for _, set := range sets[1:] {
		pairs := pairsOf(set)
		for p := range pairs {
			union[p] = true
		}
		for p := range required {
			if !pairs[p] {
				delete(required, p)
			}
		}
	}

	var req, opt []pair
	for p := range union {
		if required[p] {
			req = append(req, p)
		} else {
			opt = append(opt, p)
		}
	}
	sortPairs(req)
	sortPairs(opt)

	for _, p := range req {
		res.Descriptors = append(res.Descriptors, Descriptor{Name: p.name, In: in, Type: p.kind, Required: true})
	}
	for _, p := range opt {
		res.Descriptors = append(res.Descriptors, Descriptor{Name: p.name, In: in, Type: p.kind, Required: false})
	}

	res.Conflicts = conflictsOf(in, union)
	return res
}

// ClassifyAll classifies path and query sets independently and concatenates
// the results, path first.
func ClassifyAll(path, query []value.Object) Result {
	p := Classify(LocationPath, path)
	q := Classify(LocationQuery, query)
	return Result{
		Descriptors: append(p.Descriptors, q.Descriptors...),
		Conflicts:   append(p.Conflicts, q.Conflicts...),
	}
}

// Sort orders descriptors the way Classify does: location (path first),
// required before optional, then name, then kind.
func Sort(ds []Descriptor) {
	rank := func(in Location) int {
		if in == LocationPath {
			return 0
		}
		return 1
	}
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.In != b.In {
			return rank(a.In) < rank(b.In)
		}
		if a.Required != b.Required {
			return a.Required
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Type < b.Type
	})
}

func pairsOf(set value.Object) map[pair]bool {
	pairs := make(map[pair]bool, len(set))
	for name, v := range set {
		if v == nil || v.Kind() == value.KindNull {
			continue
		}
		pairs[pair{name: name, kind: v.Kind()}] = true
	}
	return pairs
}

func sortPairs(ps []pair) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].name != ps[j].name {
			return ps[i].name < ps[j].name
		}
		return ps[i].kind < ps[j].kind
	})
}

func conflictsOf(in Location, union map[pair]bool) []Conflict {
	kinds := make(map[string][]value.Kind)
	for p := range union {
		kinds[p.name] = append(kinds[p.name], p.kind)
	}

	names := make([]string, 0, len(kinds))
	for name, ks := range kinds {
		if len(ks) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []Conflict
	for _, name := range names {
		ks := kinds[name]
		sort.Slice(ks, func(i, j int) bool { return ks[i] < ks[j] })
		out = append(out, Conflict{In: in, Name: name, Kinds: ks})
	}
	return out
}
