package category

import (
	"ecbatch/internal/fileindex"
)

// ResolvedSet is a category's members mapped onto concrete files. Files holds
// one variant per resolvable member in member order; Dropped lists members
// with no indexed variant.
type ResolvedSet struct {
	Category Category
	Files    []fileindex.Variant
	Dropped  []string
}

// Paths returns the resolved file paths in member order.
func (r ResolvedSet) Paths() []string {
	paths := make([]string, len(r.Files))
	for i, v := range r.Files {
		paths[i] = v.Path
	}
	return paths
}

// Resolve picks one variant per member. The variant whose extension appears
// earliest in prefs wins, ties broken by index order; when no variant carries a
// preferred extension the first indexed variant is used. Members that are not
// indexed are dropped silently and listed in Dropped.
func Resolve(cat Category, idx *fileindex.Index, prefs []string) ResolvedSet {
	set := ResolvedSet{
		Category: cat,
		Files:    make([]fileindex.Variant, 0, len(cat.Members)),
	}
	rank := make(map[string]int, len(prefs))
	for i, ext := range prefs {
		if _, seen := rank[ext]; !seen {
			rank[ext] = i
		}
	}
	for _, member := range cat.Members {
		variants := idx.Lookup(member)
		if len(variants) == 0 {
			set.Dropped = append(set.Dropped, member)
			continue
		}
		set.Files = append(set.Files, pick(variants, rank))
	}
	return set
}

func pick(variants []fileindex.Variant, rank map[string]int) fileindex.Variant {
	best := -1
	bestRank := len(rank) + 1
	for i, v := range variants {
		r, ok := rank[v.Ext]
		if !ok {
			continue
		}
		if r < bestRank {
			best, bestRank = i, r
		}
	}
	if best < 0 {
		return variants[0]
	}
	return variants[best]
}
