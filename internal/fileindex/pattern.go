package fileindex

import (
	"sort"
	"strings"
)

// Pattern describes which filenames are structure files and how identifiers
// are derived from them.
type Pattern struct {
	Prefix     string
	Marker     string
	Extensions []string
}

// normalized returns a copy whose extensions are checked longest first, so a
// ".pdb.gz" file is never classified as ".gz".
func (p Pattern) normalized() Pattern {
	exts := make([]string, 0, len(p.Extensions))
	for _, ext := range p.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		exts = append(exts, ext)
	}
	sort.SliceStable(exts, func(i, j int) bool { return len(exts[i]) > len(exts[j]) })
	p.Extensions = exts
	return p
}

// Match reports whether name is a structure file and returns its identifier
// and matched extension. Only the base name is inspected.
func (p Pattern) Match(name string) (id, ext string, ok bool) {
	return p.normalized().match(name)
}

func (p Pattern) match(name string) (string, string, bool) {
	if p.Prefix != "" && !strings.HasPrefix(name, p.Prefix) {
		return "", "", false
	}
	var ext string
	for _, candidate := range p.Extensions {
		if len(name) >= len(p.Prefix)+len(candidate) && strings.EqualFold(name[len(name)-len(candidate):], candidate) {
			ext = candidate
			break
		}
	}
	if ext == "" {
		return "", "", false
	}
	stem := name[len(p.Prefix) : len(name)-len(ext)]
	if p.Marker != "" {
		// The marker must close the stem. Cutting at its first occurrence
		// would fold "X-F1-model_v4-old" into the same identifier as
		// "X-F1-model_v4".
		id, found := strings.CutSuffix(stem, p.Marker)
		if !found {
			return "", "", false
		}
		stem = id
	}
	if stem == "" {
		return "", "", false
	}
	return stem, ext, true
}
