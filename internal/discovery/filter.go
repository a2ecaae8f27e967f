package discovery

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/GriffinCanCode/assetregistry/internal/shared/paths"
)

// denyList matches directories against prefixes and glob patterns.
type denyList struct {
	prefixes []string
	patterns []string
}

func newDenyList(filters []string) denyList {
	var d denyList
	for _, f := range filters {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if strings.ContainsAny(f, "*?[{") {
			if doublestar.ValidatePattern(f) {
				d.patterns = append(d.patterns, f)
			}
			continue
		}
		d.prefixes = append(d.prefixes, paths.NormalizePackagePath(f))
	}
	return d
}

// denies reports whether any of the given forms of a path is denied.
func (d denyList) denies(candidates ...string) bool {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, p := range d.prefixes {
			if paths.IsParentPath(p, c) {
				return true
			}
		}
		for _, p := range d.patterns {
			if ok, _ := doublestar.Match(p, c); ok {
				return true
			}
		}
	}
	return false
}
