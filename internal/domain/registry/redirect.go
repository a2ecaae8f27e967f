package registry

import (
	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

// RedirectCache memoizes ResolveRedirector results for one pass.
type RedirectCache map[asset.AssetIdentifier]asset.AssetIdentifier

// ResolveRedirector follows package redirectors starting at id. It stops at
// a package in allowed, at a package whose records are not redirectors, at
// a package with no records, or when the chain loops back on itself, and
// returns the node it stopped at. A nil allowed set allows nothing, so
// chains resolve to their first non-redirector.
func (s *State) ResolveRedirector(id asset.AssetIdentifier, allowed names.Set, cache RedirectCache) (asset.AssetIdentifier, bool) {
	if cached, ok := cache[id]; ok {
		return cached, true
	}
	start, ok := s.graph.find(id)
	if !ok {
		return asset.AssetIdentifier{}, false
	}
	result := s.resolve(start, allowed)
	if cache != nil {
		cache[id] = s.graph.node(result).id
	}
	return s.graph.node(result).id, true
}

func (s *State) resolve(start nodeID, allowed names.Set) nodeID {
	current := start
	seen := map[names.Name]bool{}
	for {
		pkg := s.graph.node(current).id.PackageName
		if seen[pkg] {
			return current
		}
		seen[pkg] = true

		records := s.byPackageName[pkg]
		if len(records) == 0 {
			return current
		}
		redirector := false
		for _, a := range records {
			if a.IsRedirector() {
				redirector = true
				break
			}
		}
		if !redirector {
			return current
		}

		// The last matching edge wins, for allowed targets and chained ones
		next, allowedTarget := noNode, noNode
		for _, e := range s.graph.node(current).deps[categorySlot(CategoryPackage)] {
			target := s.graph.node(e.to).id.PackageName
			if allowed.Contains(target) {
				allowedTarget = e.to
			} else if len(s.byPackageName[target]) > 0 {
				next = e.to
			}
		}
		if allowedTarget != noNode {
			return allowedTarget
		}
		if next == noNode {
			return current
		}
		current = next
	}
}
