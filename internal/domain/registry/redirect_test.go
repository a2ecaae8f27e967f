package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

func redirector(t *testing.T, s *State, pkg, target string) {
	t.Helper()
	require.True(t, s.AddRecord(record(pkg, "Redirect", asset.RedirectorClass, nil)))
	s.AddDependencyData(importRecord(pkg, target))
}

func TestResolveRedirectorChain(t *testing.T) {
	s := NewState(nil)
	redirector(t, s, "/Game/Old1", "/Game/Old2")
	redirector(t, s, "/Game/Old2", "/Game/New")
	require.True(t, s.AddRecord(record("/Game/New", "New", "Foo", nil)))

	cache := RedirectCache{}
	got, ok := s.ResolveRedirector(pkgID("/Game/Old1"), nil, cache)
	require.True(t, ok)
	assert.Equal(t, pkgID("/Game/New"), got)
	assert.Equal(t, pkgID("/Game/New"), cache[pkgID("/Game/Old1")])

	got, _ = s.ResolveRedirector(pkgID("/Game/Old1"), names.NewSet("/Game/Old2"), nil)
	assert.Equal(t, pkgID("/Game/Old2"), got, "allowed packages stop the walk")

	got, _ = s.ResolveRedirector(pkgID("/Game/New"), nil, nil)
	assert.Equal(t, pkgID("/Game/New"), got)
}

func TestResolveRedirectorCycle(t *testing.T) {
	s := NewState(nil)
	redirector(t, s, "/Game/R1", "/Game/R2")
	redirector(t, s, "/Game/R2", "/Game/R1")

	got, ok := s.ResolveRedirector(pkgID("/Game/R1"), nil, nil)
	require.True(t, ok)
	assert.Equal(t, pkgID("/Game/R1"), got)
}

func TestResolveRedirectorStopsAtMissingTarget(t *testing.T) {
	s := NewState(nil)
	redirector(t, s, "/Game/Old", "/Game/Deleted")

	got, ok := s.ResolveRedirector(pkgID("/Game/Old"), nil, nil)
	require.True(t, ok)
	assert.Equal(t, pkgID("/Game/Old"), got)

	_, ok = s.ResolveRedirector(pkgID("/Game/Unknown"), nil, nil)
	assert.False(t, ok)
}

func TestResolveRedirectorTakesLastTarget(t *testing.T) {
	s := NewState(nil)
	require.True(t, s.AddRecord(record("/Game/Old", "Redirect", asset.RedirectorClass, nil)))
	s.AddDependencyData(importRecord("/Game/Old", "/Game/A", "/Game/B"))
	require.True(t, s.AddRecord(record("/Game/A", "A", "Foo", nil)))
	require.True(t, s.AddRecord(record("/Game/B", "B", "Foo", nil)))

	got, ok := s.ResolveRedirector(pkgID("/Game/Old"), nil, nil)
	require.True(t, ok)
	assert.Equal(t, pkgID("/Game/B"), got)

	got, _ = s.ResolveRedirector(pkgID("/Game/Old"), names.NewSet("/Game/A", "/Game/B"), nil)
	assert.Equal(t, pkgID("/Game/B"), got)

	got, _ = s.ResolveRedirector(pkgID("/Game/Old"), names.NewSet("/Game/A"), nil)
	assert.Equal(t, pkgID("/Game/A"), got, "an allowed target beats a chained one")
}
