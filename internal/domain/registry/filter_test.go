package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

func filterFixture(t *testing.T) *State {
	t.Helper()
	s := NewState(nil)
	for _, a := range []*asset.AssetData{
		record("/Game/A", "A", "Foo", map[string]string{"Color": "Red"}),
		record("/Game/B", "B", "Foo", map[string]string{"Color": "Blue"}),
		record("/Game/C", "C", "Bar", map[string]string{"Color": "Red"}),
		record("/Game/Maps/Deep/D", "D", "Foo", nil),
	} {
		require.True(t, s.AddRecord(a))
	}
	return s
}

func objectPaths(list []*asset.AssetData) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ObjectPath.String()
	}
	return out
}

func TestEnumerateAssetsConjunction(t *testing.T) {
	s := filterFixture(t)

	got, ok := s.GetAssets(Filter{
		ClassNames: []names.Name{names.Intern("Foo")},
		Tags:       []TagFilter{{Key: names.Intern("Color"), Value: "Red", HasValue: true}},
	}, nil)
	require.True(t, ok)
	assert.Equal(t, []string{"/Game/A.A"}, objectPaths(got))
}

func TestEnumerateAssetsClauses(t *testing.T) {
	s := filterFixture(t)
	color := names.Intern("Color")

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{
			name:   "class union",
			filter: Filter{ClassNames: []names.Name{names.Intern("Foo"), names.Intern("Bar")}},
			want:   []string{"/Game/A.A", "/Game/B.B", "/Game/C.C", "/Game/Maps/Deep/D.D"},
		},
		{
			name:   "tag key only",
			filter: Filter{Tags: []TagFilter{{Key: color}}},
			want:   []string{"/Game/A.A", "/Game/B.B", "/Game/C.C"},
		},
		{
			name:   "package name",
			filter: Filter{PackageNames: []names.Name{names.Intern("/Game/B")}},
			want:   []string{"/Game/B.B"},
		},
		{
			name:   "object path",
			filter: Filter{ObjectPaths: []names.Name{names.Intern("/Game/C.C"), names.Intern("/Game/Missing.Missing")}},
			want:   []string{"/Game/C.C"},
		},
		{
			name:   "path not recursive",
			filter: Filter{PackagePaths: []names.Name{names.Intern("/Game/Maps")}},
			want:   []string{},
		},
		{
			name:   "path recursive",
			filter: Filter{PackagePaths: []names.Name{names.Intern("/Game/Maps")}, RecursivePaths: true},
			want:   []string{"/Game/Maps/Deep/D.D"},
		},
		{
			name: "disjoint clauses",
			filter: Filter{
				ClassNames:   []names.Name{names.Intern("Bar")},
				PackageNames: []names.Name{names.Intern("/Game/A")},
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.GetAssets(tt.filter, nil)
			require.True(t, ok)
			assert.Equal(t, tt.want, objectPaths(got))
		})
	}
}

func TestEnumerateAssetsEmptyFilter(t *testing.T) {
	s := filterFixture(t)
	called := false
	ok := s.EnumerateAssets(Filter{}, nil, func(*asset.AssetData) bool {
		called = true
		return true
	})
	assert.False(t, ok)
	assert.False(t, called)
	assert.Len(t, s.GetAllAssets(nil), 4)
}

func TestEnumerateAssetsSkipAndFlags(t *testing.T) {
	s := filterFixture(t)
	b, _ := s.AssetByObjectPath(names.Intern("/Game/B.B"))
	b.PackageFlags = asset.FlagContainsMap

	foo := Filter{ClassNames: []names.Name{names.Intern("Foo")}}

	got, _ := s.GetAssets(foo, names.NewSet("/Game/A"))
	assert.Equal(t, []string{"/Game/B.B", "/Game/Maps/Deep/D.D"}, objectPaths(got))

	withMap := foo
	withMap.WithPackageFlags = asset.FlagContainsMap
	got, _ = s.GetAssets(withMap, nil)
	assert.Equal(t, []string{"/Game/B.B"}, objectPaths(got))

	withoutMap := foo
	withoutMap.WithoutPackageFlags = asset.FlagContainsMap
	got, _ = s.GetAssets(withoutMap, nil)
	assert.Equal(t, []string{"/Game/A.A", "/Game/Maps/Deep/D.D"}, objectPaths(got))
}

func TestEnumerateAssetsStopsEarly(t *testing.T) {
	s := filterFixture(t)
	var seen []string
	s.EnumerateAllAssets(nil, func(a *asset.AssetData) bool {
		seen = append(seen, a.ObjectPath.String())
		return len(seen) < 2
	})
	assert.Equal(t, []string{"/Game/A.A", "/Game/B.B"}, seen)
}

func TestGetAssetsReturnsCopies(t *testing.T) {
	s := filterFixture(t)
	got, _ := s.GetAssets(Filter{PackageNames: []names.Name{names.Intern("/Game/A")}}, nil)
	require.Len(t, got, 1)
	got[0].AssetClass = names.Intern("Changed")

	stored, _ := s.AssetByObjectPath(names.Intern("/Game/A.A"))
	assert.Equal(t, "Foo", stored.AssetClass.String())
}

func TestGlobalFilterHidesRecords(t *testing.T) {
	s := filterFixture(t)
	stripped := record("/Game/E", "E", "Baz", nil)
	stripped.PackageFlags = asset.FlagFilterEditorOnly
	require.True(t, s.AddRecord(stripped))

	require.NoError(t, s.SetGlobalFilter(GlobalFilter{
		ExcludedClasses:      []string{"B*"},
		ExcludedPackageFlags: asset.FlagFilterEditorOnly,
	}))

	assert.Equal(t, []string{"/Game/A.A", "/Game/B.B", "/Game/Maps/Deep/D.D"}, objectPaths(s.GetAllAssets(nil)))

	got, ok := s.GetAssets(Filter{Tags: []TagFilter{{Key: names.Intern("Color"), Value: "Red", HasValue: true}}}, nil)
	require.True(t, ok)
	assert.Equal(t, []string{"/Game/A.A"}, objectPaths(got))

	// Hidden records stay indexed
	assert.Equal(t, 5, s.NumAssets())
	_, found := s.AssetByObjectPath(names.Intern("/Game/C.C"))
	assert.True(t, found)

	require.NoError(t, s.SetGlobalFilter(GlobalFilter{ExcludedClasses: []string{"*"}}))
	assert.Empty(t, s.GetAllAssets(nil))

	assert.Error(t, s.SetGlobalFilter(GlobalFilter{ExcludedClasses: []string{"[Foo"}}))
	assert.Equal(t, []string{"*"}, s.GlobalFilter().ExcludedClasses)
}
