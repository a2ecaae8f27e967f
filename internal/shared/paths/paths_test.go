package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMount(t *testing.T) {
	dir := t.TempDir()

	m, err := ParseMount(dir + "=/Game/")
	require.NoError(t, err)
	assert.Equal(t, "/Game", m.PackageRoot)
	assert.Equal(t, NormalizeLocal(dir), m.LocalPath)

	content := filepath.Join(dir, "Content")
	m, err = ParseMount(content)
	require.NoError(t, err)
	assert.Equal(t, "/Content", m.PackageRoot)

	_, err = ParseMount(dir + "=Game")
	assert.Error(t, err)
	_, err = ParseMount(dir + "=/Ga.me")
	assert.Error(t, err)
	_, err = ParseMount("")
	assert.Error(t, err)
}

func TestPackageNameFor(t *testing.T) {
	m := Mount{LocalPath: "/work/Content", PackageRoot: "/Game"}

	name, ok := m.PackageNameFor("/work/Content/Maps/Level.map")
	require.True(t, ok)
	assert.Equal(t, "/Game/Maps/Level", name)

	name, ok = m.PackageNameFor("/work/Content/Root.asset")
	require.True(t, ok)
	assert.Equal(t, "/Game/Root", name)

	_, ok = m.PackageNameFor("/work/Other/Thing.asset")
	assert.False(t, ok)

	// Sibling directory sharing a prefix is not inside the mount
	_, ok = m.PackageNameFor("/work/ContentExtra/Thing.asset")
	assert.False(t, ok)
}

func TestFindMountLongestWins(t *testing.T) {
	mounts := []Mount{
		{LocalPath: "/work", PackageRoot: "/Work"},
		{LocalPath: "/work/Plugins/Foo", PackageRoot: "/Foo"},
	}
	m, ok := FindMount(mounts, "/work/Plugins/Foo/Bar.asset")
	require.True(t, ok)
	assert.Equal(t, "/Foo", m.PackageRoot)

	_, ok = FindMount(mounts, "/elsewhere/x.asset")
	assert.False(t, ok)
}

func TestPackageNameHelpers(t *testing.T) {
	assert.Equal(t, "/Game/Maps", PackagePath("/Game/Maps/Level"))
	assert.Equal(t, "Level", AssetName("/Game/Maps/Level"))
	assert.Equal(t, "/Game/Maps/Level.Level", ObjectPath("/Game/Maps/Level", "Level"))

	pkg, obj := SplitObjectPath("/Game/A.A")
	assert.Equal(t, "/Game/A", pkg)
	assert.Equal(t, "A", obj)

	assert.True(t, IsScriptPackage("/Script/Engine"))
	assert.False(t, IsScriptPackage("/Game/Script"))
	assert.True(t, IsLocalizedPackage("/Game/L10N/fr/Texture"))
	assert.False(t, IsLocalizedPackage("/Game/Texture"))

	assert.True(t, ContainsInvalidCharacters("Bad.Name"))
	assert.True(t, ContainsInvalidCharacters("Bad Name"))
	assert.False(t, ContainsInvalidCharacters("GoodName_01"))
}

func TestIsParentPath(t *testing.T) {
	assert.True(t, IsParentPath("/Game/Priority", "/Game/Priority/Sub/x"))
	assert.True(t, IsParentPath("/Game/Priority", "/Game/Priority"))
	assert.True(t, IsParentPath("/Game/Priority/", "/Game/Priority/x"))
	assert.False(t, IsParentPath("/Game/Priority", "/Game/PriorityOther/x"))
}
