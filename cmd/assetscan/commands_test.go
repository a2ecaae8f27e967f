package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/assetregistry/internal/pkgfile"
)

type cli struct {
	root     string
	snapshot string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("ASSET_CACHE_DIR", t.TempDir())
	t.Setenv("ASSET_SERIALIZATION_OPTIONS", "")

	root := filepath.Join(t.TempDir(), "Content")
	rock := pkgfile.NewPackage()
	rock.AddAsset("Rock", "StaticMesh", map[string]string{"Color": "Grey"})
	rock.AddPackageImport("/Game/Materials/Stone", true)
	require.NoError(t, pkgfile.WriteFile(filepath.Join(root, "Props", "Rock.asset"), rock))

	stone := pkgfile.NewPackage()
	stone.AddAsset("Stone", "Material", map[string]string{"Color": "Grey"})
	require.NoError(t, pkgfile.WriteFile(filepath.Join(root, "Materials", "Stone.asset"), stone))

	return &cli{root: root, snapshot: filepath.Join(t.TempDir(), "AssetRegistry.bin")}
}

func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--root", c.root + "=/Game", "--snapshot", c.snapshot, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := newRootCommand()
	var got []string
	for _, sub := range cmd.Commands() {
		got = append(got, sub.Name())
	}
	assert.Subset(t, got, []string{"scan", "dump", "query"})
}

func TestScanDumpQuery(t *testing.T) {
	c := newCLI(t)

	out, err := c.run(t, "scan", "--sync")
	require.NoError(t, err)
	assert.Contains(t, out, "assets:        2")
	assert.FileExists(t, c.snapshot)

	out, err = c.run(t, "dump", "--sections", "ObjectPath")
	require.NoError(t, err)
	assert.Contains(t, out, "\t/Game/Materials/Stone.Stone\n\t/Game/Props/Rock.Rock\n")

	out, err = c.run(t, "query", "--class", "StaticMesh", "--tag", "Color=Grey")
	require.NoError(t, err)
	var res queryResult
	require.NoError(t, sonic.UnmarshalString(out, &res))
	require.Len(t, res.Assets, 1)
	assert.Equal(t, "/Game/Props/Rock.Rock", res.Assets[0].ObjectPath)
	assert.Equal(t, map[string]string{"Color": "Grey"}, res.Assets[0].Tags)

	out, err = c.run(t, "query", "--refs", "/Game/Materials/Stone", "--flags", "hard")
	require.NoError(t, err)
	res = queryResult{}
	require.NoError(t, sonic.UnmarshalString(out, &res))
	assert.Equal(t, []string{"/Game/Props/Rock"}, res.Referencers)
}

func TestScanAsyncWithMetrics(t *testing.T) {
	c := newCLI(t)
	metrics := filepath.Join(t.TempDir(), "scan.prom")

	_, err := c.run(t, "scan", "--metrics-out", metrics, "--cache-mode", "none")
	require.NoError(t, err)
	assert.FileExists(t, metrics)
}

func TestInteractiveScanCompletes(t *testing.T) {
	c := newCLI(t)
	t.Setenv("ASSET_INTERACTIVE", "true")

	plugin := pkgfile.NewPackage()
	plugin.AddAsset("Widget", "Blueprint", nil)
	plugin.CustomVersions = []pkgfile.CustomVersion{{Key: uuid.New(), Version: 1}}
	require.NoError(t, pkgfile.WriteFile(filepath.Join(c.root, "Plugins", "Widget.asset"), plugin))

	out, err := c.run(t, "scan", "--timeout", "10s", "--cache-mode", "none")
	require.NoError(t, err)
	assert.Contains(t, out, "assets:        2")
	assert.Contains(t, out, "failed 1")
}

func TestCommandErrors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run(t, "dump")
	assert.Error(t, err, "no snapshot yet")

	_, err = c.run(t, "scan", "--cache-mode", "sometimes")
	assert.Error(t, err)

	_, err = c.run(t, "scan", "--sync")
	require.NoError(t, err)

	_, err = c.run(t, "dump", "--sections", "Bogus")
	assert.Error(t, err)

	_, err = c.run(t, "query", "--deps", "/Game/Unknown")
	assert.Error(t, err)
}
