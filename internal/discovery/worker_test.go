package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/assetregistry/internal/shared/paths"
)

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
}

func contentTree(t *testing.T) paths.Mount {
	t.Helper()
	root := t.TempDir()
	touch(t, root,
		"Maps/Level.map",
		"Meshes/Rock.asset",
		"Meshes/Rock.txt",
		"Meshes/Trees/Oak.ASSET",
		"Dev/Scratch.asset",
		"Bad Dir/Hidden.asset",
		"Meshes/Bad Name.asset",
		"Temp/Cache/Junk.asset",
	)
	return paths.Mount{LocalPath: paths.NormalizeLocal(root), PackageRoot: "/Game"}
}

func drain(t *testing.T, w *Worker) Results {
	t.Helper()
	var all Results
	deadline := time.Now().Add(10 * time.Second)
	for {
		res, scanning := w.GetAndTrimResults()
		all.Paths = append(all.Paths, res.Paths...)
		all.Files = append(all.Files, res.Files...)
		if !scanning {
			return all
		}
		require.True(t, time.Now().Before(deadline), "discovery did not finish")
		time.Sleep(5 * time.Millisecond)
	}
}

func packageNames(files []FileResult) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.PackageName)
	}
	sort.Strings(out)
	return out
}

var expectedPackages = []string{"/Game/Maps/Level", "/Game/Meshes/Rock", "/Game/Meshes/Trees/Oak"}

func TestBackgroundDiscovery(t *testing.T) {
	m := contentTree(t)
	w := New(Options{IdlePoll: 5 * time.Millisecond}, nil, nil)
	w.Start([]paths.Mount{m}, []string{"/Game/Dev", "/Game/**/Temp"}, false)
	defer w.EnsureCompletion()

	res := drain(t, w)
	assert.Equal(t, expectedPackages, packageNames(res.Files))
	assert.Contains(t, res.Paths, "/Game/Meshes/Trees")
	assert.NotContains(t, res.Paths, "/Game/Dev")

	for _, f := range res.Files {
		assert.False(t, f.ModTime.IsZero())
		assert.True(t, strings.HasPrefix(f.LocalPath, m.LocalPath))
	}
}

func TestSynchronousDiscovery(t *testing.T) {
	m := contentTree(t)
	w := New(Options{}, nil, nil)
	w.Start([]paths.Mount{m}, []string{"/Game/Dev", "/Game/**/Temp"}, true)

	res, scanning := w.GetAndTrimResults()
	assert.False(t, scanning)
	assert.Equal(t, expectedPackages, packageNames(res.Files))
	assert.Contains(t, res.Paths, "/Game")
	w.EnsureCompletion()
}

func TestDenyListByLocalPath(t *testing.T) {
	m := contentTree(t)
	w := New(Options{}, nil, nil)
	w.Start([]paths.Mount{m}, []string{m.LocalPath + "/Meshes"}, true)

	res, _ := w.GetAndTrimResults()
	assert.Equal(t, []string{"/Game/Dev/Scratch", "/Game/Maps/Level", "/Game/Temp/Cache/Junk"}, packageNames(res.Files))
}

func TestPrioritizePath(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"Alpha/A1.asset",
		"Alpha/Deep/A2.asset",
		"Priority/P1.asset",
		"Priority/Sub/P2.asset",
		"Zulu/Z1.asset",
	)
	m := paths.Mount{LocalPath: paths.NormalizeLocal(root), PackageRoot: "/Game"}

	w := New(Options{}, nil, nil)
	w.enqueueRoots([]paths.Mount{m}, nil, false)

	// Enumerate the root so Alpha, Priority and Zulu are queued
	require.True(t, w.tick())
	require.Equal(t, 3, w.queue.Len())

	w.PrioritizePath("/Game/Priority")
	for w.tick() {
	}

	res, scanning := w.GetAndTrimResults()
	assert.False(t, scanning)
	require.Len(t, res.Files, 5)

	var order []string
	for _, f := range res.Files {
		order = append(order, f.PackageName)
	}
	assert.ElementsMatch(t, []string{"/Game/Priority/P1", "/Game/Priority/Sub/P2"}, order[:2], "order: %v", order)
}

func TestPrioritizeLocalPath(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "A/a.asset", "B/b.asset", "C/c.asset")
	m := paths.Mount{LocalPath: paths.NormalizeLocal(root), PackageRoot: "/Game"}

	w := New(Options{}, nil, nil)
	w.enqueueRoots([]paths.Mount{m}, nil, false)
	require.True(t, w.tick())

	w.PrioritizePath(m.LocalPath + "/C")
	require.True(t, w.tick())
	assert.Equal(t, []string{"/Game", "/Game/C"}, w.localPaths)
}

func TestAddPathWakesWorker(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "First/One.asset")
	m := paths.Mount{LocalPath: paths.NormalizeLocal(root), PackageRoot: "/Game"}

	w := New(Options{IdlePoll: time.Hour}, nil, nil)
	w.Start([]paths.Mount{m}, nil, false)
	defer w.EnsureCompletion()
	first := drain(t, w)
	assert.Equal(t, []string{"/Game/First/One"}, packageNames(first.Files))

	touch(t, root, "Later/Two.asset")
	require.True(t, w.AddPath(filepath.Join(root, "Later")))

	var got []FileResult
	require.Eventually(t, func() bool {
		res, _ := w.GetAndTrimResults()
		got = append(got, res.Files...)
		return len(got) == 1
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, "/Game/Later/Two", got[0].PackageName)

	assert.False(t, w.AddPath(t.TempDir()))
}

func TestMissingRootAndStop(t *testing.T) {
	w := New(Options{IdlePoll: 5 * time.Millisecond}, nil, nil)
	w.Start([]paths.Mount{{LocalPath: "/definitely/not/here", PackageRoot: "/Game"}}, nil, false)

	res := drain(t, w)
	assert.Empty(t, res.Files)

	w.Stop()
	w.Stop()
	done := make(chan struct{})
	go func() {
		w.EnsureCompletion()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("EnsureCompletion did not return")
	}
	assert.True(t, w.IsIdle())
}

func TestNestedMountScannedOnce(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "Game/G.asset", "Game/Plugins/Foo/F.asset")
	game := paths.Mount{LocalPath: paths.NormalizeLocal(filepath.Join(root, "Game")), PackageRoot: "/Game"}
	foo := paths.Mount{LocalPath: paths.NormalizeLocal(filepath.Join(root, "Game", "Plugins", "Foo")), PackageRoot: "/Foo"}

	for _, synchronous := range []bool{false, true} {
		w := New(Options{IdlePoll: 5 * time.Millisecond}, nil, nil)
		w.Start([]paths.Mount{game, foo}, nil, synchronous)
		res := drain(t, w)
		w.EnsureCompletion()
		assert.Equal(t, []string{"/Foo/F", "/Game/G"}, packageNames(res.Files), "synchronous=%v", synchronous)
	}
}

func TestQueuePartitionFront(t *testing.T) {
	var q dirQueue
	for _, p := range []string{"a", "p1", "b", "p2", "c"} {
		q.PushBack(dirItem{packagePath: p})
	}
	n := q.PartitionFront(4, func(d dirItem) bool { return strings.HasPrefix(d.packagePath, "p") })
	assert.Equal(t, 2, n)

	var got []string
	for {
		d, ok := q.PopFront()
		if !ok {
			break
		}
		got = append(got, d.packagePath)
	}
	assert.Equal(t, []string{"p1", "p2", "a", "b", "c"}, got)
}

func TestEnsureCompletionDropsQueuedDirectories(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "A/a.asset", "B/b.asset")
	m := paths.Mount{LocalPath: paths.NormalizeLocal(root), PackageRoot: "/Game"}

	w := New(Options{}, nil, nil)
	w.enqueueRoots([]paths.Mount{m}, nil, false)
	require.True(t, w.tick())
	require.Equal(t, 2, w.queue.Len())

	w.EnsureCompletion()
	assert.Zero(t, w.queue.Len())
	assert.True(t, w.IsIdle())
}
