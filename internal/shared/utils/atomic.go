package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GriffinCanCode/assetregistry/internal/shared/id"
)

// WriteFileAtomic streams content into a temporary sibling of path and
// renames it over path once write succeeds. Readers never see a torn file.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	RemoveStaleTemps(path, StaleTempAge)

	tmp := path + "." + id.NewTempSuffix()
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriterSize(f, 256*1024)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", tmp, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("move %s over %s: %w", tmp, path, err)
	}
	return nil
}

// StaleTempAge is how old a leftover temporary file must be before
// WriteFileAtomic removes it.
const StaleTempAge = time.Hour

// RemoveStaleTemps deletes temporary siblings of path left by writers that
// died more than olderThan ago. Files whose suffix is not a ULID are kept.
func RemoveStaleTemps(path string, olderThan time.Duration) int {
	matches, err := filepath.Glob(path + "." + id.TempPrefix + "_*")
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, m := range matches {
		suffix := strings.TrimPrefix(m, path+"."+id.TempPrefix+"_")
		if !id.IsValid(suffix) {
			continue
		}
		created, err := id.Timestamp(suffix)
		if err != nil || created.After(cutoff) {
			continue
		}
		if os.Remove(m) == nil {
			removed++
		}
	}
	return removed
}
