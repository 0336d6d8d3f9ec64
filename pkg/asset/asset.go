package asset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klothoplatform/inference-stack/pkg/closenicely"
)

type (
	// Asset is a directory of function code, identified by the hash of its selected contents.
	Asset struct {
		SourceDir string
		// Files are the selected files relative to SourceDir, slash separated and sorted.
		Files []string
		Hash  string
	}

	PathMatcher struct {
		Include []string
		Exclude []string
	}
)

// Matches reports whether the slash separated relative path `p` is included and not excluded.
func (m PathMatcher) Matches(p string) (bool, error) {
	//! use `doublestar` over stdlib `path.Match` because the std version doesn't support '**' (globstar)
	toInclude := false
	for _, pattern := range m.Include {
		match, err := doublestar.Match(pattern, p)
		if err != nil {
			return false, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		if match {
			toInclude = true
			break
		}
	}
	if !toInclude {
		return false, nil
	}
	for _, pattern := range m.Exclude {
		match, err := doublestar.Match(pattern, p)
		if err != nil {
			return false, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		if match {
			return false, nil
		}
	}
	return true, nil
}

// Load selects the files of `dir` matching `m` and computes the asset hash.
func Load(dir string, m PathMatcher) (*Asset, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("could not read asset directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset path %s is not a directory", dir)
	}

	a := &Asset{SourceDir: dir}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		ok, err := m.Matches(rel)
		if err != nil {
			return err
		}
		if ok {
			a.Files = append(a.Files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not walk asset directory %s: %w", dir, err)
	}
	if len(a.Files) == 0 {
		return nil, fmt.Errorf("asset directory %s has no files matching %v", dir, m.Include)
	}
	sort.Strings(a.Files)

	a.Hash, err = a.computeHash()
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Asset) computeHash() (string, error) {
	h := sha256.New()
	for _, rel := range a.Files {
		fmt.Fprintf(h, "%s\x00", rel)
		if err := a.copyFile(rel, h); err != nil {
			return "", err
		}
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (a *Asset) copyFile(rel string, w io.Writer) error {
	f, err := os.Open(filepath.Join(a.SourceDir, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	defer closenicely.OrDebug(f)
	_, err = io.Copy(w, f)
	return err
}

// ArchiveName is the file name the asset is staged under.
func (a *Asset) ArchiveName() string {
	return fmt.Sprintf("asset.%s.zip", a.Hash)
}

func (a *Asset) Contains(rel string) bool {
	i := sort.SearchStrings(a.Files, rel)
	return i < len(a.Files) && a.Files[i] == rel
}
