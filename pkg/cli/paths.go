package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/funvibe/dcolon/internal/config"
)

// isManifestFile checks if a file has a recognized manifest extension.
func isManifestFile(path string) bool {
	if filepath.Base(path) == config.ConfigFileName {
		return false
	}
	for _, ext := range config.ManifestFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// expandManifests turns command arguments into a sorted, de-duplicated
// list of manifest files. Explicit files are taken as given; directories
// contribute their manifests; a trailing "/..." walks recursively.
func expandManifests(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		clean := filepath.Clean(path)
		if !seen[clean] {
			seen[clean] = true
			files = append(files, clean)
		}
	}

	for _, arg := range args {
		if dir, ok := strings.CutSuffix(arg, "..."); ok {
			dir = strings.TrimRight(dir, "/\\")
			if dir == "" {
				dir = "."
			}
			found, err := walkManifests(dir)
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && isManifestFile(entry.Name()) {
				add(filepath.Join(arg, entry.Name()))
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

func walkManifests(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isManifestFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}
