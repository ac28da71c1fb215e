// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
)

// FindEntryScript looks for name inside the immediate children of root whose
// names start with prefix, e.g. the versioned "virtualenv-20.0.0" directory of
// an unpacked sdist. Children are visited in lexical order and the first one
// holding a regular file called name wins.
func FindEntryScript(root, prefix, name string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", Lookupf("entry point not found").WithCause(err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		candidate := filepath.Join(root, entry.Name(), name)
		if isRegularFile(candidate) {
			return candidate, nil
		}
	}

	return "", Lookupf("entry point not found")
}

// FindExecutable returns dir/bin/name if it is a regular file the current user
// may execute.
func FindExecutable(dir, name string) (string, error) {
	p := filepath.Join(dir, "bin", name)
	if isRegularFile(p) && isExecutable(p) {
		return p, nil
	}
	return "", Lookupf("%s not found, or not executable", name)
}

// isRegularFile follows symlinks, like the checks an interpreter would make
// before opening the path.
func isRegularFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
