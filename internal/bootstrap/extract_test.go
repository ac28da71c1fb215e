// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"archive/tar"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// sdistEntries mimics the layout of a virtualenv source distribution.
func sdistEntries() []tarEntry {
	return []tarEntry{
		{Name: "virtualenv-16.7.9/", Typeflag: tar.TypeDir},
		{Name: "virtualenv-16.7.9/virtualenv.py", Body: "#!/usr/bin/env python\nprint('hi')\n", Mode: 0o755},
		{Name: "virtualenv-16.7.9/setup.py", Body: "from setuptools import setup\n"},
		// No explicit directory entry: parents must be created implicitly.
		{Name: "virtualenv-16.7.9/virtualenv_support/pip-19.3.1-py2.py3-none-any.whl", Body: "\x50\x4b\x03\x04binary\x00data"},
	}
}

// snapshot walks dir and returns relative path -> file content ("<dir>" for
// directories, "-> target" for symlinks).
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()

	got := make(map[string]string)
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		switch {
		case d.Type()&os.ModeSymlink != 0:
			target, linkErr := os.Readlink(p)
			if linkErr != nil {
				return linkErr
			}
			got[rel] = "-> " + filepath.ToSlash(target)
		case d.IsDir():
			got[rel] = "<dir>"
		default:
			data, readErr := os.ReadFile(p)
			if readErr != nil {
				return readErr
			}
			got[rel] = string(data)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s: %v", dir, err)
	}
	return got
}

func TestExtract_ReproducesTreeForEveryCompression(t *testing.T) {
	t.Parallel()

	want := map[string]string{
		"virtualenv-16.7.9":                    "<dir>",
		"virtualenv-16.7.9/virtualenv.py":      "#!/usr/bin/env python\nprint('hi')\n",
		"virtualenv-16.7.9/setup.py":           "from setuptools import setup\n",
		"virtualenv-16.7.9/virtualenv_support": "<dir>",
		"virtualenv-16.7.9/virtualenv_support/pip-19.3.1-py2.py3-none-any.whl": "\x50\x4b\x03\x04binary\x00data",
	}

	for _, compression := range []string{"gzip", "zstd", "none"} {
		t.Run(compression, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			n, err := Extract(bytes.NewReader(buildTar(t, compression, sdistEntries()...)), dir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n != len(sdistEntries()) {
				t.Errorf("extracted %d entries, want %d", n, len(sdistEntries()))
			}

			if diff := cmp.Diff(want, snapshot(t, dir)); diff != "" {
				t.Errorf("extracted tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtract_PreservesFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not preserved on Windows")
	}
	t.Parallel()

	dir := t.TempDir()
	archive := buildTar(t, "gzip",
		tarEntry{Name: "proj-1.0/run.py", Body: "x", Mode: 0o755},
		tarEntry{Name: "proj-1.0/data.txt", Body: "y", Mode: 0o600},
	)
	if _, err := Extract(bytes.NewReader(archive), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, want := range map[string]os.FileMode{"run.py": 0o755, "data.txt": 0o600} {
		info, err := os.Stat(filepath.Join(dir, "proj-1.0", name))
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if got := info.Mode().Perm(); got != want {
			t.Errorf("%s mode = %o, want %o", name, got, want)
		}
	}
}

func TestExtract_Links(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}
	t.Parallel()

	dir := t.TempDir()
	archive := buildTar(t, "gzip",
		tarEntry{Name: "proj-1.0/real.txt", Body: "content"},
		tarEntry{Name: "proj-1.0/alias.txt", Typeflag: tar.TypeSymlink, Linkname: "real.txt"},
		tarEntry{Name: "proj-1.0/hard.txt", Typeflag: tar.TypeLink, Linkname: "proj-1.0/real.txt"},
	)
	if _, err := Extract(bytes.NewReader(archive), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"proj-1.0":           "<dir>",
		"proj-1.0/real.txt":  "content",
		"proj-1.0/alias.txt": "-> real.txt",
		"proj-1.0/hard.txt":  "content",
	}
	if diff := cmp.Diff(want, snapshot(t, dir)); diff != "" {
		t.Errorf("extracted tree mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_RejectsEscapingEntries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries []tarEntry
	}{
		{"parent traversal", []tarEntry{{Name: "../escaped.txt", Body: "x"}}},
		{"nested traversal", []tarEntry{{Name: "proj-1.0/../../escaped.txt", Body: "x"}}},
		{"absolute path", []tarEntry{{Name: "/tmp/escaped.txt", Body: "x"}}},
		{"absolute symlink", []tarEntry{{Name: "proj-1.0/link", Typeflag: tar.TypeSymlink, Linkname: "/etc/passwd"}}},
		{"escaping symlink", []tarEntry{{Name: "proj-1.0/link", Typeflag: tar.TypeSymlink, Linkname: "../../escaped.txt"}}},
		{"escaping hard link", []tarEntry{{Name: "proj-1.0/link", Typeflag: tar.TypeLink, Linkname: "../escaped.txt"}}},
		// Each link stays inside on its own; together a/b/x points at the
		// destination's parent.
		{"symlink chain", []tarEntry{
			{Name: "a/", Typeflag: tar.TypeDir},
			{Name: "a/b", Typeflag: tar.TypeSymlink, Linkname: ".."},
			{Name: "a/b/x", Typeflag: tar.TypeSymlink, Linkname: ".."},
			{Name: "a/b/x/escaped.txt", Body: "x"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			parent := t.TempDir()
			dir := filepath.Join(parent, "dest")
			if err := os.Mkdir(dir, 0o755); err != nil {
				t.Fatalf("creating dest: %v", err)
			}

			_, err := Extract(bytes.NewReader(buildTar(t, "gzip", tt.entries...)), dir)
			if err == nil {
				t.Fatal("expected an error for an entry escaping the destination")
			}
			if _, statErr := os.Lstat(filepath.Join(parent, "escaped.txt")); statErr == nil {
				t.Error("entry was written outside the destination")
			}
		})
	}
}

func TestExtract_SymlinkedDirectoryInsideDestination(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}
	t.Parallel()

	dir := t.TempDir()
	archive := buildTar(t, "gzip",
		tarEntry{Name: "proj-1.0/src/", Typeflag: tar.TypeDir},
		tarEntry{Name: "proj-1.0/lib", Typeflag: tar.TypeSymlink, Linkname: "src"},
		tarEntry{Name: "proj-1.0/lib/mod.py", Body: "pass\n"},
	)
	if _, err := Extract(bytes.NewReader(archive), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "proj-1.0", "src", "mod.py"))
	if err != nil {
		t.Fatalf("reading file written through the link: %v", err)
	}
	if string(data) != "pass\n" {
		t.Errorf("content = %q", data)
	}
}

func TestExtract_MalformedInput(t *testing.T) {
	t.Parallel()

	valid := buildTar(t, "gzip", sdistEntries()...)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not an archive", bytes.Repeat([]byte("this is not a tarball "), 40)},
		{"truncated gzip", valid[:len(valid)/2]},
		{"gzip magic only", []byte{0x1f, 0x8b}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Extract(bytes.NewReader(tt.data), t.TempDir()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestEntryPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		wantErr bool
		want    string
	}{
		{"proj-1.0/setup.py", false, filepath.Join("proj-1.0", "setup.py")},
		{"./proj-1.0/", false, "proj-1.0"},
		{"proj-1.0/../other", false, "other"},
		{"..", true, ""},
		{"../x", true, ""},
		{"", true, ""},
		{"/abs", true, ""},
		{"..foo/bar", false, filepath.Join("..foo", "bar")},
	}

	for _, tt := range tests {
		got, err := entryPath(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("entryPath(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !errors.Is(err, errIllegalPath) {
			t.Errorf("entryPath(%q) error = %v, want errIllegalPath", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("entryPath(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
