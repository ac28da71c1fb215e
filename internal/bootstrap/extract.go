// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// maxExtractedBytes bounds the total size of regular files written by Extract
// (1 GB), which keeps a small compressed archive from filling the disk.
const maxExtractedBytes = 1 << 30

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	zstdMagic  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	bzip2Magic = []byte("BZh")

	// errIllegalPath is returned for entries that would land outside the
	// destination directory.
	errIllegalPath = errors.New("illegal path")
)

// Extract unpacks the tar stream r into dir and returns the number of entries
// written. The stream may be gzip, zstd or bzip2 compressed; the compression is
// detected from its leading bytes. Directories, regular files, symlinks and hard
// links are recreated; other entry types are skipped. Entries that would
// resolve outside dir, including through links created by earlier entries,
// are rejected.
func Extract(r io.Reader, dir string) (count int, err error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return 0, fmt.Errorf("opening destination: %w", err)
	}
	defer func() {
		if closeErr := root.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing destination: %w", closeErr)
		}
	}()

	src, closeSrc, err := decompress(r)
	if err != nil {
		return 0, err
	}
	defer closeSrc()

	var (
		tr      = tar.NewReader(src)
		written int64
	)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return count, fmt.Errorf("reading tar entry: %w", nextErr)
		}

		target, pathErr := entryPath(hdr.Name)
		if pathErr != nil {
			return count, pathErr
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := root.MkdirAll(target, dirPerm(hdr)); err != nil {
				return count, fmt.Errorf("creating directory %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			n, err := writeFile(root, target, tr, hdr, maxExtractedBytes-written)
			if err != nil {
				return count, err
			}
			written += n
		case tar.TypeSymlink:
			if err := writeSymlink(root, target, hdr); err != nil {
				return count, err
			}
		case tar.TypeLink:
			if err := writeHardLink(root, target, hdr); err != nil {
				return count, err
			}
		default:
			continue
		}
		count++
	}

	return count, nil
}

// decompress wraps r in the decoder its magic bytes call for. The returned
// func releases decoder resources.
func decompress(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("reading archive header: %w", err)
	}
	if len(head) == 0 {
		return nil, nil, errors.New("empty archive")
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, gzErr := gzip.NewReader(br)
		if gzErr != nil {
			return nil, nil, fmt.Errorf("creating gzip reader: %w", gzErr)
		}
		// Read-only gzip stream; close errors are not actionable.
		return gz, func() { _ = gz.Close() }, nil
	case bytes.HasPrefix(head, zstdMagic):
		dec, zErr := zstd.NewReader(br)
		if zErr != nil {
			return nil, nil, fmt.Errorf("creating zstd reader: %w", zErr)
		}
		return dec, dec.Close, nil
	case bytes.HasPrefix(head, bzip2Magic):
		return bzip2.NewReader(br), func() {}, nil
	default:
		return br, func() {}, nil
	}
}

// entryPath maps an archive entry name to a clean path relative to the
// destination root. Names that are empty, absolute or climb out of the root
// are rejected.
func entryPath(name string) (string, error) {
	p := filepath.FromSlash(name)
	if strings.HasPrefix(name, "/") || !filepath.IsLocal(p) {
		return "", fmt.Errorf("%w: %q", errIllegalPath, name)
	}
	return filepath.Clean(p), nil
}

// dirPerm keeps the archive's directory bits but always lets the owner
// traverse and write, so later entries and cleanup can proceed.
func dirPerm(hdr *tar.Header) os.FileMode {
	return hdr.FileInfo().Mode().Perm() | 0o700
}

// writeFile copies one regular file entry, allowing at most budget bytes.
func writeFile(root *os.Root, target string, r io.Reader, hdr *tar.Header, budget int64) (_ int64, err error) {
	if hdr.Size > budget {
		return 0, fmt.Errorf("extracting %s: archive expands beyond %d bytes", hdr.Name, int64(maxExtractedBytes))
	}
	if err := root.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("creating parent of %s: %w", hdr.Name, err)
	}

	perm := hdr.FileInfo().Mode().Perm()
	f, err := root.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm|0o200)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", hdr.Name, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", hdr.Name, closeErr)
		}
	}()

	n, err := io.Copy(f, io.LimitReader(r, hdr.Size))
	if err != nil {
		return n, fmt.Errorf("writing %s: %w", hdr.Name, err)
	}

	// OpenFile's mode is filtered by the umask; restore the archived bits.
	if err := f.Chmod(perm); err != nil {
		return n, fmt.Errorf("setting mode of %s: %w", hdr.Name, err)
	}
	return n, nil
}

// writeSymlink recreates a symlink whose target stays inside root. The link
// text is checked lexically here; root refuses to follow it out later.
func writeSymlink(root *os.Root, target string, hdr *tar.Header) error {
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(hdr.Linkname))
	if filepath.IsAbs(hdr.Linkname) || strings.HasPrefix(hdr.Linkname, "/") || !filepath.IsLocal(resolved) {
		return fmt.Errorf("%w: %q links to %q", errIllegalPath, hdr.Name, hdr.Linkname)
	}

	if err := replaceable(root, target, hdr); err != nil {
		return err
	}
	if err := root.Symlink(hdr.Linkname, target); err != nil {
		return fmt.Errorf("creating symlink %s: %w", hdr.Name, err)
	}
	return nil
}

// writeHardLink recreates a hard link to an earlier entry of the archive.
func writeHardLink(root *os.Root, target string, hdr *tar.Header) error {
	source, err := entryPath(hdr.Linkname)
	if err != nil {
		return err
	}

	if err := replaceable(root, target, hdr); err != nil {
		return err
	}
	if err := root.Link(source, target); err != nil {
		return fmt.Errorf("creating link %s: %w", hdr.Name, err)
	}
	return nil
}

// replaceable creates the parent of target and clears whatever an earlier
// entry left at target itself.
func replaceable(root *os.Root, target string, hdr *tar.Header) error {
	if err := root.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", hdr.Name, err)
	}
	if err := root.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replacing %s: %w", hdr.Name, err)
	}
	return nil
}
