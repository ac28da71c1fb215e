// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type (
	// tarEntry describes one member of a test archive.
	tarEntry struct {
		Name     string
		Body     string
		Mode     int64
		Typeflag byte
		Linkname string
	}

	// recordingReporter captures reporter calls for assertions.
	recordingReporter struct {
		progress []string
		warnings []string
		failures []error
	}

	// fakeLocator returns a fixed URL or error.
	fakeLocator struct {
		url   string
		err   error
		calls []string
	}

	// fakeFetcher extracts a fixed archive, or fails.
	fakeFetcher struct {
		archive []byte
		err     error
		dirs    []string
	}

	// fakeInvoker records its arguments and returns a fixed error.
	fakeInvoker struct {
		err   error
		calls []invocation
		// onRun runs while the scratch directory still exists.
		onRun func(script string)
	}

	invocation struct {
		Interpreter string
		Script      string
		Args        []string
	}
)

func (r *recordingReporter) Progress(msg string, _ ...any) {
	r.progress = append(r.progress, msg)
}

func (r *recordingReporter) Warn(msg string, _ ...any) {
	r.warnings = append(r.warnings, msg)
}

func (r *recordingReporter) Failure(err error) {
	r.failures = append(r.failures, err)
}

func (f *fakeLocator) Resolve(_ context.Context, pkg string) (string, error) {
	f.calls = append(f.calls, pkg)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func (f *fakeFetcher) Fetch(_ context.Context, dir, _ string) error {
	f.dirs = append(f.dirs, dir)
	if f.err != nil {
		return f.err
	}
	if _, err := Extract(bytes.NewReader(f.archive), dir); err != nil {
		return Fetchf("could not untar: %s", err).WithCause(err)
	}
	return nil
}

func (f *fakeInvoker) Run(_ context.Context, interpreter, script string, args []string) error {
	f.calls = append(f.calls, invocation{Interpreter: interpreter, Script: script, Args: args})
	if f.onRun != nil {
		f.onRun(script)
	}
	return f.err
}

// buildTar writes entries into a tar stream, compressed with "gzip", "zstd"
// or left plain for any other value.
func buildTar(t *testing.T, compression string, entries ...tarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	var sink io.WriteCloser
	switch compression {
	case "gzip":
		sink = gzip.NewWriter(&buf)
	case "zstd":
		enc, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatalf("creating zstd writer: %v", err)
		}
		sink = enc
	default:
		sink = nopWriteCloser{&buf}
	}

	tw := tar.NewWriter(sink)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.Name,
			Mode:     e.Mode,
			Typeflag: e.Typeflag,
			Linkname: e.Linkname,
		}
		if hdr.Typeflag == 0 {
			hdr.Typeflag = tar.TypeReg
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0o644
			if hdr.Typeflag == tar.TypeDir {
				hdr.Mode = 0o755
			}
		}
		if hdr.Typeflag == tar.TypeReg {
			hdr.Size = int64(len(e.Body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header for %s: %v", e.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				t.Fatalf("writing tar body for %s: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("closing compressor: %v", err)
	}
	return buf.Bytes()
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// projectJSON encodes an index response listing files as (packagetype, url) pairs.
func projectJSON(t *testing.T, files ...indexFile) []byte {
	t.Helper()

	data, err := json.Marshal(indexProject{URLs: files})
	if err != nil {
		t.Fatalf("encoding index response: %v", err)
	}
	return data
}

// newIndexServer serves /pypi/<pkg>/json from projects and raw files by path.
func newIndexServer(t *testing.T, projects map[string][]byte, files map[string][]byte) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if data, ok := files[r.URL.Path]; ok {
			w.Header().Set("Content-Type", "application/octet-stream")
			if _, err := w.Write(data); err != nil {
				t.Errorf("writing file response: %v", err)
			}
			return
		}

		if strings.HasPrefix(r.URL.Path, "/pypi/") && strings.HasSuffix(r.URL.Path, "/json") {
			key := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/pypi/"), "/json")
			if data, ok := projects[key]; ok {
				w.Header().Set("Content-Type", "application/json")
				if _, err := w.Write(data); err != nil {
					t.Errorf("writing index response: %v", err)
				}
				return
			}
		}

		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"message":"Not Found","path":%q}`, r.URL.Path)
	}))
	t.Cleanup(srv.Close)

	return srv
}
