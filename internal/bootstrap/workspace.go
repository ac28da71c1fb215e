// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"fmt"
	"os"
)

// scratchPattern is the os.MkdirTemp pattern for scratch directories.
const scratchPattern = "venvbs-*"

// removeAll deletes a scratch directory; tests replace it to simulate a
// failed cleanup.
var removeAll = os.RemoveAll

// WithScratchDir creates a fresh empty directory under parent (os.TempDir when
// parent is empty), passes it to fn, and removes it with its whole subtree
// once fn returns, whether fn succeeded or not.
//
// The error from fn is returned unchanged. A removal failure is only returned
// when fn itself succeeded; otherwise it is passed to onCleanupErr (if set) so
// it never masks the stage failure.
func WithScratchDir(parent string, fn func(dir string) error, onCleanupErr func(dir string, err error)) (err error) {
	dir, err := os.MkdirTemp(parent, scratchPattern)
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}

	defer func() {
		rmErr := removeAll(dir)
		if rmErr == nil {
			return
		}
		if err == nil {
			err = fmt.Errorf("removing scratch directory %s: %w", dir, rmErr)
			return
		}
		if onCleanupErr != nil {
			onCleanupErr(dir, rmErr)
		}
	}()

	return fn(dir)
}

