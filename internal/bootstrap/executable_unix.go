// SPDX-License-Identifier: MPL-2.0

//go:build unix

package bootstrap

import "golang.org/x/sys/unix"

// isExecutable asks the kernel whether the real user may execute p.
func isExecutable(p string) bool {
	return unix.Access(p, unix.X_OK) == nil
}
