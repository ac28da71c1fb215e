// SPDX-License-Identifier: MPL-2.0

// Command venvbs creates a Python virtual environment by downloading and
// running virtualenv from the package index.
package main

import cmd "github.com/pombredanne/venvbs/cmd/venvbs"

func main() {
	cmd.Execute()
}
