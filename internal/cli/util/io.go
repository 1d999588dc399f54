/*
Copyright 2024 GramLabs, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package util holds the small amount of command-line plumbing shared by
// every hpoctl subcommand.
package util

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// IOStreams bundles the standard streams a command writes to, so tests can
// swap in buffers instead of the process's real stdio.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// DefaultIOStreams binds IOStreams to the process's actual stdio.
func DefaultIOStreams() IOStreams {
	return IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr}
}

// CheckErr reports err on cmd's error stream and exits the process. It is a
// no-op when err is nil.
func CheckErr(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	cmd.PrintErrln("Error:", err.Error())
	os.Exit(1)
}
