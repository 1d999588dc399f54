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

// Package cli assembles hpoctl's cobra command tree. hpoctl is a
// demonstration harness for the study execution engine, not a client for an
// external service: it exists so the sampler, pruner and executor packages
// can be exercised end to end from a terminal.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/gramlabs/optimize-study/internal/cli/run"
	cmdutil "github.com/gramlabs/optimize-study/internal/cli/util"
)

// NewDefaultCommand builds the root command bound to the process's real
// stdio.
func NewDefaultCommand() *cobra.Command {
	return NewCommand(cmdutil.DefaultIOStreams())
}

// NewCommand builds the root command bound to streams, letting tests supply
// buffers instead of the process's real stdio.
func NewCommand(streams cmdutil.IOStreams) *cobra.Command {
	root := &cobra.Command{
		Use:          "hpoctl",
		Short:        "Drive a hyperparameter optimization study from the command line",
		SilenceUsage: true,
	}
	root.SetOut(streams.Out)
	root.SetErr(streams.ErrOut)
	root.SetIn(streams.In)

	root.AddCommand(run.NewCommand(streams))

	return root
}
