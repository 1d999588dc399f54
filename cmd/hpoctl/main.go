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
package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/gramlabs/optimize-study/internal/cli"
	"github.com/gramlabs/optimize-study/internal/log"
)

func main() {
	devLogger, err := zap.NewDevelopment()
	if err == nil {
		log.SetLogger(devLogger.Sugar())
	}

	command := cli.NewDefaultCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
