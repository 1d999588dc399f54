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

// Package log wraps go.uber.org/zap the way the rest of this codebase's
// lineage wraps its logger: a single package-level sugared logger that
// every other internal package pulls from, swappable by the host program
// via SetLogger.
package log

import "go.uber.org/zap"

var base = mustBuild()

func mustBuild() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		// zap.NewProduction only fails on a broken encoder config, which
		// never happens with the default config; fall back rather than
		// panic on a logging package import.
		l = zap.NewNop()
	}
	return l.Sugar()
}

// SetLogger replaces the package-level logger, letting a host program (or
// a test) install its own zap configuration.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		base = l
	}
}

// Named returns a child logger tagged with component, e.g. log.Named("store").
func Named(component string) *zap.SugaredLogger {
	return base.Named(component)
}
