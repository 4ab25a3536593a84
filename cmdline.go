// Copyright 2015 Google Inc. All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ccaction

import (
	"fmt"
	"strings"
)

// fdoStampMacro is the preprocessor macro the FDO build stamp is
// published through, so profile-guided builds stay reproducible.
const fdoStampMacro = "BUILD_FDO_TYPE"

func hasExt(name string, exts ...string) bool {
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}

func isCSourceName(name string) bool {
	return hasExt(name, ".c")
}

func isCxxSourceName(name string) bool {
	return hasExt(name, ".cc", ".cpp", ".cxx", ".C", ".c++")
}

func isCxxHeaderName(name string) bool {
	return hasExt(name, ".h", ".hh", ".hpp", ".hxx", ".inc")
}

func isAssemblerOutputName(name string) bool {
	return hasExt(name, ".s", ".asm")
}

func isPreprocessedOutputName(name string) bool {
	return hasExt(name, ".i", ".ii")
}

// Argv assembles the compiler command line. It is a pure function of
// the action's frozen fields: no I/O, no global state, and the
// ordering below is observable through the action key, so it must
// not change.
func (a *CompileAction) Argv() []string {
	var argv []string

	filtered := func(opts []string) {
		for _, opt := range opts {
			if a.coptsFilter == nil || a.coptsFilter(opt) {
				argv = append(argv, opt)
			}
		}
	}

	srcName := a.source.ExecPath().Base()
	argv = append(argv, a.config.ToolPath(ToolGCC))

	if isCxxHeaderName(srcName) {
		// The constructor rejects header sources without one of
		// these features, so no third branch exists here.
		switch {
		case a.features.Enabled(FeatureParseHeaders):
			argv = append(argv, "-x", "c++-header")
		case a.features.Enabled(FeaturePreprocessHeaders):
			argv = append(argv, "-E", "-x", "c++")
		}
	}

	for _, dir := range a.ctx.QuoteIncludeDirs() {
		argv = append(argv, "-iquote", dir.String())
	}
	for _, dir := range a.ctx.IncludeDirs() {
		argv = append(argv, "-I"+dir.String())
	}
	for _, dir := range a.ctx.SystemIncludeDirs() {
		argv = append(argv, "-isystem", dir.String())
	}

	// Plugin options must precede the toolchain compiler options:
	// -fplugin has to come before any -plugin-arg.
	argv = append(argv, a.pluginOpts...)

	filtered(a.config.CompilerOptions(a.features))

	if a.config.CodeCoverageEnabled() {
		filtered([]string{"-fprofile-arcs", "-ftest-coverage"})
	}

	if isCSourceName(srcName) {
		filtered(a.config.COptions())
	} else if isCxxSourceName(srcName) || isCxxHeaderName(srcName) {
		filtered(a.config.CxxOptions(a.features))
	}

	// Explicit copts escape the filter: user intent wins.
	argv = append(argv, a.copts...)

	for _, w := range a.config.CWarns() {
		argv = append(argv, "-W"+w)
	}
	for _, d := range a.ctx.Defines() {
		argv = append(argv, "-D"+d)
	}
	if a.fdoBuildStamp != "" {
		argv = append(argv, fmt.Sprintf("-D%s=\"%s\"", fdoStampMacro, a.fdoBuildStamp))
	}

	argv = append(argv, a.config.UnfilteredCompilerOptions(a.features)...)

	// Stable seed for anonymous namespace symbol naming.
	argv = append(argv, "-frandom-seed="+a.output.ExecPath().String())

	for _, p := range a.config.PerFileCopts() {
		if p.Matches(a.sourceLabel, a.source.ExecPath()) {
			argv = append(argv, p.Opts...)
		}
	}

	if !a.dotd.isZero() {
		argv = append(argv, "-MD", "-MF", a.dotd.ExecPath().String())
	}

	if mm := a.ctx.ModuleMap(); mm != nil && a.enableModules {
		argv = append(argv,
			"-Xclang-only=-fmodule-maps",
			"-Xclang-only=-fmodules-strict-decluse",
			"-Xclang-only=-fmodule-name="+mm.Name(),
			"-Xclang-only=-fmodule-map-file="+mm.Artifact().ExecPath().String())
	}

	outName := a.output.ExecPath().Base()
	if isAssemblerOutputName(outName) {
		argv = append(argv, "-S")
	} else if isPreprocessedOutputName(outName) {
		argv = append(argv, "-E")
	}

	if a.config.UseFission() {
		argv = append(argv, "-gsplit-dwarf")
	}

	argv = append(argv, "-c", a.source.ExecPath().String())
	argv = append(argv, "-o", a.output.ExecPath().String())
	return argv
}

// Environment returns the shell environment for the compile. With
// coverage enabled, PWD is pinned to /proc/self/cwd so absolute paths
// the compiler embeds stay hermetic.
func (a *CompileAction) Environment() map[string]string {
	env := a.config.DefaultShellEnvironment()
	if a.config.CodeCoverageEnabled() {
		env["PWD"] = "/proc/self/cwd"
	}
	return env
}
