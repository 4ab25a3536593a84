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
	"context"
)

// Shared fixtures for the compile action tests.

var (
	testSourceRoot  = NewSourceRoot(NewPath("/ws"))
	testDerivedRoot = NewDerivedRoot(NewPath("/ws/out"), NewPath("out"))
	testIncludeRoot = NewDerivedRoot(NewPath("/ws/include"), NewPath("include"))
	testExecRoot    = NewPath("/ws")
)

func srcArtifact(p string) Artifact {
	return NewArtifact(testSourceRoot, NewPath(p))
}

func derivedArtifact(p string) Artifact {
	return NewArtifact(testDerivedRoot, NewPath(p))
}

// testConfig is a fixed-value BuildConfig.
type testConfig struct {
	scanIncludes bool
	fission      bool
	coverage     bool
	builtinDirs  []Path
	compilerOpts []string
	cOpts        []string
	cxxOpts      []string
	unfiltered   []string
	warns        []string
	perFileCopts []PerFileCopt
}

func (c *testConfig) ShouldScanIncludes() bool            { return c.scanIncludes }
func (c *testConfig) UseFission() bool                    { return c.fission }
func (c *testConfig) CodeCoverageEnabled() bool           { return c.coverage }
func (c *testConfig) BuiltInIncludeDirectories() []Path   { return c.builtinDirs }
func (c *testConfig) CompilerOptions(FeatureSet) []string { return c.compilerOpts }
func (c *testConfig) COptions() []string                  { return c.cOpts }
func (c *testConfig) CxxOptions(FeatureSet) []string      { return c.cxxOpts }
func (c *testConfig) UnfilteredCompilerOptions(FeatureSet) []string {
	return c.unfiltered
}
func (c *testConfig) CWarns() []string            { return c.warns }
func (c *testConfig) PerFileCopts() []PerFileCopt { return c.perFileCopts }
func (c *testConfig) ToolPath(tool Tool) string   { return "tools/" + string(tool) }
func (c *testConfig) LdExecutable() string        { return "tools/ld" }
func (c *testConfig) DefaultShellEnvironment() map[string]string {
	return map[string]string{"PATH": "/bin:/usr/bin"}
}

// testResolver resolves a fixed set of source exec paths.
type testResolver struct {
	known map[Path]Artifact
}

func newTestResolver(paths ...string) *testResolver {
	r := &testResolver{known: make(map[Path]Artifact)}
	for _, p := range paths {
		a := srcArtifact(p)
		r.known[a.ExecPath()] = a
	}
	return r
}

func (r *testResolver) ResolveSourceArtifact(execPath Path) (Artifact, bool) {
	a, ok := r.known[execPath]
	return a, ok
}

// testEvents records every event it sees.
type testEvents struct {
	events []Event
}

func (e *testEvents) Handle(ev Event) {
	e.events = append(e.events, ev)
}

// testExecutor replies with a fixed dependency payload.
type testExecutor struct {
	reply    []byte
	err      error
	locality string
	executed int
}

func (e *testExecutor) ExecWithReply(ctx context.Context, a *CompileAction) (Reply, error) {
	e.executed++
	if e.err != nil {
		return nil, e.err
	}
	if e.reply == nil {
		return nil, nil
	}
	return NewReply(e.reply), nil
}

func (e *testExecutor) StrategyLocality() string {
	if e.locality == "" {
		return "local"
	}
	return e.locality
}

func (e *testExecutor) NeedsIncludeScanning() bool { return true }

func (e *testExecutor) EstimateResourceConsumption(a *CompileAction) ResourceSet {
	return ResourceSet{MemoryMB: 1, CPU: 1, IO: 1}
}

func (e *testExecutor) ScannedIncludeFiles(ctx context.Context, a *CompileAction) []string {
	return nil
}

// testExpander expands middlemen from a fixed table.
type testExpander struct {
	expansions map[Path][]Artifact
}

func (e *testExpander) Expand(middleman Artifact, out map[Path]Artifact) {
	for _, a := range e.expansions[middleman.ExecPath()] {
		out[a.ExecPath()] = a
	}
}

func noMarkers(Path) bool { return false }

func markersAt(dirs ...string) func(Path) bool {
	marked := make(map[Path]bool)
	for _, d := range dirs {
		marked[NewPath(d)] = true
	}
	return func(dir Path) bool { return marked[dir] }
}
