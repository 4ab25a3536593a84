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
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// buildMarkerFile marks a directory as its own package; a header
// under it does not belong to an enclosing declared dir.
const buildMarkerFile = "BUILD"

// buildFileCache remembers which directories carry a BUILD marker so
// the ancestor walk does not re-stat the same dirs for every input.
type buildFileCache struct {
	mu     sync.Mutex
	marked map[Path]bool
}

var buildFiles = &buildFileCache{marked: make(map[Path]bool)}

func (c *buildFileCache) exists(dir Path) bool {
	c.mu.Lock()
	marked, ok := c.marked[dir]
	c.mu.Unlock()
	if ok {
		return marked
	}
	_, err := os.Stat(dir.Join(buildMarkerFile).String())
	marked = err == nil
	c.mu.Lock()
	c.marked[dir] = marked
	c.mu.Unlock()
	return marked
}

// IncludeProblems collects the paths that violated the inclusion
// policy for one action.
type IncludeProblems struct {
	paths []string
}

// Add records an offending path.
func (p *IncludeProblems) Add(path string) {
	p.paths = append(p.paths, path)
}

// HasProblems reports whether anything was recorded.
func (p *IncludeProblems) HasProblems() bool {
	return len(p.paths) > 0
}

// Paths returns the offending paths in record order.
func (p *IncludeProblems) Paths() []string {
	return p.paths
}

// Message formats every offending path, not just the first, against
// the source file being compiled.
func (p *IncludeProblems) Message(source Artifact) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "undeclared inclusion(s) in rule, compiling %s:", source.ExecPath())
	for _, path := range p.paths {
		sb.WriteString("\n  '")
		sb.WriteString(path)
		sb.WriteString("'")
	}
	return sb.String()
}

// AssertProblemFree returns a fatal action error carrying every
// offending path, or nil.
func (p *IncludeProblems) AssertProblemFree(label Label, source Artifact) error {
	if !p.HasProblems() {
		return nil
	}
	return &ActionExecError{
		Label: label,
		Msg:   p.Message(source),
		Paths: p.paths,
	}
}

var validationDebugMu sync.Mutex

// ValidateInclusions checks that every discovered input is permitted
// by the declared inclusion policy. Inputs under the toolchain's
// built-in dirs, the extra system prefixes, or the context's system
// include dirs are exempt, as are mandatory and optional inputs and
// compilation prerequisites. Inputs under a warn dir produce a single
// WARNING event; everything else undeclared is a fatal action error
// listing all offenders.
func (a *CompileAction) ValidateInclusions(expander MiddlemanExpander, events EventHandler) error {
	if !a.config.ShouldScanIncludes() || !a.InputsKnown() {
		return nil
	}
	stats.validations.Add(1)

	allowed := newArtifactSet(a.optionalInputs)
	for _, in := range a.mandatoryInputs {
		allowed.add(in)
		if in.IsMiddleman() && expander != nil {
			expander.Expand(in, allowed)
		}
	}

	var ignoreDirs []Path
	ignoreDirs = append(ignoreDirs, a.config.BuiltInIncludeDirectories()...)
	ignoreDirs = append(ignoreDirs, a.extraSystemIncludePrefixes...)
	ignoreDirs = append(ignoreDirs, a.ctx.SystemIncludeDirs()...)

	prereqs := newArtifactSet(a.ctx.CompilationPrerequisites())

	var errs, warns IncludeProblems
	for _, input := range a.Inputs() {
		if prereqs.contains(input) || allowed.contains(input) {
			continue
		}
		if startsWithAny(input.ExecPath(), ignoreDirs) {
			continue
		}
		switch {
		case a.isDeclaredIn(input, a.ctx.DeclaredIncludeDirs(), a.ctx):
			// ok
		case a.isDeclaredIn(input, a.ctx.DeclaredIncludeWarnDirs(), nil):
			warns.Add(input.ExecPath().String())
		default:
			errs.Add(input.ExecPath().String())
		}
	}

	if DebugValidationFlag && (warns.HasProblems() || errs.HasProblems()) {
		a.dumpValidationState(allowed, ignoreDirs, &warns, &errs)
	}

	if warns.HasProblems() {
		stats.validationWarnings.Add(int64(len(warns.Paths())))
		if events != nil {
			events.Handle(Event{
				Kind:     EventWarning,
				Location: a.source.ExecPath().String(),
				Message:  warns.Message(a.source),
				Label:    a.owner,
			})
		}
	}
	if errs.HasProblems() {
		stats.validationErrors.Add(int64(len(errs.Paths())))
	}
	return errs.AssertProblemFree(a.owner, a.source)
}

// isDeclaredIn reports whether input is reachable through the
// declared inclusion policy: an exact declared src, a file directly
// in a declared dir, a file under a trailing-"**" wildcard dir, or a
// file in a subdirectory of a declared dir that is not cut off by a
// BUILD marker (a sub-package is a distinct package even when it
// sits under a declared dir). Derived inputs must be declared
// explicitly unless their root is an include tree.
func (a *CompileAction) isDeclaredIn(input Artifact, dirs []Path, srcs *CompilationContext) bool {
	if srcs != nil && srcs.declaredSrc(input.ExecPath()) {
		return true
	}
	if !input.IsSource() && input.Root().Path().Base() != "include" {
		return false
	}
	d := input.RootRelativePath().Parent()
	if d.SegmentCount() == 0 || pathsContain(dirs, d) {
		return true
	}
	for _, w := range dirs {
		if w.Base() == "**" && d.StartsWith(w.Parent()) {
			return true
		}
	}
	// Walk up from the file's directory. A BUILD marker at the
	// current level wins over a declared dir above it.
	root := input.Root().Path()
	dir := input.Path().Parent()
	for {
		if !dir.StartsWith(root) || dir == root {
			return false
		}
		if a.markerExists(dir) {
			return false
		}
		dir = dir.Parent()
		if !dir.StartsWith(root) || dir == root {
			return false
		}
		rel, _ := dir.RelativeTo(root)
		if pathsContain(dirs, rel) {
			return true
		}
	}
}

func (a *CompileAction) markerExists(dir Path) bool {
	if a.packageMarker != nil {
		return a.packageMarker(dir)
	}
	return buildFiles.exists(dir)
}

// dumpValidationState writes the validator's working state to
// stderr. Diagnostic aid only; serialized process-wide.
func (a *CompileAction) dumpValidationState(allowed artifactSet, ignoreDirs []Path, warns, errs *IncludeProblems) {
	validationDebugMu.Lock()
	defer validationDebugMu.Unlock()
	fmt.Fprintf(os.Stderr, "include validation for %s (%s):\n", a.source.ExecPath(), a.owner)
	var allowedPaths []string
	for p := range allowed {
		allowedPaths = append(allowedPaths, p.String())
	}
	sort.Strings(allowedPaths)
	fmt.Fprintf(os.Stderr, "  allowed: %s\n", strings.Join(allowedPaths, " "))
	fmt.Fprintf(os.Stderr, "  ignore dirs: %v\n", ignoreDirs)
	fmt.Fprintf(os.Stderr, "  declared dirs: %v\n", a.ctx.DeclaredIncludeDirs())
	fmt.Fprintf(os.Stderr, "  warn dirs: %v\n", a.ctx.DeclaredIncludeWarnDirs())
	fmt.Fprintf(os.Stderr, "  warnings: %v\n", warns.Paths())
	fmt.Fprintf(os.Stderr, "  errors: %v\n", errs.Paths())
	glog.Flush()
}
