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

// ModuleMap is a Clang module map enabling strict declared-use
// checking for a target.
type ModuleMap struct {
	artifact Artifact
	name     string
}

// NewModuleMap returns the module map named name backed by artifact.
func NewModuleMap(artifact Artifact, name string) *ModuleMap {
	return &ModuleMap{artifact: artifact, name: name}
}

func (m *ModuleMap) Artifact() Artifact { return m.artifact }
func (m *ModuleMap) Name() string       { return m.name }

// PregreppedHeader pairs a header with the include list already
// grepped out of it, so the include scanner need not reopen it.
type PregreppedHeader struct {
	Header   Artifact
	Includes []Path
}

// ContextData is the builder input for a CompilationContext. Slices
// are kept by reference; callers hand over ownership.
type ContextData struct {
	QuoteIncludeDirs  []Path
	IncludeDirs       []Path
	SystemIncludeDirs []Path

	// Declared include dirs are the rule author's whitelist. A dir
	// whose last segment is literally "**" declares its whole
	// subtree. Warn dirs admit an input with a warning instead of an
	// error.
	DeclaredIncludeDirs     []Path
	DeclaredIncludeWarnDirs []Path
	DeclaredIncludeSrcs     []Artifact

	PregreppedHeaders []PregreppedHeader

	// CompilationPrerequisites are live for every compile of the
	// target regardless of what the dependency set discovers.
	CompilationPrerequisites []Artifact

	Defines   []string
	ModuleMap *ModuleMap
}

// CompilationContext is the immutable declared-inclusion policy plus
// preprocessor surface of one target. Accessors return internal
// slices; callers must not modify them.
type CompilationContext struct {
	d declaredSrcIndex
	c ContextData
}

type declaredSrcIndex map[Path]Artifact

// NewCompilationContext freezes data into a context.
func NewCompilationContext(data ContextData) *CompilationContext {
	idx := make(declaredSrcIndex, len(data.DeclaredIncludeSrcs))
	for _, a := range data.DeclaredIncludeSrcs {
		idx[a.ExecPath()] = a
	}
	return &CompilationContext{d: idx, c: data}
}

func (cc *CompilationContext) QuoteIncludeDirs() []Path  { return cc.c.QuoteIncludeDirs }
func (cc *CompilationContext) IncludeDirs() []Path       { return cc.c.IncludeDirs }
func (cc *CompilationContext) SystemIncludeDirs() []Path { return cc.c.SystemIncludeDirs }

func (cc *CompilationContext) DeclaredIncludeDirs() []Path     { return cc.c.DeclaredIncludeDirs }
func (cc *CompilationContext) DeclaredIncludeWarnDirs() []Path { return cc.c.DeclaredIncludeWarnDirs }
func (cc *CompilationContext) DeclaredIncludeSrcs() []Artifact { return cc.c.DeclaredIncludeSrcs }

func (cc *CompilationContext) PregreppedHeaders() []PregreppedHeader { return cc.c.PregreppedHeaders }

func (cc *CompilationContext) CompilationPrerequisites() []Artifact {
	return cc.c.CompilationPrerequisites
}

func (cc *CompilationContext) Defines() []string     { return cc.c.Defines }
func (cc *CompilationContext) ModuleMap() *ModuleMap { return cc.c.ModuleMap }

// declaredSrc reports whether execPath names a declared include src.
func (cc *CompilationContext) declaredSrc(execPath Path) bool {
	_, ok := cc.d[execPath]
	return ok
}
