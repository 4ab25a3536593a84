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

	"github.com/golang/glog"
)

// allowedDerivedInputs maps exec path to artifact for every derived
// artifact the discovered dependency set may legitimately name:
// derived mandatory inputs, declared include srcs, compilation
// prerequisites, and the source itself when it is generated.
func (a *CompileAction) allowedDerivedInputs() map[Path]Artifact {
	m := make(map[Path]Artifact)
	add := func(as []Artifact) {
		for _, art := range as {
			if !art.IsSource() {
				m[art.ExecPath()] = art
			}
		}
	}
	add(a.mandatoryInputs)
	add(a.ctx.DeclaredIncludeSrcs())
	add(a.ctx.CompilationPrerequisites())
	if !a.source.IsSource() {
		m[a.source.ExecPath()] = a.source
	}
	return m
}

// systemPrefixes returns the absolute prefixes under which a
// discovered dependency belongs to the system, not the build.
func (a *CompileAction) systemPrefixes() []Path {
	var prefixes []Path
	for _, p := range a.extraSystemIncludePrefixes {
		if p.IsAbsolute() {
			prefixes = append(prefixes, p)
		}
	}
	for _, p := range a.config.BuiltInIncludeDirectories() {
		if p.IsAbsolute() {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}

// UpdateActionInputs rebuilds the live input set from the dependency
// set the compile discovered. The reply's in-memory buffer wins over
// the on-disk .d file. Absolute dependencies under a system prefix
// are skipped; under the execution root they are normalized; any
// other absolute path, and any path neither an allowed derived input
// nor resolvable as a source artifact, is an undeclared inclusion.
// All errors are aggregated into one fatal action failure.
func (a *CompileAction) UpdateActionInputs(execRoot Path, resolver ArtifactResolver, reply Reply) error {
	if !a.config.ShouldScanIncludes() {
		return nil
	}
	stats.inputUpdates.Add(1)
	a.mu.Lock()
	a.inputsKnown = false
	a.mu.Unlock()

	var ds *DepSet
	var err error
	switch {
	case reply != nil:
		ds, err = ParseDepSet(reply.Contents())
	default:
		if art, ok := a.dotd.Artifact(); ok {
			ds, err = ParseDepSetFile(art.Path().String())
		} else {
			err = fmt.Errorf("no dependency output for %s", a.source.ExecPath())
		}
	}
	if err != nil {
		return &ActionExecError{
			Label: a.owner,
			Msg:   fmt.Sprintf("error while parsing .d file: %v", err),
			Cause: err,
		}
	}
	glog.V(2).Infof("update inputs %s: %d deps", a.source.ExecPath(), ds.Len())

	inputs := newArtifactSet(a.mandatoryInputs, a.optionalInputs, a.ctx.CompilationPrerequisites())
	allowedDerived := a.allowedDerivedInputs()
	systemPrefixes := a.systemPrefixes()

	var problems IncludeProblems
	for _, dep := range ds.Paths() {
		p := dep
		if p.IsAbsolute() {
			if startsWithAny(p, systemPrefixes) {
				continue
			}
			rel, ok := p.RelativeTo(execRoot)
			if !ok {
				problems.Add(p.String())
				continue
			}
			p = rel
		}
		art, ok := allowedDerived[p]
		if !ok {
			art, ok = resolver.ResolveSourceArtifact(p)
		}
		if !ok {
			problems.Add(p.String())
			continue
		}
		inputs.add(art)
		if a.includeResolver != nil {
			for _, aux := range a.includeResolver.Auxiliary(art) {
				inputs.add(aux)
			}
		}
	}
	if err := problems.AssertProblemFree(a.owner, a.source); err != nil {
		return err
	}

	a.mu.Lock()
	a.inputs = inputs
	a.inputsKnown = true
	a.mu.Unlock()
	return nil
}

// UpdateInputsFromCache restores the live input set from exec paths
// persisted by a previous build. Paths that no longer resolve are
// dropped silently; the change detector forces re-execution when
// that matters. This path may leave the input set smaller than the
// mandatory inputs, a deliberate relaxation of the construction-time
// superset invariant.
func (a *CompileAction) UpdateInputsFromCache(resolver ArtifactResolver, execPaths []Path) {
	stats.cacheRestores.Add(1)
	inputs := make(artifactSet)
	allowedDerived := a.allowedDerivedInputs()
	for _, p := range execPaths {
		if art, ok := allowedDerived[p]; ok {
			inputs.add(art)
			continue
		}
		if art, ok := resolver.ResolveSourceArtifact(p); ok {
			inputs.add(art)
			continue
		}
		glog.V(1).Infof("restore %s: dropping unresolved %s", a.source.ExecPath(), p)
	}
	a.mu.Lock()
	a.inputs = inputs
	a.inputsKnown = true
	a.mu.Unlock()
}
