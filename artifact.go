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
	"sort"
)

// Root is a directory artifacts are addressed relative to. A source
// root holds checked-in files; a derived root holds action outputs.
// path is the location on the local filesystem, execPrefix the root's
// prefix within the execution root ("" for source roots, something
// like "out" for derived roots).
type Root struct {
	path       Path
	execPrefix Path
	source     bool
}

// NewSourceRoot returns a source root at path.
func NewSourceRoot(path Path) Root {
	return Root{path: path, source: true}
}

// NewDerivedRoot returns a derived root at path, addressed as
// execPrefix under the execution root.
func NewDerivedRoot(path, execPrefix Path) Root {
	return Root{path: path, execPrefix: execPrefix}
}

func (r Root) Path() Path       { return r.path }
func (r Root) ExecPrefix() Path { return r.execPrefix }
func (r Root) IsSource() bool   { return r.source }

// Artifact is a file the build tracks: a (root, root-relative path)
// pair plus the source/derived distinction inherited from the root.
// A middleman artifact stands in for a set of other artifacts and is
// expanded on demand through a MiddlemanExpander; it is never a
// recursive structure. Two artifacts with equal exec path are equal.
type Artifact struct {
	root      Root
	rootRel   Path
	middleman bool
}

// NewArtifact returns the artifact for rootRel under root.
func NewArtifact(root Root, rootRel Path) Artifact {
	return Artifact{root: root, rootRel: rootRel}
}

// NewMiddlemanArtifact returns an aggregating artifact under root.
func NewMiddlemanArtifact(root Root, rootRel Path) Artifact {
	return Artifact{root: root, rootRel: rootRel, middleman: true}
}

func (a Artifact) Root() Root             { return a.root }
func (a Artifact) RootRelativePath() Path { return a.rootRel }
func (a Artifact) IsSource() bool         { return a.root.source }
func (a Artifact) IsMiddleman() bool      { return a.middleman }

// ExecPath returns a's path relative to the execution root.
func (a Artifact) ExecPath() Path {
	return a.root.execPrefix.JoinPath(a.rootRel)
}

// Path returns a's location on the local filesystem.
func (a Artifact) Path() Path {
	return a.root.path.JoinPath(a.rootRel)
}

// Equal reports whether a and b name the same file.
func (a Artifact) Equal(b Artifact) bool {
	return a.ExecPath() == b.ExecPath()
}

func (a Artifact) String() string {
	kind := "derived"
	if a.root.source {
		kind = "source"
	}
	if a.middleman {
		kind = "middleman"
	}
	return fmt.Sprintf("Artifact{%s %s}", kind, a.ExecPath())
}

// artifactSet is a set of artifacts keyed by exec path, matching
// artifact equality.
type artifactSet map[Path]Artifact

func newArtifactSet(artifacts ...[]Artifact) artifactSet {
	s := make(artifactSet)
	for _, as := range artifacts {
		s.addAll(as)
	}
	return s
}

func (s artifactSet) add(a Artifact) {
	s[a.ExecPath()] = a
}

func (s artifactSet) addAll(as []Artifact) {
	for _, a := range as {
		s.add(a)
	}
}

func (s artifactSet) contains(a Artifact) bool {
	_, ok := s[a.ExecPath()]
	return ok
}

// sorted returns the artifacts ordered by ascending exec path.
func (s artifactSet) sorted() []Artifact {
	as := make([]Artifact, 0, len(s))
	for _, a := range s {
		as = append(as, a)
	}
	sort.Slice(as, func(i, j int) bool {
		return as[i].ExecPath().s < as[j].ExecPath().s
	})
	return as
}

func sortedByExecPath(as []Artifact) []Artifact {
	sorted := append([]Artifact(nil), as...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ExecPath().s < sorted[j].ExecPath().s
	})
	return sorted
}
