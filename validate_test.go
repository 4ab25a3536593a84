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
	"testing"

	"github.com/stretchr/testify/require"
)

// newScanAction builds an include-scanning action for pkg/x.cc with
// the given context and package marker.
func newScanAction(t *testing.T, data ContextData, marker func(Path) bool) *CompileAction {
	t.Helper()
	if marker == nil {
		marker = noMarkers
	}
	return NewCompileAction(CompileActionOpt{
		Owner:         "//pkg:lib",
		Source:        srcArtifact("pkg/x.cc"),
		Output:        derivedArtifact("pkg/x.o"),
		Dotd:          DepFileVirtual(NewPath("pkg/x.d")),
		Config:        &testConfig{scanIncludes: true},
		Context:       NewCompilationContext(data),
		PackageMarker: marker,
	})
}

// runCompile executes the action against a canned dependency reply.
func runCompile(a *CompileAction, deps string, resolver ArtifactResolver, events EventHandler) error {
	ec := ExecContext{
		Executor: &testExecutor{reply: []byte(deps)},
		Resolver: resolver,
		Events:   events,
		ExecRoot: testExecRoot,
	}
	return a.Execute(context.Background(), ec)
}

func TestCleanCompile(t *testing.T) {
	a := newScanAction(t, ContextData{
		IncludeDirs:         []Path{NewPath("pkg")},
		DeclaredIncludeDirs: []Path{NewPath("pkg")},
		DeclaredIncludeSrcs: []Artifact{srcArtifact("pkg/x.h")},
	}, nil)
	events := &testEvents{}

	err := runCompile(a, "pkg/x.o: pkg/x.cc pkg/x.h\n", newTestResolver("pkg/x.cc", "pkg/x.h"), events)
	require.NoError(t, err)
	require.True(t, a.InputsKnown())
	require.Empty(t, events.events)

	var inputs []string
	for _, in := range a.Inputs() {
		inputs = append(inputs, in.ExecPath().String())
	}
	require.Contains(t, inputs, "pkg/x.cc")
	require.Contains(t, inputs, "pkg/x.h")

	argv := a.Argv()
	require.Contains(t, argv, "-Ipkg")
	require.Contains(t, argv, "-c")
	require.Contains(t, argv, "pkg/x.cc")
	require.Contains(t, argv, "out/pkg/x.o")
}

func TestUndeclaredInclude(t *testing.T) {
	a := newScanAction(t, ContextData{
		DeclaredIncludeDirs: []Path{NewPath("pkg")},
		DeclaredIncludeSrcs: []Artifact{srcArtifact("pkg/x.h")},
	}, nil)

	err := runCompile(a, "pkg/x.o: pkg/x.cc pkg/x.h other/y.h\n",
		newTestResolver("pkg/x.cc", "pkg/x.h", "other/y.h"), &testEvents{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "other/y.h")
	require.Contains(t, err.Error(), "pkg/x.cc")
}

func TestWarnDirFallback(t *testing.T) {
	a := newScanAction(t, ContextData{
		DeclaredIncludeDirs:     []Path{NewPath("pkg")},
		DeclaredIncludeWarnDirs: []Path{NewPath("legacy")},
	}, nil)
	events := &testEvents{}

	err := runCompile(a, "pkg/x.o: pkg/x.cc legacy/z.h\n",
		newTestResolver("pkg/x.cc", "legacy/z.h"), events)
	require.NoError(t, err)
	require.Len(t, events.events, 1)
	require.Equal(t, EventWarning, events.events[0].Kind)
	require.Contains(t, events.events[0].Message, "legacy/z.h")
}

func TestSubPackageTrap(t *testing.T) {
	a := newScanAction(t, ContextData{
		DeclaredIncludeDirs: []Path{NewPath("pkg")},
	}, markersAt("/ws/pkg/sub"))

	err := runCompile(a, "pkg/x.o: pkg/x.cc pkg/sub/q.h\n",
		newTestResolver("pkg/x.cc", "pkg/sub/q.h"), &testEvents{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "pkg/sub/q.h")
}

func TestSubdirOfDeclaredPackage(t *testing.T) {
	// No BUILD marker below pkg: its subdirs belong to it.
	a := newScanAction(t, ContextData{
		DeclaredIncludeDirs: []Path{NewPath("pkg")},
	}, markersAt("/ws/pkg"))

	err := runCompile(a, "pkg/x.o: pkg/x.cc pkg/sub/q.h\n",
		newTestResolver("pkg/x.cc", "pkg/sub/q.h"), &testEvents{})
	require.NoError(t, err)
}

func TestWildcardDeclaredDir(t *testing.T) {
	a := newScanAction(t, ContextData{
		DeclaredIncludeDirs: []Path{NewPath("pkg"), NewPath("pkg/**")},
	}, nil)

	err := runCompile(a, "pkg/x.o: pkg/x.cc pkg/a/b/c.h\n",
		newTestResolver("pkg/x.cc", "pkg/a/b/c.h"), &testEvents{})
	require.NoError(t, err)
}

func TestSystemDirsIgnored(t *testing.T) {
	a := NewCompileAction(CompileActionOpt{
		Owner:  "//pkg:lib",
		Source: srcArtifact("pkg/x.cc"),
		Output: derivedArtifact("pkg/x.o"),
		Dotd:   DepFileVirtual(NewPath("pkg/x.d")),
		Config: &testConfig{
			scanIncludes: true,
			builtinDirs:  []Path{NewPath("/usr/include")},
		},
		Context: NewCompilationContext(ContextData{
			SystemIncludeDirs:   []Path{NewPath("third_party/sys")},
			DeclaredIncludeDirs: []Path{NewPath("pkg")},
		}),
		ExtraSystemIncludePrefixes: []Path{NewPath("/opt/sysroot")},
		PackageMarker:              noMarkers,
	})

	err := runCompile(a, "pkg/x.o: pkg/x.cc third_party/sys/a.h /usr/include/stdio.h\n",
		newTestResolver("pkg/x.cc", "third_party/sys/a.h"), &testEvents{})
	require.NoError(t, err)
}

func TestDeclaredSrcReflexivity(t *testing.T) {
	hdr := srcArtifact("somewhere/else/x.h")
	a := newScanAction(t, ContextData{
		DeclaredIncludeSrcs: []Artifact{hdr},
	}, nil)
	require.True(t, a.isDeclaredIn(hdr, nil, a.Context()))
	require.True(t, a.isDeclaredIn(hdr, []Path{NewPath("unrelated")}, a.Context()))
}

func TestDerivedInputRule(t *testing.T) {
	a := newScanAction(t, ContextData{
		DeclaredIncludeDirs: []Path{NewPath("gen")},
	}, nil)

	// A derived header is never covered by declared dirs alone.
	gen := derivedArtifact("gen/q.h")
	require.False(t, a.isDeclaredIn(gen, a.Context().DeclaredIncludeDirs(), a.Context()))

	// Unless its root is an include tree.
	inc := NewArtifact(testIncludeRoot, NewPath("zlib.h"))
	require.True(t, a.isDeclaredIn(inc, nil, a.Context()))
}

func TestValidatorSkipsWhenInputsUnknown(t *testing.T) {
	a := newScanAction(t, ContextData{}, nil)
	require.False(t, a.InputsKnown())
	// Inputs unknown: nothing to check yet.
	require.NoError(t, a.ValidateInclusions(nil, &testEvents{}))
}

func TestValidatorMonotonicity(t *testing.T) {
	data := ContextData{
		DeclaredIncludeDirs: []Path{NewPath("pkg")},
	}
	resolver := newTestResolver("pkg/x.cc", "pkg/a.h", "other/y.h")

	small := newScanAction(t, data, nil)
	require.NoError(t, runCompile(small, "pkg/x.o: pkg/x.cc pkg/a.h\n", resolver, &testEvents{}))

	// Adding an undeclared header to the clean set makes it fail.
	big := newScanAction(t, data, nil)
	err := runCompile(big, "pkg/x.o: pkg/x.cc pkg/a.h other/y.h\n", resolver, &testEvents{})
	require.Error(t, err)
}

func TestIncludeProblems(t *testing.T) {
	var p IncludeProblems
	require.False(t, p.HasProblems())
	require.NoError(t, p.AssertProblemFree("//pkg:lib", srcArtifact("pkg/x.cc")))

	p.Add("other/y.h")
	p.Add("other/z.h")
	require.True(t, p.HasProblems())
	msg := p.Message(srcArtifact("pkg/x.cc"))
	require.Contains(t, msg, "other/y.h")
	require.Contains(t, msg, "other/z.h")
	require.Contains(t, msg, "pkg/x.cc")
	require.Error(t, p.AssertProblemFree("//pkg:lib", srcArtifact("pkg/x.cc")))
}

func TestMiddlemanExpansion(t *testing.T) {
	mm := NewMiddlemanArtifact(testDerivedRoot, NewPath("middlemen/deps"))
	hidden := srcArtifact("vendor/v.h")
	a := NewCompileAction(CompileActionOpt{
		Owner:           "//pkg:lib",
		Source:          srcArtifact("pkg/x.cc"),
		MandatoryInputs: []Artifact{mm},
		Output:          derivedArtifact("pkg/x.o"),
		Dotd:            DepFileVirtual(NewPath("pkg/x.d")),
		Config:          &testConfig{scanIncludes: true},
		Context:         NewCompilationContext(ContextData{DeclaredIncludeDirs: []Path{NewPath("pkg")}}),
		PackageMarker:   noMarkers,
	})
	expander := &testExpander{expansions: map[Path][]Artifact{
		mm.ExecPath(): {hidden},
	}}
	ec := ExecContext{
		Executor: &testExecutor{reply: []byte("pkg/x.o: pkg/x.cc vendor/v.h\n")},
		Resolver: newTestResolver("pkg/x.cc", "vendor/v.h"),
		Expander: expander,
		Events:   &testEvents{},
		ExecRoot: testExecRoot,
	}
	require.NoError(t, a.Execute(context.Background(), ec))
}
