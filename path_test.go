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
	"testing"
)

func TestPathClean(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{in: "", want: "."},
		{in: ".", want: "."},
		{in: "/", want: "/"},
		{in: "foo", want: "foo"},
		{in: "foo/bar", want: "foo/bar"},
		{in: "foo//bar/", want: "foo/bar"},
		{in: "./foo/./bar", want: "foo/bar"},
		{in: "foo/../bar", want: "bar"},
		{in: "../foo", want: "../foo"},
		{in: "/foo/../../bar", want: "/bar"},
		{in: "/usr/include", want: "/usr/include"},
	} {
		if got := NewPath(tc.in).String(); got != tc.want {
			t.Errorf("NewPath(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPathSegments(t *testing.T) {
	for _, tc := range []struct {
		in     string
		count  int
		base   string
		parent string
		abs    bool
	}{
		{in: "", count: 0, base: "", parent: "."},
		{in: "foo", count: 1, base: "foo", parent: "."},
		{in: "foo/bar", count: 2, base: "bar", parent: "foo"},
		{in: "foo/bar/baz.h", count: 3, base: "baz.h", parent: "foo/bar"},
		{in: "/foo/bar", count: 2, base: "bar", parent: "/foo", abs: true},
		{in: "/foo", count: 1, base: "foo", parent: "/", abs: true},
		{in: "/", count: 0, base: "", parent: "/", abs: true},
	} {
		p := NewPath(tc.in)
		if got := p.SegmentCount(); got != tc.count {
			t.Errorf("SegmentCount(%q)=%d, want %d", tc.in, got, tc.count)
		}
		if got := p.Base(); got != tc.base {
			t.Errorf("Base(%q)=%q, want %q", tc.in, got, tc.base)
		}
		if got := p.Parent().String(); got != tc.parent {
			t.Errorf("Parent(%q)=%q, want %q", tc.in, got, tc.parent)
		}
		if got := p.IsAbsolute(); got != tc.abs {
			t.Errorf("IsAbsolute(%q)=%t, want %t", tc.in, got, tc.abs)
		}
	}
}

func TestPathStartsWith(t *testing.T) {
	for _, tc := range []struct {
		p, prefix string
		want      bool
	}{
		{p: "foo/bar", prefix: "foo", want: true},
		{p: "foo/bar", prefix: "foo/bar", want: true},
		{p: "foo/bar", prefix: "", want: true},
		{p: "foo/bar", prefix: "foo/ba", want: false},
		{p: "foobar", prefix: "foo", want: false},
		{p: "/usr/include/c++", prefix: "/usr/include", want: true},
		{p: "/usr/include", prefix: "usr", want: false},
		{p: "/usr", prefix: "/", want: true},
		{p: "usr", prefix: "/", want: false},
	} {
		if got := NewPath(tc.p).StartsWith(NewPath(tc.prefix)); got != tc.want {
			t.Errorf("StartsWith(%q, %q)=%t, want %t", tc.p, tc.prefix, got, tc.want)
		}
	}
}

func TestPathRelativeTo(t *testing.T) {
	for _, tc := range []struct {
		p, base string
		want    string
		ok      bool
	}{
		{p: "/ws/pkg/x.h", base: "/ws", want: "pkg/x.h", ok: true},
		{p: "/ws/pkg/x.h", base: "/other", ok: false},
		{p: "foo/bar", base: "foo", want: "bar", ok: true},
		{p: "foo", base: "foo", want: ".", ok: true},
	} {
		got, ok := NewPath(tc.p).RelativeTo(NewPath(tc.base))
		if ok != tc.ok {
			t.Errorf("RelativeTo(%q, %q)=_, %t, want %t", tc.p, tc.base, ok, tc.ok)
			continue
		}
		if ok && got.String() != tc.want {
			t.Errorf("RelativeTo(%q, %q)=%q, want %q", tc.p, tc.base, got, tc.want)
		}
	}
}

func TestStartsWithAny(t *testing.T) {
	prefixes := []Path{NewPath("/usr/include"), NewPath("third_party")}
	for _, tc := range []struct {
		p    string
		want bool
	}{
		{p: "/usr/include/stdio.h", want: true},
		{p: "/usr/includes/stdio.h", want: false},
		{p: "third_party/zlib/zlib.h", want: true},
		{p: "pkg/x.h", want: false},
	} {
		if got := startsWithAny(NewPath(tc.p), prefixes); got != tc.want {
			t.Errorf("startsWithAny(%q)=%t, want %t", tc.p, got, tc.want)
		}
	}
}

func TestArtifactExecPath(t *testing.T) {
	a := srcArtifact("pkg/x.cc")
	if got, want := a.ExecPath().String(), "pkg/x.cc"; got != want {
		t.Errorf("ExecPath()=%q, want %q", got, want)
	}
	if got, want := a.Path().String(), "/ws/pkg/x.cc"; got != want {
		t.Errorf("Path()=%q, want %q", got, want)
	}
	d := derivedArtifact("pkg/x.o")
	if got, want := d.ExecPath().String(), "out/pkg/x.o"; got != want {
		t.Errorf("ExecPath()=%q, want %q", got, want)
	}
	if d.IsSource() {
		t.Errorf("derived artifact reported as source")
	}
	if !a.IsSource() {
		t.Errorf("source artifact reported as derived")
	}
}
