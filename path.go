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
	"strings"
)

// Path is a slash separated, lexically cleaned path. It may be
// absolute. The zero value is the empty path with no segments.
// Equality is structural; Path is usable as a map key.
type Path struct {
	s string
}

// NewPath returns the cleaned Path for s. Cleaning is purely lexical:
// duplicate separators and "." segments are dropped, ".." segments
// are resolved against earlier segments where possible. No symlink
// resolution happens here.
func NewPath(s string) Path {
	return Path{pathClean(s)}
}

func pathClean(path string) string {
	var names []string
	abs := strings.HasPrefix(path, "/")
	for _, n := range strings.Split(path, "/") {
		if n == "" || n == "." {
			continue
		}
		if n == ".." && len(names) > 0 && names[len(names)-1] != ".." {
			names = names[:len(names)-1]
			continue
		}
		if n == ".." && abs {
			continue
		}
		names = append(names, n)
	}
	s := strings.Join(names, "/")
	if abs {
		return "/" + s
	}
	return s
}

func (p Path) String() string {
	if p.s == "" {
		return "."
	}
	return p.s
}

// IsAbsolute reports whether p starts at the filesystem root.
func (p Path) IsAbsolute() bool {
	return strings.HasPrefix(p.s, "/")
}

// IsEmpty reports whether p has no segments and is not absolute.
func (p Path) IsEmpty() bool {
	return p.s == ""
}

// Segments returns the path segments of p, without the leading "/"
// of an absolute path.
func (p Path) Segments() []string {
	s := strings.TrimPrefix(p.s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

// SegmentCount returns the number of segments of p.
func (p Path) SegmentCount() int {
	s := strings.TrimPrefix(p.s, "/")
	if s == "" {
		return 0
	}
	return strings.Count(s, "/") + 1
}

// Base returns the last segment of p, or "" if p has none.
func (p Path) Base() string {
	s := strings.TrimPrefix(p.s, "/")
	if s == "" {
		return ""
	}
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Parent returns p without its last segment. The parent of a
// single-segment path is the empty (or root, if absolute) path.
func (p Path) Parent() Path {
	i := strings.LastIndexByte(p.s, '/')
	if i < 0 {
		return Path{}
	}
	if i == 0 {
		return Path{"/"}
	}
	return Path{p.s[:i]}
}

// Join appends segments to p.
func (p Path) Join(names ...string) Path {
	s := p.s
	for _, n := range names {
		if n == "" {
			continue
		}
		if s == "" || s == "/" {
			s += n
		} else {
			s += "/" + n
		}
	}
	return NewPath(s)
}

// JoinPath appends the relative path q to p. If q is absolute it is
// returned unchanged.
func (p Path) JoinPath(q Path) Path {
	if q.IsAbsolute() {
		return q
	}
	return p.Join(q.Segments()...)
}

// StartsWith reports whether prefix is a segment-aligned prefix of p.
// The empty relative path is a prefix of every relative path; "/" is
// a prefix of every absolute path.
func (p Path) StartsWith(prefix Path) bool {
	if prefix.IsAbsolute() != p.IsAbsolute() {
		return false
	}
	if prefix.s == "" || prefix.s == "/" {
		return true
	}
	if !strings.HasPrefix(p.s, prefix.s) {
		return false
	}
	return len(p.s) == len(prefix.s) || p.s[len(prefix.s)] == '/'
}

// RelativeTo returns p with the prefix base removed. ok is false if
// base is not a segment-aligned prefix of p.
func (p Path) RelativeTo(base Path) (Path, bool) {
	if !p.StartsWith(base) {
		return Path{}, false
	}
	s := p.s[len(base.s):]
	s = strings.TrimPrefix(s, "/")
	return Path{s}, true
}

// startsWithAny reports whether some prefix in prefixes is a
// segment-aligned path prefix of p.
func startsWithAny(p Path, prefixes []Path) bool {
	for _, prefix := range prefixes {
		if p.StartsWith(prefix) {
			return true
		}
	}
	return false
}

func pathsContain(paths []Path, p Path) bool {
	for _, q := range paths {
		if q == p {
			return true
		}
	}
	return false
}
