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
	"errors"
	"fmt"
	"os"

	"github.com/golang/glog"
)

// DepFile names the .d output of a compile. It is either an on-disk
// artifact or a virtual exec path whose contents only ever exist as
// an in-memory executor reply. Each constructor sets exactly one of
// the two; the zero DepFile has neither and means no .d output.
type DepFile struct {
	artifact *Artifact
	virtual  Path
}

// DepFileArtifact returns a DepFile backed by the on-disk artifact a.
func DepFileArtifact(a Artifact) DepFile {
	return DepFile{artifact: &a}
}

// DepFileVirtual returns a DepFile that exists only as an executor
// reply, addressed as execPath on the compiler command line.
func DepFileVirtual(execPath Path) DepFile {
	return DepFile{virtual: execPath}
}

// ExecPath returns the path the compiler writes the .d to.
func (d DepFile) ExecPath() Path {
	if d.artifact != nil {
		return d.artifact.ExecPath()
	}
	return d.virtual
}

// Artifact returns the on-disk artifact, if the DepFile has one.
func (d DepFile) Artifact() (Artifact, bool) {
	if d.artifact == nil {
		return Artifact{}, false
	}
	return *d.artifact, true
}

func (d DepFile) isZero() bool {
	return d.artifact == nil && d.virtual.IsEmpty()
}

// DepSet is the ordered dependency list parsed out of a .d payload.
// Order is first seen; duplicates are preserved.
type DepSet struct {
	deps []Path
}

// Paths returns the dependencies in parse order.
func (d *DepSet) Paths() []Path { return d.deps }

func (d *DepSet) Len() int { return len(d.deps) }

var errDepFileNoRule = errors.New("no rule found in dependency file")

// ParseDepSet parses a Make-style dependency payload. The input is
// one or more rules of the form "target: dep dep ..."; backslash
// newline (also backslash CR LF) continues a line, whitespace
// separates words, "\ " escapes a space inside a path, and target
// columns are ignored. Dependencies from multiple rules concatenate.
func ParseDepSet(buf []byte) (*DepSet, error) {
	ds := &DepSet{}
	sawRule := false
	pos := 0
	for pos < len(buf) {
		line, next := depLine(buf, pos)
		pos = next
		words := depWords(line)
		if len(words) == 0 {
			continue
		}
		sep := -1
		for i, w := range words {
			if w.endsRule {
				sep = i
				break
			}
		}
		if sep < 0 {
			if !sawRule {
				return nil, errDepFileNoRule
			}
			// Continuation-free dep line of the previous rule does
			// not happen in compiler output; treat it as malformed.
			return nil, fmt.Errorf("dependency file: unexpected line %q", string(line))
		}
		sawRule = true
		for _, w := range words[sep+1:] {
			ds.deps = append(ds.deps, NewPath(w.text))
		}
	}
	if !sawRule {
		return nil, errDepFileNoRule
	}
	glog.V(2).Infof("depfile: %d deps", len(ds.deps))
	stats.depFilesParsed.Add(1)
	return ds, nil
}

// ParseDepSetFile reads and parses the .d file at path.
func ParseDepSetFile(path string) (*DepSet, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ds, err := ParseDepSet(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return ds, nil
}

// depLine returns the logical line starting at pos with backslash
// newline continuations folded into spaces, and the offset of the
// following line.
func depLine(buf []byte, pos int) ([]byte, int) {
	var line []byte
	i := pos
	for i < len(buf) {
		c := buf[i]
		if c == '\\' {
			if i+1 < len(buf) && buf[i+1] == '\n' {
				line = append(line, ' ')
				i += 2
				continue
			}
			if i+2 < len(buf) && buf[i+1] == '\r' && buf[i+2] == '\n' {
				line = append(line, ' ')
				i += 3
				continue
			}
			if i+1 < len(buf) {
				line = append(line, c, buf[i+1])
				i += 2
				continue
			}
			line = append(line, c)
			i++
			continue
		}
		if c == '\n' {
			return line, i + 1
		}
		if c == '\r' {
			i++
			continue
		}
		line = append(line, c)
		i++
	}
	return line, i
}

type depWord struct {
	text     string
	endsRule bool // word is, or ends with, an unescaped ':'
}

// depWords splits a logical line into whitespace separated words,
// honoring "\ " escapes and unescaping the characters Make output
// escapes ("\ ", "\<tab>", "\#", "\:", "$$").
func depWords(line []byte) []depWord {
	var words []depWord
	var cur []byte
	endsRule := false
	flush := func() {
		if len(cur) == 0 && !endsRule {
			return
		}
		words = append(words, depWord{text: string(cur), endsRule: endsRule})
		cur = nil
		endsRule = false
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			flush()
		case c == '\\' && i+1 < len(line):
			n := line[i+1]
			if n == ' ' || n == '\t' || n == '#' || n == ':' {
				cur = append(cur, n)
				i++
			} else {
				cur = append(cur, c)
			}
		case c == '$' && i+1 < len(line) && line[i+1] == '$':
			cur = append(cur, '$')
			i++
		case c == ':':
			// A bare ":" or a trailing ":" closes the target column.
			if i+1 >= len(line) || line[i+1] == ' ' || line[i+1] == '\t' {
				endsRule = true
				flush()
			} else {
				cur = append(cur, c)
			}
		default:
			cur = append(cur, c)
		}
	}
	flush()
	return words
}
