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
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"
)

// Features recognized by the command line assembler.
const (
	FeatureParseHeaders      = "parse_headers"
	FeaturePreprocessHeaders = "preprocess_headers"
)

// FeatureSet is the set of toolchain features enabled for an action.
type FeatureSet map[string]bool

// NewFeatureSet returns a set with the given features enabled.
func NewFeatureSet(names ...string) FeatureSet {
	fs := make(FeatureSet, len(names))
	for _, n := range names {
		fs[n] = true
	}
	return fs
}

// Enabled reports whether name is in the set.
func (fs FeatureSet) Enabled(name string) bool { return fs[name] }

// Tool names an executable the toolchain provides.
type Tool string

const (
	ToolGCC Tool = "gcc"
	ToolLd  Tool = "ld"
)

// PerFileCopt is a block of extra compiler options applied to every
// source whose label or exec path matches the filter.
type PerFileCopt struct {
	Filter *regexp.Regexp
	Opts   []string
}

// Matches reports whether the block applies to the given source.
func (p PerFileCopt) Matches(label Label, source Path) bool {
	return p.Filter.MatchString(string(label)) || p.Filter.MatchString(source.String())
}

// BuildConfig is the layered toolchain and build configuration a
// compile action reads. Implementations are immutable.
type BuildConfig interface {
	ShouldScanIncludes() bool
	UseFission() bool
	CodeCoverageEnabled() bool
	BuiltInIncludeDirectories() []Path
	CompilerOptions(features FeatureSet) []string
	COptions() []string
	CxxOptions(features FeatureSet) []string
	UnfilteredCompilerOptions(features FeatureSet) []string
	CWarns() []string
	PerFileCopts() []PerFileCopt
	ToolPath(tool Tool) string
	LdExecutable() string
	DefaultShellEnvironment() map[string]string
}

// Toolchain is a BuildConfig loaded from a TOML definition file.
type Toolchain struct {
	def toolchainDef
}

type toolchainDef struct {
	ScanIncludes bool `toml:"scan_includes"`
	Fission      bool `toml:"fission"`
	Coverage     bool `toml:"coverage"`

	BuiltInIncludeDirs []string          `toml:"builtin_include_dirs"`
	CompilerOpts       []string          `toml:"compiler_opts"`
	COpts              []string          `toml:"c_opts"`
	CxxOpts            []string          `toml:"cxx_opts"`
	UnfilteredOpts     []string          `toml:"unfiltered_opts"`
	Warns              []string          `toml:"c_warns"`
	Tools              map[string]string `toml:"tools"`
	Env                map[string]string `toml:"env"`

	PerFileCopts []perFileCoptDef `toml:"per_file_copt"`
}

type perFileCoptDef struct {
	Filter string   `toml:"filter"`
	Opts   []string `toml:"opts"`
}

// LoadToolchain reads a toolchain definition from a TOML file.
func LoadToolchain(path string) (*Toolchain, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseToolchain(buf)
}

// ParseToolchain parses a TOML toolchain definition.
func ParseToolchain(buf []byte) (*Toolchain, error) {
	var def toolchainDef
	if err := toml.Unmarshal(buf, &def); err != nil {
		return nil, fmt.Errorf("toolchain: %v", err)
	}
	for _, p := range def.PerFileCopts {
		if _, err := regexp.Compile(p.Filter); err != nil {
			return nil, fmt.Errorf("toolchain: per_file_copt filter %q: %v", p.Filter, err)
		}
	}
	glog.V(1).Infof("toolchain: %d compiler opts, %d per-file blocks",
		len(def.CompilerOpts), len(def.PerFileCopts))
	return &Toolchain{def: def}, nil
}

func (t *Toolchain) ShouldScanIncludes() bool  { return t.def.ScanIncludes }
func (t *Toolchain) UseFission() bool          { return t.def.Fission }
func (t *Toolchain) CodeCoverageEnabled() bool { return t.def.Coverage }

func (t *Toolchain) BuiltInIncludeDirectories() []Path {
	return toPaths(t.def.BuiltInIncludeDirs)
}

func (t *Toolchain) CompilerOptions(features FeatureSet) []string { return t.def.CompilerOpts }
func (t *Toolchain) COptions() []string                           { return t.def.COpts }
func (t *Toolchain) CxxOptions(features FeatureSet) []string      { return t.def.CxxOpts }

func (t *Toolchain) UnfilteredCompilerOptions(features FeatureSet) []string {
	return t.def.UnfilteredOpts
}

func (t *Toolchain) CWarns() []string { return t.def.Warns }

func (t *Toolchain) PerFileCopts() []PerFileCopt {
	copts := make([]PerFileCopt, 0, len(t.def.PerFileCopts))
	for _, p := range t.def.PerFileCopts {
		copts = append(copts, PerFileCopt{
			Filter: regexp.MustCompile(p.Filter),
			Opts:   p.Opts,
		})
	}
	return copts
}

func (t *Toolchain) ToolPath(tool Tool) string {
	if p, ok := t.def.Tools[string(tool)]; ok {
		return p
	}
	return string(tool)
}

func (t *Toolchain) LdExecutable() string { return t.ToolPath(ToolLd) }

func (t *Toolchain) DefaultShellEnvironment() map[string]string {
	env := map[string]string{"PATH": "/bin:/usr/bin"}
	for k, v := range t.def.Env {
		env[k] = v
	}
	return env
}

func toPaths(ss []string) []Path {
	ps := make([]Path, 0, len(ss))
	for _, s := range ss {
		ps = append(ps, NewPath(s))
	}
	return ps
}
