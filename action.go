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
	"crypto/sha1"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

// Variant selects the behavioral flavor of a compile action. Each
// variant carries its own UUID which is folded into the action key,
// so variants never collide in the action cache.
type Variant int

const (
	// VariantCompile is the ordinary compile.
	VariantCompile Variant = iota
	// VariantFakeCompile writes the command line to the output
	// instead of running the compiler.
	VariantFakeCompile
)

var variantUUIDs = map[Variant]uuid.UUID{
	VariantCompile:     uuid.MustParse("97493805-894f-4737-9f29-f1aab7b34cf4"),
	VariantFakeCompile: uuid.MustParse("8ab63589-be01-4a39-b770-da48e08b79a7"),
}

// UUID returns the action-class UUID of the variant.
func (v Variant) UUID() uuid.UUID {
	id, ok := variantUUIDs[v]
	if !ok {
		panic(fmt.Sprintf("unknown action variant %d", int(v)))
	}
	return id
}

// ExecContext bundles the shared collaborators an action needs while
// executing. All of them must be safe for concurrent use; they are
// shared across actions.
type ExecContext struct {
	Executor Executor
	Resolver ArtifactResolver
	Expander MiddlemanExpander
	Events   EventHandler
	// ExecRoot is the absolute filesystem path of the execution
	// root. Absolute dependencies under it are normalized to exec
	// paths.
	ExecRoot Path
}

// CompileActionOpt is the constructor input for a CompileAction.
type CompileActionOpt struct {
	Owner       Label
	Features    FeatureSet
	Source      Artifact
	SourceLabel Label

	MandatoryInputs []Artifact
	OptionalInputs  []Artifact

	Output   Artifact
	GcnoFile *Artifact
	DwoFile  *Artifact
	Dotd     DepFile

	Config  BuildConfig
	Context *CompilationContext

	Copts       []string
	PluginOpts  []string
	CoptsFilter func(string) bool

	ExtraSystemIncludePrefixes []Path
	EnableModules              bool
	FdoBuildStamp              string

	IncludeResolver IncludeResolver
	Variant         Variant

	// PackageMarker overrides the BUILD marker probe of the
	// inclusion validator. Nil means stat the filesystem.
	PackageMarker func(dir Path) bool
}

// CompileAction models one C/C++ compile as a pure function of its
// inputs. Everything feeding the action key is frozen at
// construction; the only mutable state afterwards is the live input
// set, which the updater rewrites under the action's own lock. The
// action is thread-compatible: different actions may run
// concurrently, a single action is driven by one goroutine.
type CompileAction struct {
	owner       Label
	features    FeatureSet
	source      Artifact
	sourceLabel Label

	mandatoryInputs []Artifact
	optionalInputs  []Artifact

	output   Artifact
	gcnoFile *Artifact
	dwoFile  *Artifact
	dotd     DepFile

	config BuildConfig
	ctx    *CompilationContext

	copts       []string
	pluginOpts  []string
	coptsFilter func(string) bool

	extraSystemIncludePrefixes []Path
	enableModules              bool
	fdoBuildStamp              string

	includeResolver IncludeResolver
	variant         Variant
	packageMarker   func(dir Path) bool

	mu          sync.Mutex
	inputs      artifactSet
	inputsKnown bool
}

// NewCompileAction builds an action from opt. A C++ header source
// without the parse_headers or preprocess_headers feature is a
// programmer error and panics: such an action must not be
// constructed. The source is always a mandatory input.
func NewCompileAction(opt CompileActionOpt) *CompileAction {
	if isCxxHeaderName(opt.Source.ExecPath().Base()) &&
		!opt.Features.Enabled(FeatureParseHeaders) &&
		!opt.Features.Enabled(FeaturePreprocessHeaders) {
		panic(fmt.Sprintf("header %s compiled without parse_headers or preprocess_headers",
			opt.Source.ExecPath()))
	}
	if opt.Context == nil {
		opt.Context = NewCompilationContext(ContextData{})
	}

	mandatory := opt.MandatoryInputs
	if !newArtifactSet(mandatory).contains(opt.Source) {
		mandatory = append(append([]Artifact(nil), mandatory...), opt.Source)
	}

	a := &CompileAction{
		owner:           opt.Owner,
		features:        opt.Features,
		source:          opt.Source,
		sourceLabel:     opt.SourceLabel,
		mandatoryInputs: mandatory,
		optionalInputs:  opt.OptionalInputs,
		output:          opt.Output,
		gcnoFile:        opt.GcnoFile,
		dwoFile:         opt.DwoFile,
		dotd:            opt.Dotd,
		config:          opt.Config,
		ctx:             opt.Context,
		copts:           opt.Copts,
		pluginOpts:      opt.PluginOpts,
		coptsFilter:     opt.CoptsFilter,

		extraSystemIncludePrefixes: opt.ExtraSystemIncludePrefixes,
		enableModules:              opt.EnableModules,
		fdoBuildStamp:              opt.FdoBuildStamp,
		includeResolver:            opt.IncludeResolver,
		variant:                    opt.Variant,
		packageMarker:              opt.PackageMarker,
	}
	a.inputs = newArtifactSet(a.mandatoryInputs, a.optionalInputs, a.ctx.CompilationPrerequisites())
	a.inputsKnown = !opt.Config.ShouldScanIncludes()
	return a
}

func (a *CompileAction) Owner() Label                 { return a.owner }
func (a *CompileAction) Source() Artifact             { return a.source }
func (a *CompileAction) Output() Artifact             { return a.output }
func (a *CompileAction) Dotd() DepFile                { return a.dotd }
func (a *CompileAction) Context() *CompilationContext { return a.ctx }
func (a *CompileAction) Config() BuildConfig          { return a.config }
func (a *CompileAction) Variant() Variant             { return a.variant }

func (a *CompileAction) MandatoryInputs() []Artifact {
	return a.mandatoryInputs
}

// Inputs returns the live input set ordered by exec path.
func (a *CompileAction) Inputs() []Artifact {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inputs.sorted()
}

// InputsKnown reports whether the live input set reflects the true
// dependencies. False from construction when include scanning is on,
// until the updater succeeds.
func (a *CompileAction) InputsKnown() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inputsKnown
}

// Outputs returns every artifact the action writes.
func (a *CompileAction) Outputs() []Artifact {
	outs := []Artifact{a.output}
	if a.gcnoFile != nil {
		outs = append(outs, *a.gcnoFile)
	}
	if a.dwoFile != nil {
		outs = append(outs, *a.dwoFile)
	}
	if art, ok := a.dotd.Artifact(); ok {
		outs = append(outs, art)
	}
	return outs
}

func (a *CompileAction) String() string {
	return fmt.Sprintf("CompileAction{%s %s -> %s}", a.owner, a.source.ExecPath(), a.output.ExecPath())
}

// Key returns the action's cache fingerprint. It folds, in order:
// the variant UUID, the full command line, the declared include
// dirs, the declared warn dirs, the declared include srcs sorted by
// exec path, and the extra system include prefixes. The command line
// alone determines the compiler output; the rest can flip the
// validator's verdict without changing the command line, and a
// cached result must be invalidated then too. Only fields frozen at
// construction feed the key, so it is stable across input-set
// mutations.
func (a *CompileAction) Key() string {
	h := sha1.New()
	fold := func(s string) {
		io.WriteString(h, s)
		h.Write([]byte{0})
	}
	id := a.variant.UUID()
	h.Write(id[:])
	for _, arg := range a.Argv() {
		fold(arg)
	}
	for _, d := range a.ctx.DeclaredIncludeDirs() {
		fold(d.String())
	}
	for _, d := range a.ctx.DeclaredIncludeWarnDirs() {
		fold(d.String())
	}
	for _, src := range sortedByExecPath(a.ctx.DeclaredIncludeSrcs()) {
		fold(src.ExecPath().String())
	}
	for _, p := range a.extraSystemIncludePrefixes {
		fold(p.String())
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// EstimateResourceConsumption returns the local estimate for this
// action, or delegates to the executor for non-local strategies.
func (a *CompileAction) EstimateResourceConsumption(exec Executor) ResourceSet {
	if exec.StrategyLocality() == "local" {
		return ResourceSet{MemoryMB: 200, CPU: 0.5, IO: 0}
	}
	return exec.EstimateResourceConsumption(a)
}

// Execute runs the compile through the executor, guarantees the
// coverage-notes outputs exist, rebuilds the live input set from the
// discovered dependencies and validates it against the declared
// inclusion policy. The reply buffer is released as soon as the
// updater is done with it. Cancellation propagates from ctx through
// the executor; partially written outputs stay on disk.
func (a *CompileAction) Execute(ctx context.Context, ec ExecContext) error {
	stats.actionsExecuted.Add(1)

	if a.variant == VariantFakeCompile {
		return a.executeFake()
	}

	reply, err := ec.Executor.ExecWithReply(ctx, a)
	if err != nil {
		return &ActionExecError{
			Label: a.owner,
			Msg:   fmt.Sprintf("C++ compilation of rule failed, compiling %s", a.source.ExecPath()),
			Cause: err,
		}
	}

	if err := a.ensureCoverageNotes(); err != nil {
		if reply != nil {
			reply.Release()
		}
		return err
	}

	err = a.UpdateActionInputs(ec.ExecRoot, ec.Resolver, reply)
	if reply != nil {
		reply.Release()
	}
	if err != nil {
		return err
	}

	return a.ValidateInclusions(ec.Expander, ec.Events)
}

// executeFake writes the command line to the output file in place of
// running the compiler.
func (a *CompileAction) executeFake() error {
	cmd := strings.Join(a.Argv(), " ") + "\n"
	if err := os.WriteFile(a.output.Path().String(), []byte(cmd), 0666); err != nil {
		return &ActionExecError{
			Label: a.owner,
			Msg:   fmt.Sprintf("failed to write fake compile output %s", a.output.ExecPath()),
			Cause: err,
		}
	}
	return nil
}

// ensureCoverageNotes creates an empty file for every declared .gcno
// output the compiler did not write. An empty translation unit emits
// no notes file; the output set must stay constant regardless.
func (a *CompileAction) ensureCoverageNotes() error {
	for _, out := range a.Outputs() {
		if !strings.HasSuffix(out.ExecPath().Base(), ".gcno") {
			continue
		}
		path := out.Path().String()
		if _, err := os.Stat(path); err == nil {
			continue
		}
		glog.V(1).Infof("creating empty coverage notes %s", path)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return &ActionExecError{
				Label: a.owner,
				Msg:   fmt.Sprintf("cannot create coverage notes %s", out.ExecPath()),
				Cause: err,
			}
		}
		f.Close()
	}
	return nil
}

// ExtraActionInfo is the observability record emitted alongside the
// action.
type ExtraActionInfo struct {
	Tool              string   `json:"tool"`
	CompilerOptions   []string `json:"compiler_option"`
	OutputFile        string   `json:"output_file"`
	SourceFile        string   `json:"source_file"`
	SourcesAndHeaders []string `json:"sources_and_headers"`
}

// ExtraAction returns the observability record. Before the true
// input set is known it lists only the source and the declared
// include srcs; afterwards, the full live input set.
func (a *CompileAction) ExtraAction() ExtraActionInfo {
	argv := a.Argv()
	info := ExtraActionInfo{
		Tool:            argv[0],
		CompilerOptions: argv[1:],
		OutputFile:      a.output.ExecPath().String(),
		SourceFile:      a.source.ExecPath().String(),
	}
	if a.InputsKnown() {
		for _, in := range a.Inputs() {
			info.SourcesAndHeaders = append(info.SourcesAndHeaders, in.ExecPath().String())
		}
	} else {
		info.SourcesAndHeaders = append(info.SourcesAndHeaders, a.source.ExecPath().String())
		for _, src := range sortedByExecPath(a.ctx.DeclaredIncludeSrcs()) {
			info.SourcesAndHeaders = append(info.SourcesAndHeaders, src.ExecPath().String())
		}
	}
	return info
}
