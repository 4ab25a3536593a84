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

// ccaction drives one C/C++ compile action: it assembles the
// compiler command line from a toolchain definition and a declared
// inclusion policy, runs it locally, then checks the discovered
// headers against the policy.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/ccaction"
)

var (
	toolchainFlag string
	sourceFlag    string
	outputFlag    string
	dotdFlag      string
	gcnoFlag      string
	dwoFlag       string

	ownerFlag       string
	sourceLabelFlag string

	quoteDirs    string
	includeDirs  string
	systemDirs   string
	declaredDirs string
	warnDirs     string
	declaredSrcs string
	sysPrefixes  string
	defines      string
	copts        string
	pluginOpts   string
	featureNames string

	moduleMapFlag  string
	moduleNameFlag string
	enableModules  bool

	fdoStamp string
	execRoot string

	dryRunFlag    bool
	fakeFlag      bool
	dumpExtraFlag bool
	echoFlag      bool

	cacheFile string
	useCache  bool
)

func init() {
	flag.StringVar(&toolchainFlag, "toolchain", "", "toolchain definition TOML `file`")
	flag.StringVar(&sourceFlag, "source", "", "source file to compile, relative to the exec root")
	flag.StringVar(&outputFlag, "output", "", "object file to write")
	flag.StringVar(&dotdFlag, "dotd", "", "dependency (.d) file the compiler writes")
	flag.StringVar(&gcnoFlag, "gcno", "", "coverage notes output")
	flag.StringVar(&dwoFlag, "dwo", "", "fission debug output")

	flag.StringVar(&ownerFlag, "owner", "//:ccaction", "owning rule label")
	flag.StringVar(&sourceLabelFlag, "source_label", "", "label of the source file")

	flag.StringVar(&quoteDirs, "iquote", "", "space separated quote include dirs")
	flag.StringVar(&includeDirs, "I", "", "space separated user include dirs")
	flag.StringVar(&systemDirs, "isystem", "", "space separated system include dirs")
	flag.StringVar(&declaredDirs, "declared_dirs", "", "space separated declared include dirs (trailing /** declares the subtree)")
	flag.StringVar(&warnDirs, "warn_dirs", "", "space separated declared include warn dirs")
	flag.StringVar(&declaredSrcs, "declared_srcs", "", "space separated declared include srcs")
	flag.StringVar(&sysPrefixes, "system_prefixes", "", "space separated extra system include prefixes")
	flag.StringVar(&defines, "D", "", "space separated defines")
	flag.StringVar(&copts, "copt", "", "space separated extra compiler options")
	flag.StringVar(&pluginOpts, "plugin_opt", "", "space separated plugin options")
	flag.StringVar(&featureNames, "features", "", "space separated toolchain features")

	flag.StringVar(&moduleMapFlag, "module_map", "", "module map file")
	flag.StringVar(&moduleNameFlag, "module_name", "", "module name")
	flag.BoolVar(&enableModules, "modules", false, "enable clang modules")

	flag.StringVar(&fdoStamp, "fdo_stamp", "", "FDO build stamp")
	flag.StringVar(&execRoot, "exec_root", ".", "execution root directory")

	flag.BoolVar(&dryRunFlag, "n", false, "Only print the command that would be executed")
	flag.BoolVar(&fakeFlag, "fake", false, "Write the command line to the output instead of compiling")
	flag.BoolVar(&dumpExtraFlag, "dump_extra", false, "Print the extra-action record as JSON")
	flag.BoolVar(&echoFlag, "echo", false, "Echo the command before running it")

	flag.StringVar(&cacheFile, "cache", "", "action input cache `file` (JSON)")
	flag.BoolVar(&useCache, "use_cache", false, "Restore inputs from the cache before executing")

	flag.BoolVar(&ccaction.StatsFlag, "ccaction_stats", false, "Show a bunch of statistics")
	flag.BoolVar(&ccaction.DebugValidationFlag, "debug_validation", false, "Dump validator state on violations")
	flag.BoolVar(&ccaction.VerboseFailuresFlag, "verbose_failures", false, "Include underlying causes in failures")
}

func fields(s string) []string {
	return strings.Fields(s)
}

func paths(s string) []ccaction.Path {
	var ps []ccaction.Path
	for _, f := range fields(s) {
		ps = append(ps, ccaction.NewPath(f))
	}
	return ps
}

// fsResolver resolves any path that exists under the exec root as a
// source artifact.
type fsResolver struct {
	root ccaction.Root
}

func (r fsResolver) ResolveSourceArtifact(execPath ccaction.Path) (ccaction.Artifact, bool) {
	a := ccaction.NewArtifact(r.root, execPath)
	if _, err := os.Stat(a.Path().String()); err != nil {
		return ccaction.Artifact{}, false
	}
	return a, true
}

// printEvents writes diagnostics the way a compiler driver would.
type printEvents struct{}

func (printEvents) Handle(ev ccaction.Event) {
	fmt.Fprintf(os.Stderr, "%s: %s: %s\n", ev.Location, strings.ToLower(ev.Kind.String()), ev.Message)
}

func main() {
	flag.Parse()
	err := run()
	ccaction.DumpStats()
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
}

func run() error {
	if sourceFlag == "" || outputFlag == "" {
		return fmt.Errorf("both -source and -output are required")
	}

	var config ccaction.BuildConfig
	if toolchainFlag != "" {
		tc, err := ccaction.LoadToolchain(toolchainFlag)
		if err != nil {
			return err
		}
		config = tc
	} else {
		tc, err := ccaction.ParseToolchain(nil)
		if err != nil {
			return err
		}
		config = tc
	}

	root, err := filepath.Abs(execRoot)
	if err != nil {
		return err
	}
	rootPath := ccaction.NewPath(root)
	sourceRoot := ccaction.NewSourceRoot(rootPath)
	derivedRoot := ccaction.NewDerivedRoot(rootPath, ccaction.NewPath(""))

	srcs := make([]ccaction.Artifact, 0)
	for _, p := range paths(declaredSrcs) {
		srcs = append(srcs, ccaction.NewArtifact(sourceRoot, p))
	}

	var moduleMap *ccaction.ModuleMap
	if moduleMapFlag != "" {
		mm := ccaction.NewArtifact(sourceRoot, ccaction.NewPath(moduleMapFlag))
		name := moduleNameFlag
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(moduleMapFlag), ".cppmap")
		}
		moduleMap = ccaction.NewModuleMap(mm, name)
	}

	cctx := ccaction.NewCompilationContext(ccaction.ContextData{
		QuoteIncludeDirs:        paths(quoteDirs),
		IncludeDirs:             paths(includeDirs),
		SystemIncludeDirs:       paths(systemDirs),
		DeclaredIncludeDirs:     paths(declaredDirs),
		DeclaredIncludeWarnDirs: paths(warnDirs),
		DeclaredIncludeSrcs:     srcs,
		Defines:                 fields(defines),
		ModuleMap:               moduleMap,
	})

	source := ccaction.NewArtifact(sourceRoot, ccaction.NewPath(sourceFlag))
	output := ccaction.NewArtifact(derivedRoot, ccaction.NewPath(outputFlag))

	opt := ccaction.CompileActionOpt{
		Owner:       ccaction.Label(ownerFlag),
		Features:    ccaction.NewFeatureSet(fields(featureNames)...),
		Source:      source,
		SourceLabel: ccaction.Label(sourceLabelFlag),
		Output:      output,
		Config:      config,
		Context:     cctx,
		Copts:       fields(copts),
		PluginOpts:  fields(pluginOpts),

		ExtraSystemIncludePrefixes: paths(sysPrefixes),
		EnableModules:              enableModules,
		FdoBuildStamp:              fdoStamp,
	}
	if dotdFlag != "" {
		opt.Dotd = ccaction.DepFileArtifact(ccaction.NewArtifact(derivedRoot, ccaction.NewPath(dotdFlag)))
	}
	if gcnoFlag != "" {
		g := ccaction.NewArtifact(derivedRoot, ccaction.NewPath(gcnoFlag))
		opt.GcnoFile = &g
	}
	if dwoFlag != "" {
		d := ccaction.NewArtifact(derivedRoot, ccaction.NewPath(dwoFlag))
		opt.DwoFile = &d
	}
	if fakeFlag {
		opt.Variant = ccaction.VariantFakeCompile
	}

	a := ccaction.NewCompileAction(opt)

	if dryRunFlag {
		fmt.Println(strings.Join(a.Argv(), " "))
		return nil
	}

	resolver := fsResolver{root: sourceRoot}

	var cache *ccaction.InputCache
	if cacheFile != "" {
		cache, err = ccaction.JSON.Load(cacheFile)
		if err != nil {
			return err
		}
		if useCache {
			cache.Restore(a, resolver)
		}
	}

	ec := ccaction.ExecContext{
		Executor: &ccaction.LocalExecutor{ExecRoot: root, Echo: echoFlag},
		Resolver: resolver,
		Events:   printEvents{},
		ExecRoot: rootPath,
	}
	if err := a.Execute(context.Background(), ec); err != nil {
		return err
	}

	if dumpExtraFlag {
		o, err := json.MarshalIndent(a.ExtraAction(), "", " ")
		if err != nil {
			return err
		}
		fmt.Println(string(o))
	}

	if cache != nil {
		cache.Record(a)
		if err := ccaction.JSON.Save(cache, cacheFile); err != nil {
			return err
		}
	}
	return nil
}
