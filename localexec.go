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
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/golang/glog"
)

// LocalExecutor runs the assembled command line on the local
// machine. The .d file stays on disk, so ExecWithReply always
// returns a nil reply and the updater reads the dotd artifact.
type LocalExecutor struct {
	// ExecRoot is the working directory of the compiler process.
	ExecRoot string
	// Stdout and Stderr receive the compiler's output; nil means
	// the process's own streams.
	Stdout io.Writer
	Stderr io.Writer
	// Echo prints each command before running it.
	Echo bool
}

// ExecWithReply invokes the compiler. Interruption propagates from
// ctx; a killed compile leaves partial outputs on disk.
func (e *LocalExecutor) ExecWithReply(ctx context.Context, a *CompileAction) (Reply, error) {
	argv := a.Argv()
	if e.Echo {
		fmt.Printf("%s\n", argv)
	}
	glog.V(1).Infof("local exec: %q", argv)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = e.ExecRoot
	for k, v := range a.Environment() {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return nil, nil
}

func (e *LocalExecutor) StrategyLocality() string   { return "local" }
func (e *LocalExecutor) NeedsIncludeScanning() bool { return false }

func (e *LocalExecutor) EstimateResourceConsumption(a *CompileAction) ResourceSet {
	return ResourceSet{MemoryMB: 200, CPU: 0.5, IO: 0}
}

func (e *LocalExecutor) ScannedIncludeFiles(ctx context.Context, a *CompileAction) []string {
	return nil
}

// bufferReply is an in-memory dependency payload, the form remote
// strategies hand back.
type bufferReply struct {
	buf []byte
}

// NewReply wraps buf as a Reply.
func NewReply(buf []byte) Reply {
	return &bufferReply{buf: buf}
}

func (r *bufferReply) Contents() []byte { return r.buf }
func (r *bufferReply) Release()         { r.buf = nil }
