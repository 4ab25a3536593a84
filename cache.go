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
	"encoding/gob"
	"encoding/json"
	"os"
	"sync"

	"github.com/golang/glog"
)

// InputCache persists the discovered input set of executed actions,
// keyed by action key, so a later build can restore live inputs
// without re-executing. Safe for concurrent use.
type InputCache struct {
	mu      sync.Mutex
	entries map[string][]string // action key -> exec paths
}

// NewInputCache returns an empty cache.
func NewInputCache() *InputCache {
	return &InputCache{entries: make(map[string][]string)}
}

// Record stores the action's current live input set under its key.
func (c *InputCache) Record(a *CompileAction) {
	key := a.Key()
	var paths []string
	for _, in := range a.Inputs() {
		paths = append(paths, in.ExecPath().String())
	}
	c.mu.Lock()
	c.entries[key] = paths
	c.mu.Unlock()
}

// Restore rebuilds the action's live input set from a persisted
// entry, if one exists. Restoration goes through the relaxed
// UpdateInputsFromCache path: unresolvable paths are dropped.
func (c *InputCache) Restore(a *CompileAction, resolver ArtifactResolver) bool {
	c.mu.Lock()
	paths, ok := c.entries[a.Key()]
	c.mu.Unlock()
	if !ok {
		return false
	}
	execPaths := make([]Path, 0, len(paths))
	for _, p := range paths {
		execPaths = append(execPaths, NewPath(p))
	}
	a.UpdateInputsFromCache(resolver, execPaths)
	glog.V(1).Infof("restored %d inputs for %s", len(execPaths), a.Source().ExecPath())
	return true
}

// InputCacheLoadSaver loads and saves an InputCache.
type InputCacheLoadSaver interface {
	Save(c *InputCache, filename string) error
	Load(filename string) (*InputCache, error)
}

// JSON is a json loader/saver.
var JSON InputCacheLoadSaver

// GOB is a gob loader/saver.
var GOB InputCacheLoadSaver

func init() {
	JSON = jsonLoadSaver{}
	GOB = gobLoadSaver{}
}

type jsonLoadSaver struct{}
type gobLoadSaver struct{}

func (jsonLoadSaver) Save(c *InputCache, filename string) error {
	c.mu.Lock()
	o, err := json.MarshalIndent(c.entries, "", " ")
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(filename, o, 0666)
}

func (jsonLoadSaver) Load(filename string) (*InputCache, error) {
	buf, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		// First build.
		return NewInputCache(), nil
	}
	if err != nil {
		return nil, err
	}
	c := NewInputCache()
	if err := json.Unmarshal(buf, &c.entries); err != nil {
		return nil, err
	}
	return c, nil
}

func (gobLoadSaver) Save(c *InputCache, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	c.mu.Lock()
	err = gob.NewEncoder(f).Encode(c.entries)
	c.mu.Unlock()
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (gobLoadSaver) Load(filename string) (*InputCache, error) {
	f, err := os.Open(filename)
	if os.IsNotExist(err) {
		return NewInputCache(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c := NewInputCache()
	if err := gob.NewDecoder(f).Decode(&c.entries); err != nil {
		return nil, err
	}
	return c, nil
}
