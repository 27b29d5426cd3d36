package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/roach88/stated/internal/testutil"
)

const doorTemplate = `//go:build stated

package door

//stated:struct states(Locked) preset(Locked)
type Door[S /*stated*/ any] struct {
	name string
}

//stated:op
func (Door[S /*stated*/]) NewDoor(name string) Door[_] {
	return Door[_]{name: name}
}

//stated:op assert(Locked) delete(Locked)
func (d Door[S /*stated*/]) Unlock() Door[_] {
	return _
}

//stated:op reject(Locked) assign(Locked)
func (d Door[S /*stated*/]) Lock() Door[_] {
	return _
}
`

const flagTemplate = `//go:build stated

package flag

//stated:struct states(Set)
type Flag[S /*stated*/ any] struct{}

//stated:op assert(Set) assign(Set)
func (f Flag[S /*stated*/]) Again() Flag[_] {
	return _
}
`

// testProject is a temporary project with its own stated.cue, so the
// cache stays inside the test directory.
type testProject struct {
	root   string
	config string
}

func newTestProject(t *testing.T, files map[string]string) *testProject {
	t.Helper()
	root := t.TempDir()
	all := map[string]string{
		"stated.cue": "cache: \"cache.db\"\n",
	}
	for name, content := range files {
		all[name] = content
	}
	testutil.WriteFiles(t, root, all)
	return &testProject{root: root, config: filepath.Join(root, "stated.cue")}
}

func (p *testProject) path(name string) string {
	return filepath.Join(p.root, filepath.FromSlash(name))
}

// execute runs the root command with --config set and returns stdout.
func (p *testProject) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--config", p.config))
	err := cmd.Execute()
	return out.String(), err
}
