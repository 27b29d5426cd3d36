package cli

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stated/internal/store"
	"github.com/roach88/stated/internal/testutil"
)

func TestGenerate_WritesOutputs(t *testing.T) {
	p := newTestProject(t, map[string]string{"door/door.go": doorTemplate})

	out, err := p.execute(t, "generate", p.path("door"))
	require.NoError(t, err)
	assert.Contains(t, out, p.path("door/door.go")+" -> "+p.path("door/door_stated.go"))
	assert.Contains(t, out, "✓ 1 generated, 0 up to date")

	generated := testutil.ReadFile(t, p.path("door/door_stated.go"))
	assert.Contains(t, generated, "// Code generated by stated. DO NOT EDIT.")
	assert.Contains(t, generated, "//go:build !stated")
	assert.FileExists(t, p.path("cache.db"))
}

func TestGenerate_SecondRunIsCached(t *testing.T) {
	p := newTestProject(t, map[string]string{"door/door.go": doorTemplate})

	_, err := p.execute(t, "generate", p.path("door"))
	require.NoError(t, err)

	out, err := p.execute(t, "generate", p.path("door"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 0 generated, 1 up to date")

	out, err = p.execute(t, "generate", "--force", p.path("door"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 generated, 0 up to date")
}

func TestGenerate_RegeneratesChangedInputs(t *testing.T) {
	p := newTestProject(t, map[string]string{"door/door.go": doorTemplate})
	_, err := p.execute(t, "generate", p.path("door"))
	require.NoError(t, err)

	// Edited output.
	require.NoError(t, os.WriteFile(p.path("door/door_stated.go"), []byte("package door\n"), 0o644))
	out, err := p.execute(t, "generate", p.path("door"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 generated, 0 up to date")
	assert.Contains(t, testutil.ReadFile(t, p.path("door/door_stated.go")), "Code generated by stated")

	// Edited template.
	require.NoError(t, os.WriteFile(p.path("door/door.go"), []byte(doorTemplate+"\n// Doors are wooden.\n"), 0o644))
	out, err = p.execute(t, "generate", p.path("door"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 generated, 0 up to date")
}

func TestGenerate_Diagnostics(t *testing.T) {
	p := newTestProject(t, map[string]string{
		"door/door.go": doorTemplate,
		"flag/flag.go": flagTemplate,
	})

	out, err := p.execute(t, "generate", p.root+"/...")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "E134")
	assert.Contains(t, out, "E134")
	assert.NoFileExists(t, p.path("flag/flag_stated.go"))
	// Valid packages are still generated.
	assert.FileExists(t, p.path("door/door_stated.go"))
}

func TestGenerate_JSON(t *testing.T) {
	p := newTestProject(t, map[string]string{"door/door.go": doorTemplate})

	out, err := p.execute(t, "generate", "--format", "json", p.path("door"))
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		RunID  string         `json:"run_id"`
		Data   GenerateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, resp.RunID, resp.Data.RunID)
	require.Len(t, resp.Data.Files, 1)
	assert.Equal(t, store.StatusGenerated, resp.Data.Files[0].Status)
	assert.Empty(t, resp.Data.Warnings)
}

const lockTemplate = "//go:build stated\n\npackage lock\n\n//stated:struct states(Held)\ntype Lock[S /*stated*/ any] struct{}\n"

func TestGenerate_RemovesOrphanedOutputs(t *testing.T) {
	p := newTestProject(t, map[string]string{
		"door/door.go": doorTemplate,
		"lock/lock.go": lockTemplate,
	})
	_, err := p.execute(t, "generate", p.root+"/...")
	require.NoError(t, err)
	require.FileExists(t, p.path("door/door_stated.go"))

	require.NoError(t, os.Remove(p.path("door/door.go")))
	out, err := p.execute(t, "generate", p.root+"/...")
	require.NoError(t, err)
	assert.Contains(t, out, p.path("door/door_stated.go")+" removed")
	assert.Contains(t, out, "✓ 0 generated, 1 up to date, 1 removed")
	assert.NoFileExists(t, p.path("door/door_stated.go"))
	assert.FileExists(t, p.path("lock/lock_stated.go"))

	out, err = p.execute(t, "generate", p.root+"/...")
	require.NoError(t, err)
	assert.NotContains(t, out, "removed")
}

func TestGenerate_KeepsEditedOrphans(t *testing.T) {
	p := newTestProject(t, map[string]string{
		"door/door.go": doorTemplate,
		"lock/lock.go": lockTemplate,
	})
	_, err := p.execute(t, "generate", p.root+"/...")
	require.NoError(t, err)

	// The template stops being a template and its output was taken over.
	require.NoError(t, os.WriteFile(p.path("door/door.go"), []byte("package door\n"), 0o644))
	require.NoError(t, os.WriteFile(p.path("door/door_stated.go"), []byte("package door\n\n// Kept.\n"), 0o644))
	out, err := p.execute(t, "generate", p.root+"/...")
	require.NoError(t, err)
	assert.NotContains(t, out, "removed")
	assert.FileExists(t, p.path("door/door_stated.go"))
}

func TestGenerate_NoCache(t *testing.T) {
	p := newTestProject(t, map[string]string{"door/door.go": doorTemplate})

	out, err := p.execute(t, "generate", "--no-cache", p.path("door"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 generated")
	assert.NoFileExists(t, p.path("cache.db"))

	out, err = p.execute(t, "generate", "--no-cache", p.path("door"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 generated, 0 up to date")
}

func TestGenerate_Errors(t *testing.T) {
	p := newTestProject(t, map[string]string{"plain/plain.go": "package plain\n"})

	_, err := p.execute(t, "generate", p.path("missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)

	_, err = p.execute(t, "generate", p.path("plain"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)

	require.NoError(t, os.WriteFile(p.config, []byte(`colour: "red"`), 0o644))
	_, err = p.execute(t, "generate", p.path("plain"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeConfig)
}

func TestGenerate_ConfiguredSuffix(t *testing.T) {
	p := newTestProject(t, map[string]string{"door/door.go": doorTemplate})
	require.NoError(t, os.WriteFile(p.config, []byte("cache: \"cache.db\"\nsuffix: \"gen\"\n"), 0o644))

	_, err := p.execute(t, "generate", p.path("door"))
	require.NoError(t, err)
	assert.FileExists(t, p.path("door/door_gen.go"))
}
