package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_Text(t *testing.T) {
	p := newTestProject(t, map[string]string{"door/door.go": doorTemplate})

	out, err := p.execute(t, "graph", p.path("door"))
	require.NoError(t, err)
	assert.Contains(t, out, "Door states(Locked)")
	assert.Contains(t, out, "--NewDoor--> [Locked]")
	assert.Contains(t, out, "[Locked] --Unlock--> [none]")
	assert.Contains(t, out, "[none] --Lock--> [Locked]")
	assert.NoFileExists(t, p.path("door/door_stated.go"))
}

func TestGraph_DOT(t *testing.T) {
	p := newTestProject(t, map[string]string{"door/door.go": doorTemplate})

	out, err := p.execute(t, "graph", "--dot", p.path("door"))
	require.NoError(t, err)
	assert.Contains(t, out, `digraph "Door" {`)
	assert.Contains(t, out, "start [shape=point];")
	assert.Contains(t, out, `[label="Unlock"];`)
}

func TestGraph_JSON(t *testing.T) {
	p := newTestProject(t, map[string]string{"door/door.go": doorTemplate})

	out, err := p.execute(t, "graph", "--format", "json", p.path("door"))
	require.NoError(t, err)

	var resp struct {
		Data struct {
			Structs []struct {
				Struct string `json:"struct"`
				Nodes  []struct {
					Enabled []string `json:"enabled"`
				} `json:"nodes"`
				Cycles [][]string `json:"cycles"`
			} `json:"structs"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Structs, 1)
	g := resp.Data.Structs[0]
	assert.Equal(t, "Door", g.Struct)
	assert.Len(t, g.Nodes, 2)
	assert.NotEmpty(t, g.Cycles, "lock and unlock form a cycle")
}
