package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideagraph/semnet/internal/db"
	"ideagraph/semnet/internal/network"
)

func setupStore(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	ctx := context.Background()
	for _, o := range []struct{ id, title, content string }{
		{"a1b2c3d4-0001", "Solar roofs", "Panels on every roof"},
		{"a1b2c3d4-0002", "Solar farms", "Fields of panels"},
		{"ffee0011-0003", "Wind turbines", "Offshore wind"},
	} {
		_, err := d.UpsertObject(ctx, "idea", o.title, db.UpsertObjectOpts{ID: o.id, Content: o.content})
		require.NoError(t, err)
	}
	return d
}

func TestResolveObject(t *testing.T) {
	d := setupStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		ref     string
		wantID  string
		wantErr string
	}{
		{"exact id", "ffee0011-0003", "ffee0011-0003", ""},
		{"unique prefix", "ffee00", "ffee0011-0003", ""},
		{"ambiguous prefix", "a1b2c3", "", "ambiguous"},
		{"title search", "turbines", "ffee0011-0003", ""},
		{"unknown", "geothermal", "", "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ResolveObject(ctx, d, "idea", tt.ref)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, obj.ID)
		})
	}
}

func TestResolveObject_WrongType(t *testing.T) {
	d := setupStore(t)

	_, err := ResolveObject(context.Background(), d, "note", "ffee0011-0003")
	assert.Error(t, err)
}

func TestIsHexDash(t *testing.T) {
	assert.True(t, isHexDash("a1b2-C3D4"))
	assert.False(t, isHexDash("solar"))
}

func TestTruncTitle(t *testing.T) {
	assert.Equal(t, "short", truncTitle("short", 10))
	assert.Equal(t, "abc...", truncTitle("abcdef", 3))
	// "é" is two bytes; cutting through it must not leave a broken rune
	assert.Equal(t, "ab...", truncTitle("abé", 3))
}

func TestPrintNetwork(t *testing.T) {
	lvl1, lvl2 := 1, 2
	s1, s2 := 0.91, 0.72
	res := &network.Result{
		Success: true,
		Nodes: []network.Node{
			{ID: "seed", Type: "idea", IsSource: true, Properties: map[string]any{"title": "Solar roofs"}},
			{ID: "n1", Type: "idea", Level: &lvl1, Similarity: &s1, Properties: map[string]any{"title": "Solar farms"}},
			{ID: "n2", Type: "note", Level: &lvl2, Similarity: &s2, Properties: map[string]any{"title": "Grid storage"}},
			{ID: "p", Type: "project", IsParent: true, Properties: map[string]any{"title": "Energy"}},
		},
		Levels: map[int]network.LevelSummary{
			1: {Level: 1, Threshold: 0.8, NodeCount: 1, Summary: "Solar generation."},
			2: {Level: 2, Threshold: 0.7, NodeCount: 1},
			3: {Level: 3, Threshold: 0.6},
		},
		Warnings: []string{"query for idea:n2 failed: timeout"},
	}

	var buf bytes.Buffer
	printNetwork(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "Network for: Solar roofs")
	assert.Contains(t, out, "LEVEL 1  (similarity >= 0.80, 1 nodes)")
	assert.Contains(t, out, "0.910  [idea] n1  Solar farms")
	assert.Contains(t, out, "Solar generation.")
	assert.Contains(t, out, "LEVEL 3")
	assert.Contains(t, out, "Energy  (parent)")
	assert.Contains(t, out, "1 warning(s)")
}
