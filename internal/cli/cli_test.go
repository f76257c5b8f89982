package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jengzang/eventgraph-go/internal/models"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEvents(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,lat,lon,time,injuries\n")
	rows := [][3]float64{
		{0.5, 0.5, 0}, {0.3, 0.2, 1}, {0.1, 0.7, 3},
		{0.5, 1.5, 0}, {0.4, 1.2, 0}, {0.9, 1.8, 2},
		{1.5, 1.5, 1}, {1.2, 1.9, 2}, {1.7, 1.3, 3},
	}
	for i, r := range rows {
		fmt.Fprintf(&b, "e%d,%g,%g,2023-06-0%dT08:00:00Z,%d\n", i, r[0], r[1], int(r[2])+1, i%2)
	}
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestBuild_WritesDataset(t *testing.T) {
	events := writeEvents(t)
	graphPath := filepath.Join(t.TempDir(), "graph.json")

	out, err := run(t, "build", "--events", events,
		"--strategy", "geohash", "--precision", "1",
		"--history", "2", "--horizon", "1", "--graph-out", graphPath, "--summary")
	require.NoError(t, err)

	var doc buildOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.NotNil(t, doc.Dataset)
	assert.Equal(t, 4, doc.Metadata.NumBins)
	assert.Equal(t, 2, doc.Metadata.NumWindows)
	assert.Len(t, doc.Dataset.Windows, 2)
	assert.Equal(t, []int64{0}, doc.Metadata.NodeIDs)
	require.NotNil(t, doc.Summary)
	assert.Equal(t, 1, doc.Summary.Nodes)

	raw, err := os.ReadFile(graphPath)
	require.NoError(t, err)
	var g map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &g))
	assert.Len(t, g["event_node_ids"], 9)
	assert.NotContains(t, g, "events")
}

func TestBuild_Split(t *testing.T) {
	events := writeEvents(t)
	outPath := filepath.Join(t.TempDir(), "out.json")

	_, err := run(t, "build", "--events", events,
		"--strategy", "geohash", "--precision", "1",
		"--history", "1", "--horizon", "1",
		"--train-ratio", "0.5", "--val-ratio", "0.25", "--out", outPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var doc buildOutput
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Nil(t, doc.Dataset)
	assert.Len(t, doc.Train.Windows, 1)
	assert.Len(t, doc.Val.Windows, 0)
	assert.Len(t, doc.Test.Windows, 2)
	assert.Equal(t, models.Layout4D, doc.Train.Layout)
	assert.Nil(t, doc.Summary)
}

func TestBuild_AdjacencyFile(t *testing.T) {
	events := writeEvents(t)
	dir := t.TempDir()
	single := filepath.Join(dir, "single.csv")
	require.NoError(t, os.WriteFile(single, []byte("0\n"), 0o644))
	wrong := filepath.Join(dir, "wrong.csv")
	require.NoError(t, os.WriteFile(wrong, []byte("0,1\n1,0\n"), 0o644))

	out, err := run(t, "build", "--events", events,
		"--strategy", "geohash", "--precision", "1",
		"--history", "2", "--horizon", "1", "--adjacency", single)
	require.NoError(t, err)
	var doc buildOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Empty(t, doc.Dataset.EdgeWeights)

	_, err = run(t, "build", "--events", events,
		"--strategy", "geohash", "--precision", "1",
		"--history", "2", "--horizon", "1", "--adjacency", wrong)
	assert.Equal(t, 3, ExitCode(err))
}

func TestBuild_ErrorKinds(t *testing.T) {
	events := writeEvents(t)

	_, err := run(t, "build", "--events", events, "--strategy", "hexagon")
	assert.Equal(t, 2, ExitCode(err))

	_, err = run(t, "build", "--events", events, "--strategy", "geohash", "--precision", "1", "--history", "4")
	assert.Equal(t, 4, ExitCode(err))

	_, err = run(t, "build")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 3, ExitCode(apperrors.Shape("x")))
	assert.Equal(t, 1, ExitCode(assert.AnError))
}

func TestToken_RequiresSecret(t *testing.T) {
	t.Setenv("EVENTGRAPH_AUTH_JWT_SECRET", "")
	_, err := run(t, "token")
	assert.Equal(t, 2, ExitCode(err))

	t.Setenv("EVENTGRAPH_AUTH_JWT_SECRET", "s3cret")
	out, err := run(t, "token", "--subject", "ci")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "."))
}
