package traverse

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grepcore/grepcore/pkg/sink"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestRun_OrderMatchesSequentialWalk(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":       "needle\n",
		"b.txt":       "hay\n",
		"sub/c.txt":   "needle\n",
		"sub/d.txt":   "hay\n",
	})

	var mu sync.Mutex
	var visited []string
	handle := func(_ int, path string, slot *sink.Slot) (bool, error) {
		content, err := os.ReadFile(path)
		if err != nil {
			return false, err
		}
		matched := strings.Contains(string(content), "needle")
		if matched {
			_, _ = slot.Write([]byte(filepath.Base(path) + "\n"))
		}
		mu.Lock()
		visited = append(visited, path)
		mu.Unlock()
		return matched, nil
	}

	var out strings.Builder
	direct := sink.NewDirect(&out)

	result, err := Run(context.Background(), Config{
		Root:    root,
		Workers: 3,
		Exclude: func(string, bool) bool { return false },
		Handle:  handle,
	}, direct)
	require.NoError(t, err)
	require.NoError(t, direct.Flush())

	assert.True(t, result.MatchedAny)
	assert.Equal(t, "a.txt\nc.txt\n", out.String())

	sort.Strings(visited)
	assert.Equal(t, []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.txt"),
		filepath.Join(root, "sub/c.txt"),
		filepath.Join(root, "sub/d.txt"),
	}, visited)
}

func TestRun_ExcludeSkipsEntries(t *testing.T) {
	root := writeTree(t, map[string]string{
		"keep.txt": "x\n",
		"skip.txt": "x\n",
	})

	handle := func(_ int, path string, slot *sink.Slot) (bool, error) {
		_, _ = slot.Write([]byte(filepath.Base(path) + "\n"))
		return true, nil
	}

	var out strings.Builder
	direct := sink.NewDirect(&out)

	_, err := Run(context.Background(), Config{
		Root:    root,
		Workers: 2,
		Exclude: func(path string, isDir bool) bool { return strings.HasSuffix(path, "skip.txt") },
		Handle:  handle,
	}, direct)
	require.NoError(t, err)
	require.NoError(t, direct.Flush())

	assert.Equal(t, "keep.txt\n", out.String())
}

func TestRun_RoundsRespectCeiling(t *testing.T) {
	root := writeTree(t, map[string]string{
		"1.txt": "x\n",
		"2.txt": "x\n",
		"3.txt": "x\n",
		"4.txt": "x\n",
	})

	handle := func(_ int, path string, slot *sink.Slot) (bool, error) {
		_, _ = slot.Write([]byte(filepath.Base(path) + "\n"))
		return true, nil
	}

	var out strings.Builder
	direct := sink.NewDirect(&out)

	_, err := Run(context.Background(), Config{
		Root:            root,
		Workers:         2,
		MaxAllowedNodes: 2,
		Exclude:         func(string, bool) bool { return false },
		Handle:          handle,
	}, direct)
	require.NoError(t, err)
	require.NoError(t, direct.Flush())

	assert.Equal(t, "1.txt\n2.txt\n3.txt\n4.txt\n", out.String())
}
