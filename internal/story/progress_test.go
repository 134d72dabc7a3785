package story

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitProgress(t *testing.T) {
	raw := "# Patterns\n\n- use table tests\n\n## 2026-03-01 - s-1\n\ndone\n\n## 2026-03-02 - s-2\n\ndone\n"

	preamble, entries := splitProgress(raw)
	assert.Contains(t, preamble, "Patterns")
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0], "s-1")
	assert.Contains(t, entries[1], "s-2")
}

func TestSplitProgress_NoEntries(t *testing.T) {
	preamble, entries := splitProgress("# Patterns\nonly preamble\n")
	assert.Contains(t, preamble, "only preamble")
	assert.Empty(t, entries)
}

func TestCompactProgressLog_UnderThreshold(t *testing.T) {
	s := NewStore(t.TempDir())
	s.Now = time.Now
	for i := 0; i < CompactKeepEntries; i++ {
		require.NoError(t, s.AppendProgress(fmt.Sprintf("s-%d", i), "entry"))
	}
	before, err := os.ReadFile(s.ProgressPath())
	require.NoError(t, err)

	require.NoError(t, s.CompactProgressLog())

	after, err := os.ReadFile(s.ProgressPath())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	_, statErr := os.Stat(filepath.Join(s.Dir(), ProgressArchiveFileName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCompactProgressLog_MovesOldEntries(t *testing.T) {
	s := NewStore(t.TempDir())
	s.Now = time.Now

	preamble := "# Patterns\n\n- keep me\n"
	require.NoError(t, os.WriteFile(s.ProgressPath(), []byte(preamble), 0o644))
	const total = 8
	for i := 0; i < total; i++ {
		require.NoError(t, s.AppendProgress(fmt.Sprintf("s-%d", i), "entry"))
	}
	original, err := os.ReadFile(s.ProgressPath())
	require.NoError(t, err)

	require.NoError(t, s.CompactProgressLog())

	retained, err := os.ReadFile(s.ProgressPath())
	require.NoError(t, err)
	archived, err := os.ReadFile(filepath.Join(s.Dir(), ProgressArchiveFileName))
	require.NoError(t, err)

	// Preamble stays in the retained log.
	assert.True(t, strings.HasPrefix(string(retained), preamble))

	// Oldest entries landed in the archive, trailing window stayed.
	assert.Contains(t, string(archived), "s-0")
	assert.Contains(t, string(archived), fmt.Sprintf("s-%d", total-CompactKeepEntries-1))
	assert.NotContains(t, string(archived), fmt.Sprintf("s-%d", total-1))
	assert.NotContains(t, string(retained), "s-0\n")
	assert.Contains(t, string(retained), fmt.Sprintf("s-%d", total-1))

	// Archive + retained reproduces the original log in order.
	recombined := preamble + string(archived) + strings.TrimPrefix(string(retained), preamble)
	assert.Equal(t, string(original), recombined)
}
