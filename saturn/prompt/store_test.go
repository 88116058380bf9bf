package prompt

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTemplates(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)
	defer s.Close()

	for _, version := range []string{"v1", "v2"} {
		text, err := s.Oracle(version)
		require.NoError(t, err, version)
		assert.Contains(t, text, "{tools_manual}")
		assert.Contains(t, text, "{conversation_history}")
		assert.Contains(t, text, "{user_input}")
		assert.Contains(t, text, "{recent_tool_outputs}")
	}

	_, err = s.Oracle("v99")
	assert.Error(t, err)
}

func TestDirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	custom := "custom template {tools_manual} {conversation_history} {user_input} {recent_tool_outputs}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oracle_v1.txt"), []byte(custom), 0o644))

	s, err := NewStore(dir)
	require.NoError(t, err)
	defer s.Close()

	text, err := s.Oracle("v1")
	require.NoError(t, err)
	assert.Equal(t, custom, text)

	// Versions absent from the directory fall back to the embedded copy.
	text, err = s.Oracle("v2")
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestMissingDirectoryRejected(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestHotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oracle_v1.txt")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o644))

	s, err := NewStore(dir)
	require.NoError(t, err)
	defer s.Close()

	text, err := s.Oracle("v1")
	require.NoError(t, err)
	assert.Equal(t, "first", text)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o644))

	// The watcher invalidates the cache asynchronously.
	assert.Eventually(t, func() bool {
		text, err := s.Oracle("v1")
		return err == nil && text == "second"
	}, 2*time.Second, 20*time.Millisecond)
}
