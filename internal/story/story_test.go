package story

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/ovida/internal/audio"
)

func TestLoad_Default(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	s, err := c.Get("haunted-shore")
	require.NoError(t, err)
	assert.Equal(t, "Haunted Shore", s.Title)
	assert.Equal(t, audio.PolicyRealtimeOK, s.VoicePolicy)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.yaml")
	content := `
stories:
  - id: haunted-shore
    title: Haunted Shore
    voice_policy: realtime-ok
  - id: lighthouse
    voice_policy: premium
    voice_id: keeper
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "haunted-shore", list[0].ID)
	assert.Equal(t, "lighthouse", list[1].ID)
	assert.Equal(t, "lighthouse", list[1].Title)
	assert.Equal(t, audio.PolicyPremium, list[1].VoicePolicy)
	assert.Equal(t, "keeper", list[1].VoiceID)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "stories: [\n"},
		{"missing id", "stories:\n  - title: Nameless\n"},
		{"duplicate id", "stories:\n  - id: a\n  - id: a\n"},
		{"unknown policy", "stories:\n  - id: a\n    voice_policy: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestGet_NotFound(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	_, err = c.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_ReturnsCopy(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	list := c.List()
	list[0].Title = "changed"
	assert.Equal(t, "Haunted Shore", c.List()[0].Title)
}
