package channels

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	list, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ai-daily-brief", list[0].ID)
	assert.Equal(t, "UCKelCK4ZaO6HeEI1KQjqzWA", list[0].ChannelID)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.yaml")
	doc := `channels:
  - id: one
    name: One
    handle: "@one"
    enabled: true
  - id: two
    name: Two
    channel_id: UC2
    enabled: false
  - id: three
    name: Three
    handle: "@three"
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	list, err := Load(path)
	require.NoError(t, err)
	require.Len(t, list, 3)

	enabled := Enabled(list)
	require.Len(t, enabled, 2)
	assert.Equal(t, "one", enabled[0].ID)
	assert.Equal(t, "three", enabled[1].ID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		list    []Channel
		wantErr bool
	}{
		{"ok", []Channel{{ID: "a", Handle: "@a"}, {ID: "b", ChannelID: "UCb"}}, false},
		{"duplicate", []Channel{{ID: "a", Handle: "@a"}, {ID: "a", Handle: "@b"}}, true},
		{"missing id", []Channel{{Handle: "@a"}}, true},
		{"unlocatable", []Channel{{ID: "a", Name: "A"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.list)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("channels: [unclosed"))
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "@h", Channel{ID: "x", Name: "N", Handle: "@h"}.Label())
	assert.Equal(t, "N", Channel{ID: "x", Name: "N"}.Label())
	assert.Equal(t, "x", Channel{ID: "x"}.Label())
}
