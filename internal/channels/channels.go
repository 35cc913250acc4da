// Package channels loads the set of YouTube channels to poll.
package channels

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Channel is one configured YouTube channel.
type Channel struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Handle    string `yaml:"handle,omitempty"`
	ChannelID string `yaml:"channel_id,omitempty"`
	Enabled   bool   `yaml:"enabled"`
}

type file struct {
	Channels []Channel `yaml:"channels"`
}

// Defaults is used when no channels file exists.
func Defaults() []Channel {
	return []Channel{
		{
			ID:        "ai-daily-brief",
			Name:      "AI Daily Brief",
			Handle:    "@AIDailyBrief",
			ChannelID: "UCKelCK4ZaO6HeEI1KQjqzWA",
			Enabled:   true,
		},
	}
}

// Load reads a YAML channels file. A missing file yields Defaults.
func Load(path string) ([]Channel, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading channels file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a channels document.
func Parse(data []byte) ([]Channel, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid channels file: %w", err)
	}
	if err := Validate(f.Channels); err != nil {
		return nil, err
	}
	return f.Channels, nil
}

// Validate checks that ids are present and unique and that every channel
// can be located on YouTube.
func Validate(list []Channel) error {
	seen := make(map[string]bool, len(list))
	for i, c := range list {
		if c.ID == "" {
			return fmt.Errorf("channel #%d: id is required", i+1)
		}
		if seen[c.ID] {
			return fmt.Errorf("channel %q: duplicate id", c.ID)
		}
		seen[c.ID] = true
		if c.Handle == "" && c.ChannelID == "" {
			return fmt.Errorf("channel %q: handle or channel_id is required", c.ID)
		}
	}
	return nil
}

// Enabled returns the enabled channels in configuration order.
func Enabled(list []Channel) []Channel {
	out := make([]Channel, 0, len(list))
	for _, c := range list {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// Label is the string handed to the resolver: the handle when set,
// otherwise the display name.
func (c Channel) Label() string {
	if c.Handle != "" {
		return c.Handle
	}
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
