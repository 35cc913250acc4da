package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RebuildIndex regenerates INDEX.md from the front matter of every stored
// file and refreshes the id map from the same scan.
func (s *Store) RebuildIndex(ctx context.Context) (IndexStats, error) {
	if err := ctx.Err(); err != nil {
		return IndexStats{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, dropped, err := s.scan(false)
	if err != nil {
		return IndexStats{}, err
	}
	s.setIndex(entries)

	sortNewestFirst(entries)
	groups, order := groupByChannel(entries)

	doc := renderIndex(groups, order, len(entries), s.now())
	if err := writeFileAtomic(s.IndexPath(), doc); err != nil {
		return IndexStats{}, fmt.Errorf("writing index: %w", err)
	}

	stats := IndexStats{Entries: len(entries), Channels: len(order), Dropped: dropped}
	s.logger.Info("rebuilt index", "entries", stats.Entries, "channels", stats.Channels, "dropped", stats.Dropped)
	return stats, nil
}

// groupByChannel keeps the first-seen channel order of the already sorted
// entries.
func groupByChannel(entries []StoredTranscript) (map[string][]Entry, []string) {
	groups := make(map[string][]Entry)
	var order []string
	for _, e := range entries {
		if _, ok := groups[e.Channel]; !ok {
			order = append(order, e.Channel)
		}
		groups[e.Channel] = append(groups[e.Channel], e.Entry)
	}
	return groups, order
}

var linkText = strings.NewReplacer("[", `\[`, "]", `\]`)

func renderIndex(groups map[string][]Entry, order []string, total int, updated time.Time) []byte {
	var b strings.Builder
	b.WriteString("# AI Knowledge Hub - Transcript Index\n\n")
	fmt.Fprintf(&b, "**Total Transcripts:** %d\n", total)
	fmt.Fprintf(&b, "**Last Updated:** %s\n\n", updated.UTC().Format(time.RFC1123))
	b.WriteString("---\n\n## All Transcripts\n\n")

	for _, channel := range order {
		fmt.Fprintf(&b, "\n### %s\n\n", channel)
		for _, e := range groups[channel] {
			fmt.Fprintf(&b, "- **[%s](./%s)** - %s - [Watch](%s)\n",
				linkText.Replace(e.Title), e.File, e.PublishedAt.UTC().Format("Jan 2, 2006"), e.URL)
		}
	}

	b.WriteString("\n---\n\n*Auto-generated index file. Do not edit manually.*\n")
	return []byte(b.String())
}
