package storage

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type frontMatter struct {
	Title       string `yaml:"title"`
	VideoID     string `yaml:"video_id"`
	Channel     string `yaml:"channel"`
	PublishedAt string `yaml:"published_at"`
	URL         string `yaml:"url"`
}

const (
	transcriptHeading = "## Transcript\n\n"
	footerRule        = "\n\n---\n"
)

func renderMarkdown(t Transcript, indexedAt time.Time) ([]byte, error) {
	fm, err := yaml.Marshal(frontMatter{
		Title:       t.Title,
		VideoID:     t.VideoID,
		Channel:     t.ChannelName,
		PublishedAt: t.PublishedAt.UTC().Format(time.RFC3339),
		URL:         t.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	fmt.Fprintf(&buf, "# %s\n\n", t.Title)
	fmt.Fprintf(&buf, "**Channel:** %s\n", t.ChannelName)
	fmt.Fprintf(&buf, "**Published:** %s\n", t.PublishedAt.UTC().Format("January 2, 2006"))
	fmt.Fprintf(&buf, "**Video:** [Watch on YouTube](%s)\n\n", t.URL)
	buf.WriteString(transcriptHeading)
	buf.WriteString(t.Text)
	buf.WriteString(footerRule)
	fmt.Fprintf(&buf, "\n*Indexed on %s*\n", indexedAt.UTC().Format(time.RFC3339))
	return buf.Bytes(), nil
}

// parseDocument splits a stored file into its front matter and body.
func parseDocument(content []byte) (frontMatter, string, error) {
	reader := bufio.NewReader(bytes.NewReader(content))

	firstLine, err := reader.ReadString('\n')
	if err != nil || strings.TrimSpace(firstLine) != "---" {
		return frontMatter{}, "", ErrNoFrontMatter
	}

	var block strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if strings.TrimSpace(line) == "---" {
			break
		}
		if err != nil {
			return frontMatter{}, "", fmt.Errorf("unterminated front matter: %w", err)
		}
		block.WriteString(line)
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(block.String()), &fm); err != nil {
		// Older files wrote values unquoted, so a title containing ": "
		// is not valid YAML. Fall back to one key per line.
		fm, err = parseLegacyFrontMatter(block.String())
		if err != nil {
			return frontMatter{}, "", err
		}
	}

	var body strings.Builder
	if _, err := reader.WriteTo(&body); err != nil {
		return frontMatter{}, "", err
	}
	return fm, body.String(), nil
}

func parseLegacyFrontMatter(block string) (frontMatter, error) {
	var fm frontMatter
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, val, ok := strings.Cut(line, ": ")
		if !ok {
			return frontMatter{}, fmt.Errorf("invalid front matter line %q", line)
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "title":
			fm.Title = val
		case "video_id":
			fm.VideoID = val
		case "channel":
			fm.Channel = val
		case "published_at":
			fm.PublishedAt = val
		case "url":
			fm.URL = val
		}
	}
	return fm, nil
}

func (fm frontMatter) entry(file string) (Entry, error) {
	if fm.VideoID == "" {
		return Entry{}, fmt.Errorf("%s: front matter has no video_id", file)
	}
	published, err := time.Parse(time.RFC3339Nano, fm.PublishedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: invalid published_at: %w", file, err)
	}
	e := Entry{
		File:        file,
		Title:       fm.Title,
		VideoID:     fm.VideoID,
		Channel:     fm.Channel,
		PublishedAt: published,
		URL:         fm.URL,
	}
	if e.Title == "" {
		e.Title = "Unknown"
	}
	if e.Channel == "" {
		e.Channel = "Unknown"
	}
	return e, nil
}

// extractTranscript returns the text between the transcript heading and the
// closing rule.
func extractTranscript(body string) string {
	start := strings.Index(body, transcriptHeading)
	if start < 0 {
		return ""
	}
	rest := body[start+len(transcriptHeading):]
	if end := strings.LastIndex(rest, footerRule); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
