// Package storage persists transcripts as markdown files with YAML front
// matter in a single flat directory and maintains a derived INDEX.md.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// IndexFile is the name of the generated index inside the storage root.
const IndexFile = "INDEX.md"

// Store is the only component that reads or writes the transcript directory.
// It keeps a video_id -> filename map built from front matter so duplicate
// detection does not depend on filenames.
type Store struct {
	root   string
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	byID map[string]string
}

// Open creates dir if needed and loads the id map from existing files.
func Open(dir string) (*Store, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving storage dir: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}

	s := &Store{
		root:   root,
		logger: slog.Default(),
		now:    time.Now,
		byID:   make(map[string]string),
	}

	entries, _, err := s.scan(false)
	if err != nil {
		return nil, err
	}
	s.setIndex(entries)
	return s, nil
}

// Dir returns the absolute storage root.
func (s *Store) Dir() string { return s.root }

// IndexPath returns the absolute path of INDEX.md.
func (s *Store) IndexPath() string { return filepath.Join(s.root, IndexFile) }

// Exists reports whether a transcript for videoID is stored.
func (s *Store) Exists(videoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[videoID]
	return ok
}

// Save writes t unless its video id is already stored, in which case it
// returns saved=false and writes nothing.
func (s *Store) Save(ctx context.Context, t Transcript) (path string, saved bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if t.VideoID == "" {
		return "", false, errors.New("transcript has no video id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[t.VideoID]; ok {
		s.logger.Debug("transcript already stored", "video_id", t.VideoID)
		return "", false, nil
	}

	name := Filename(t)
	if _, err := os.Lstat(filepath.Join(s.root, name)); err == nil {
		// Same date, channel and title slug as a different video.
		name = strings.TrimSuffix(name, ".md") + "-" + Sanitize(t.VideoID) + ".md"
	}

	path, err = s.pathFor(name)
	if err != nil {
		return "", false, err
	}

	content, err := renderMarkdown(t, s.now())
	if err != nil {
		return "", false, err
	}
	if err := writeFileAtomic(path, content); err != nil {
		return "", false, fmt.Errorf("saving %s: %w", t.VideoID, err)
	}

	s.byID[t.VideoID] = name
	s.logger.Info("saved transcript", "video_id", t.VideoID, "file", name)
	return path, true, nil
}

// BatchSave saves each transcript in order and counts the outcomes. A failed
// save is logged and counted; it does not stop the batch.
func (s *Store) BatchSave(ctx context.Context, batch []Transcript) BatchResult {
	var res BatchResult
	for _, t := range batch {
		if s.Exists(t.VideoID) {
			res.Skipped++
			continue
		}
		_, saved, err := s.Save(ctx, t)
		switch {
		case err != nil:
			s.logger.Error("failed to save transcript", "video_id", t.VideoID, "title", t.Title, "error", err)
			res.Failed++
		case saved:
			res.Successful++
		default:
			res.Skipped++
		}
	}
	return res
}

// List returns every stored transcript, newest first. Files with unreadable
// front matter are skipped.
func (s *Store) List(ctx context.Context) ([]StoredTranscript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, _, err := s.scan(true)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(entries)
	return entries, nil
}

// Get returns the stored transcript for videoID or ErrNotFound.
func (s *Store) Get(videoID string) (StoredTranscript, error) {
	s.mu.Lock()
	name, ok := s.byID[videoID]
	s.mu.Unlock()
	if !ok {
		return StoredTranscript{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	st, err := s.readFile(name, true)
	if errors.Is(err, os.ErrNotExist) {
		return StoredTranscript{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	return st, err
}

// Body returns the markdown of a stored file with its front matter removed.
// IndexFile is accepted and returned whole.
func (s *Store) Body(name string) (string, error) {
	if name == IndexFile {
		b, err := os.ReadFile(s.IndexPath())
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return string(b), err
	}
	if !strings.HasSuffix(name, ".md") {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	p, err := s.pathFor(name)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	} else if err != nil {
		return "", err
	}
	_, body, err := parseDocument(content)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return body, nil
}

// pathFor joins name onto the root and rejects anything that would land
// outside it.
func (s *Store) pathFor(name string) (string, error) {
	p := filepath.Join(s.root, name)
	if filepath.Dir(p) != s.root || filepath.Base(p) == IndexFile {
		return "", &PathTraversalError{Path: p, Root: s.root}
	}
	return p, nil
}

func (s *Store) readFile(name string, withBody bool) (StoredTranscript, error) {
	content, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		return StoredTranscript{}, err
	}
	fm, body, err := parseDocument(content)
	if err != nil {
		return StoredTranscript{}, fmt.Errorf("%s: %w", name, err)
	}
	e, err := fm.entry(name)
	if err != nil {
		return StoredTranscript{}, err
	}
	st := StoredTranscript{Entry: e}
	if withBody {
		st.Transcript = extractTranscript(body)
	}
	return st, nil
}

// scan reads every transcript file in the root. Unparseable files are
// logged and counted in dropped.
func (s *Store) scan(withBody bool) (entries []StoredTranscript, dropped int, err error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, 0, fmt.Errorf("reading storage dir: %w", err)
	}
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".md") || name == IndexFile {
			continue
		}
		st, err := s.readFile(name, withBody)
		if err != nil {
			s.logger.Warn("skipping unreadable transcript", "file", name, "error", err)
			dropped++
			continue
		}
		entries = append(entries, st)
	}
	return entries, dropped, nil
}

// setIndex replaces the id map. Caller must hold s.mu or own s exclusively.
func (s *Store) setIndex(entries []StoredTranscript) {
	byID := make(map[string]string, len(entries))
	for _, e := range entries {
		if _, dup := byID[e.VideoID]; dup {
			s.logger.Warn("duplicate video_id in storage", "video_id", e.VideoID, "file", e.File)
			continue
		}
		byID[e.VideoID] = e.File
	}
	s.byID = byID
}

func sortNewestFirst(entries []StoredTranscript) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].PublishedAt, entries[j].PublishedAt
		if a.Equal(b) {
			return entries[i].File < entries[j].File
		}
		return a.After(b)
	})
}
