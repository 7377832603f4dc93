// Package locator persists named element descriptors and resolves a
// name against the current screen using strict, no-fuzzy-matching
// strategies. The resolution algorithm follows the newer single-
// strategy-override / full-exact-match-strict logic (see SPEC_FULL.md
// §4.4); it supersedes an older, more permissive waterfall that is not
// implemented here.
package locator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

// Store is a mapping from unique name to ElementDescriptor, persisted
// as one JSON document. Load is lazy and idempotent; Save is atomic
// (write-temp + rename). A single writer per run is assumed (§5).
type Store struct {
	mu       sync.RWMutex
	path     string
	loaded   bool
	entries  map[string]types.ElementDescriptor
	watcher  *fsnotify.Watcher
	lastHash string
}

// NewStore creates a store bound to path; nothing is read until Load
// or a Resolve call triggers lazy loading.
func NewStore(path string) *Store {
	return &Store{path: path, entries: map[string]types.ElementDescriptor{}}
}

// Load reads the backing file if present. A missing file is not an
// error: the store starts empty.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("locator: read store: %w", err)
	}
	var entries map[string]types.ElementDescriptor
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("locator: parse store: %w", err)
	}
	if entries == nil {
		entries = map[string]types.ElementDescriptor{}
	}
	s.entries = entries
	s.loaded = true
	s.lastHash = hashOf(raw)
	return nil
}

func (s *Store) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	return s.loadLocked()
}

// Save writes the store atomically: write to a temp file in the same
// directory, then rename over the target.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("locator: marshal store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("locator: create store dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".locator-*.tmp")
	if err != nil {
		return fmt.Errorf("locator: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("locator: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("locator: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("locator: rename temp file: %w", err)
	}
	s.lastHash = hashOf(raw)
	return nil
}

// Get returns the descriptor stored under name.
func (s *Store) Get(name string) (types.ElementDescriptor, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return types.ElementDescriptor{}, false, err
	}
	d, ok := s.entries[name]
	return d, ok, nil
}

// All returns a copy of every stored entry.
func (s *Store) All() (map[string]types.ElementDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	out := make(map[string]types.ElementDescriptor, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

// Put stores d under name, overwriting any existing entry.
func (s *Store) Put(name string, d types.ElementDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.entries[name] = d
	return nil
}

var nonIdentChars = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// AddFromTree allocates a new stable name for e and stores its
// descriptor, returning the name. Every call allocates a fresh name,
// even for an element identical to one already stored. Name generation picks the most
// identifying attribute (trimmed resource-id tail, else trimmed text,
// else class tail, else "ocr文本"), sanitizes it, and disambiguates
// with a numeric suffix starting at 2.
func (s *Store) AddFromTree(e types.UIElement) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return "", err
	}

	base := candidateName(e)
	name := s.uniqueNameLocked(base)

	classCopy := e.ClassName
	textCopy := e.Text
	ridCopy := e.ResourceID
	boundsCopy := e.Bounds
	xpathCopy := e.XPath
	clickCopy := e.Clickable
	focCopy := e.Focusable
	scrollCopy := e.Scrollable
	enabledCopy := e.Enabled
	cx, cy := e.Bounds.Center()
	width := e.Bounds.X2 - e.Bounds.X1
	height := e.Bounds.Y2 - e.Bounds.Y1

	d := types.ElementDescriptor{
		Type:       types.TagTree,
		ClassName:  &classCopy,
		Text:       strOrNil(textCopy),
		ResourceID: strOrNil(ridCopy),
		XPath:      strOrNil(xpathCopy),
		Bounds:     &boundsCopy,
		Clickable:  &clickCopy,
		Focusable:  &focCopy,
		Scrollable: &scrollCopy,
		Enabled:    &enabledCopy,
		CenterX:    &cx,
		CenterY:    &cy,
		Width:      &width,
		Height:     &height,
	}
	s.entries[name] = d
	return name, nil
}

// AddFromOCR allocates a name for an OCR-origin element.
func (s *Store) AddFromOCR(text string, cx, cy, width, height int, bounds types.Bounds) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return "", err
	}
	base := sanitizeName(text)
	if base == "" {
		base = "ocr文本"
	}
	name := s.uniqueNameLocked(base)
	cxCopy, cyCopy, w, h := cx, cy, width, height
	textCopy := text
	boundsCopy := bounds
	d := types.ElementDescriptor{
		Type:    types.TagOCR,
		Text:    &textCopy,
		Bounds:  &boundsCopy,
		CenterX: &cxCopy,
		CenterY: &cyCopy,
		Width:   &w,
		Height:  &h,
	}
	s.entries[name] = d
	return name, nil
}

func (s *Store) uniqueNameLocked(base string) string {
	if _, exists := s.entries[base]; !exists {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if _, exists := s.entries[candidate]; !exists {
			return candidate
		}
	}
}

func candidateName(e types.UIElement) string {
	if tail := sanitizeName(ridTail(e.ResourceID)); tail != "" {
		return tail
	}
	if t := sanitizeName(e.Text); t != "" {
		return t
	}
	if c := sanitizeName(localClass(e.ClassName)); c != "" {
		return c
	}
	return "ocr文本"
}

func ridTail(resourceID string) string {
	if i := strings.LastIndex(resourceID, "/"); i >= 0 {
		return resourceID[i+1:]
	}
	return resourceID
}

func localClass(className string) string {
	if i := strings.LastIndex(className, "."); i >= 0 {
		return className[i+1:]
	}
	return className
}

func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	sanitized := nonIdentChars.ReplaceAllString(s, "_")
	return strings.Trim(sanitized, "_")
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func hashOf(b []byte) string {
	// A content fingerprint cheap enough to compute per save/reload,
	// used only to tell "our own write" from an external edit.
	var sum uint64 = 1469598103934665603
	for _, c := range b {
		sum ^= uint64(c)
		sum *= 1099511628211
	}
	return fmt.Sprintf("%x", sum)
}

// WatchForExternalEdits starts an fsnotify watch on the store's file
// and reloads it in place whenever its content changes for a reason
// other than this Store's own Save call. Call Close on the returned
// watcher when done. An error is returned when the directory holding
// the store's file cannot be watched (for example, it does not exist).
func (s *Store) WatchForExternalEdits() (*fsnotify.Watcher, error) {
	dir := filepath.Dir(s.path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("locator: create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("locator: watch store dir: %w", err)
	}
	s.watcher = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				raw, err := os.ReadFile(s.path)
				if err != nil {
					continue
				}
				if hashOf(raw) == s.lastHash {
					continue // our own write
				}
				s.mu.Lock()
				if loadErr := s.loadLocked(); loadErr != nil {
					log.Warn().Err(loadErr).Str("path", s.path).Msg("locator: external edit reload failed")
				} else {
					log.Info().Str("path", s.path).Msg("locator: reloaded after external edit")
				}
				s.mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("locator: watcher error")
			}
		}
	}()
	return w, nil
}
