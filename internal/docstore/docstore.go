// Package docstore keeps uploaded documents in memory for the HTTP API.
package docstore

import (
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/layout"
)

// Entry is one uploaded document: its highlight aggregate, the source bytes
// and the page layout read from them. Layout is nil when the source could
// not be parsed.
type Entry struct {
	Doc        *annotate.Document
	Data       []byte
	Layout     *layout.Document
	PageCount  int
	UploadedAt time.Time
}

// Summary is the list view of an entry.
type Summary struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Title      string    `json:"title,omitempty"`
	PageCount  int       `json:"page_count"`
	Highlights int       `json:"highlights"`
	Readable   bool      `json:"readable"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Store is a thread-safe in-memory document registry.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func New() *Store {
	return &Store{entries: make(map[string]*Entry)}
}

// Add registers a new document and returns its entry.
func (s *Store) Add(filename string, data []byte, lay *layout.Document) *Entry {
	e := &Entry{
		Doc:        annotate.NewDocument(filename),
		Data:       data,
		Layout:     lay,
		UploadedAt: time.Now().UTC(),
	}
	if lay != nil {
		e.PageCount = len(lay.Pages)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Doc.ID] = e
	return e
}

func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Delete removes a document and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// List returns summaries ordered by upload time, oldest first.
func (s *Store) List() []Summary {
	s.mu.RLock()
	out := make([]Summary, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Summary())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out
}

// Summary returns the list view of one entry.
func (e *Entry) Summary() Summary {
	sum := Summary{
		ID:         e.Doc.ID,
		Filename:   e.Doc.Filename,
		PageCount:  e.PageCount,
		Highlights: len(e.Doc.Highlights()),
		Readable:   e.Layout != nil,
		UploadedAt: e.UploadedAt,
	}
	if e.Layout != nil {
		sum.Title = e.Layout.Title
	}
	return sum
}
