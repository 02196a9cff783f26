package alarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
)

// filePermissions restricts the state file to the owner.
const filePermissions = 0o600

// document is the on-disk layout of FileRepository.
type document struct {
	Alarms map[string]*domain.Record `json:"alarms"`
}

// FileRepository persists alarm records to a JSON file on disk.
// Every write rewrites the whole document through a temporary file and rename.
type FileRepository struct {
	// path is the filesystem location of the JSON document.
	path string
	// mu protects concurrent access to the file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Get returns the record for id.
func (r *FileRepository) Get(_ context.Context, id string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}

	record, ok := doc.Alarms[id]
	if !ok {
		return nil, ErrNotFound
	}

	return record, nil
}

// List returns every record ordered by id.
func (r *FileRepository) List(_ context.Context) ([]*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(doc.Alarms))
	for _, record := range doc.Alarms {
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Request.ID < records[j].Request.ID
	})

	return records, nil
}

// Save inserts or replaces the record keyed by its request id.
func (r *FileRepository) Save(_ context.Context, record *domain.Record) error {
	if record == nil || record.Request == nil {
		return fmt.Errorf("%w: record without request", domain.ErrInvalidRequest)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}

	doc.Alarms[record.Request.ID] = record.Clone()

	return r.store(doc)
}

// Delete removes the record for id.
func (r *FileRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}

	if _, ok := doc.Alarms[id]; !ok {
		return nil
	}

	delete(doc.Alarms, id)

	return r.store(doc)
}

// DeleteAll removes every record.
func (r *FileRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.store(&document{Alarms: make(map[string]*domain.Record)})
}

// Close implements Repository; the file is not held open.
func (r *FileRepository) Close() error {
	return nil
}

// load reads the document; a missing file is an empty document.
func (r *FileRepository) load() (*document, error) {
	doc := &document{Alarms: make(map[string]*domain.Record)}

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}

		return nil, fmt.Errorf("read alarm file: %w", err)
	}

	if len(contents) == 0 {
		return doc, nil
	}

	if err = json.Unmarshal(contents, doc); err != nil {
		return nil, fmt.Errorf("decode alarm file: %w", err)
	}

	if doc.Alarms == nil {
		doc.Alarms = make(map[string]*domain.Record)
	}

	return doc, nil
}

// store writes the document atomically.
func (r *FileRepository) store(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode alarms: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err = os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create alarm directory: %w", err)
		}
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, filePermissions); err != nil {
		return fmt.Errorf("write alarm file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace alarm file: %w", err)
	}

	return nil
}
