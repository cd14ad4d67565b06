package repository

import (
    "context"
    "errors"
    "os"
    "path/filepath"
    "sync"
)

// Store loads and saves the whole patient document.  Every call to Load
// returns a fresh working copy; nothing is cached between requests.
type Store interface {
    Load(ctx context.Context) (*Document, error)
    Save(ctx context.Context, doc *Document) error
}

// Ensure both implementations satisfy Store.
var (
    _ Store = (*FileStore)(nil)
    _ Store = (*MemoryStore)(nil)
)

// FileStore keeps the document in a single JSON file.  Save overwrites the
// file in one write with no locking and no atomic rename; concurrent writers
// race and the last one wins.
type FileStore struct {
    path string
}

// NewFileStore returns a FileStore backed by path.  The file is not touched
// until the first Load or Save.
func NewFileStore(path string) *FileStore {
    return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads and parses the backing file.  A missing or malformed file is a
// *StorageError.
func (s *FileStore) Load(ctx context.Context) (*Document, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    data, err := os.ReadFile(s.path)
    if err != nil {
        return nil, &StorageError{Op: "load", Path: s.path, Err: err}
    }
    doc, err := ParseDocument(data)
    if err != nil {
        return nil, &StorageError{Op: "load", Path: s.path, Err: err}
    }
    return doc, nil
}

// Save serialises doc and overwrites the backing file.
func (s *FileStore) Save(ctx context.Context, doc *Document) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    data, err := doc.MarshalJSON()
    if err != nil {
        return &StorageError{Op: "save", Path: s.path, Err: err}
    }
    if err := os.WriteFile(s.path, data, 0o644); err != nil {
        return &StorageError{Op: "save", Path: s.path, Err: err}
    }
    return nil
}

// Init writes an empty document when the backing file does not exist yet.
// It reports whether a file was created.
func (s *FileStore) Init() (bool, error) {
    if _, err := os.Stat(s.path); err == nil {
        return false, nil
    } else if !errors.Is(err, os.ErrNotExist) {
        return false, &StorageError{Op: "init", Path: s.path, Err: err}
    }
    if dir := filepath.Dir(s.path); dir != "." {
        if err := os.MkdirAll(dir, 0o755); err != nil {
            return false, &StorageError{Op: "init", Path: s.path, Err: err}
        }
    }
    if err := os.WriteFile(s.path, []byte("{}"), 0o644); err != nil {
        return false, &StorageError{Op: "init", Path: s.path, Err: err}
    }
    return true, nil
}

// MemoryStore holds the serialised document in memory.  It behaves like a
// FileStore (each Load parses a fresh copy) and is used in tests and for
// throwaway runs.
type MemoryStore struct {
    mu   sync.Mutex
    data []byte
}

// NewMemoryStore returns a store seeded with doc, or an empty document when
// doc is nil.
func NewMemoryStore(doc *Document) *MemoryStore {
    if doc == nil {
        doc = NewDocument()
    }
    data, _ := doc.MarshalJSON()
    return &MemoryStore{data: data}
}

// Load parses the held document.
func (s *MemoryStore) Load(ctx context.Context) (*Document, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    s.mu.Lock()
    data := s.data
    s.mu.Unlock()
    doc, err := ParseDocument(data)
    if err != nil {
        return nil, &StorageError{Op: "load", Err: err}
    }
    return doc, nil
}

// Save replaces the held document.
func (s *MemoryStore) Save(ctx context.Context, doc *Document) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    data, err := doc.MarshalJSON()
    if err != nil {
        return &StorageError{Op: "save", Err: err}
    }
    s.mu.Lock()
    s.data = data
    s.mu.Unlock()
    return nil
}

// Bytes returns the currently held serialised document.
func (s *MemoryStore) Bytes() []byte {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]byte, len(s.data))
    copy(out, s.data)
    return out
}
