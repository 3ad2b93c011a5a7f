package store

import (
	"fmt"
	"path/filepath"
	"sync"

	"pairlink/internal/domain"
)

const (
	recordsFile = "relationships.json"
	pendingFile = "pending.json"
	historyFile = "history.json"
)

// FileRelationshipStore persists relationship records as JSON on disk,
// keyed by topic.
type FileRelationshipStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileRelationshipStore creates a relationship store rooted at dir.
func NewFileRelationshipStore(dir string) *FileRelationshipStore {
	return &FileRelationshipStore{dir: dir}
}

func (s *FileRelationshipStore) path() string { return filepath.Join(s.dir, recordsFile) }

func (s *FileRelationshipStore) read() (map[domain.Topic]domain.RelationshipRecord, error) {
	m := make(map[domain.Topic]domain.RelationshipRecord)
	if err := readJSON(s.path(), &m); err != nil {
		return nil, fmt.Errorf("%w: read relationships: %v", domain.ErrPersistence, err)
	}
	return m, nil
}

func (s *FileRelationshipStore) write(m map[domain.Topic]domain.RelationshipRecord) error {
	if err := writeJSON(s.path(), m, 0o600); err != nil {
		return fmt.Errorf("%w: write relationships: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *FileRelationshipStore) Save(rec domain.RelationshipRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return err
	}
	m[rec.Topic] = rec
	return s.write(m)
}

func (s *FileRelationshipStore) Load(topic domain.Topic) (domain.RelationshipRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return domain.RelationshipRecord{}, false, err
	}
	rec, ok := m[topic]
	return rec, ok, nil
}

func (s *FileRelationshipStore) LoadByRequestID(id domain.RequestID) (domain.RelationshipRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return domain.RelationshipRecord{}, false, err
	}
	for _, rec := range m {
		if rec.RequestID == id {
			return rec, true, nil
		}
	}
	return domain.RelationshipRecord{}, false, nil
}

func (s *FileRelationshipStore) Delete(topic domain.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return err
	}
	delete(m, topic)
	return s.write(m)
}

func (s *FileRelationshipStore) List() ([]domain.RelationshipRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]domain.RelationshipRecord, 0, len(m))
	for _, rec := range m {
		out = append(out, rec)
	}
	return out, nil
}

var _ domain.RelationshipStore = (*FileRelationshipStore)(nil)

// FilePendingRequestStore persists pending inbound proposals keyed by
// request id.
type FilePendingRequestStore struct {
	dir string
	mu  sync.Mutex
}

// NewFilePendingRequestStore creates a pending-request store rooted at dir.
func NewFilePendingRequestStore(dir string) *FilePendingRequestStore {
	return &FilePendingRequestStore{dir: dir}
}

func (s *FilePendingRequestStore) path() string { return filepath.Join(s.dir, pendingFile) }

func (s *FilePendingRequestStore) read() (map[domain.RequestID]domain.PendingRequest, error) {
	m := make(map[domain.RequestID]domain.PendingRequest)
	if err := readJSON(s.path(), &m); err != nil {
		return nil, fmt.Errorf("%w: read pending: %v", domain.ErrPersistence, err)
	}
	return m, nil
}

func (s *FilePendingRequestStore) Save(req domain.PendingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return err
	}
	m[req.ID] = req
	if err := writeJSON(s.path(), m, 0o600); err != nil {
		return fmt.Errorf("%w: write pending: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *FilePendingRequestStore) Load(id domain.RequestID) (domain.PendingRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return domain.PendingRequest{}, false, err
	}
	req, ok := m[id]
	return req, ok, nil
}

func (s *FilePendingRequestStore) Delete(id domain.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return err
	}
	delete(m, id)
	if err := writeJSON(s.path(), m, 0o600); err != nil {
		return fmt.Errorf("%w: write pending: %v", domain.ErrPersistence, err)
	}
	return nil
}

var _ domain.PendingRequestStore = (*FilePendingRequestStore)(nil)

// FileHistoryStore persists handled request ids per topic.
type FileHistoryStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileHistoryStore creates a history store rooted at dir.
func NewFileHistoryStore(dir string) *FileHistoryStore {
	return &FileHistoryStore{dir: dir}
}

func (s *FileHistoryStore) path() string { return filepath.Join(s.dir, historyFile) }

func historyKey(id domain.RequestID, topic domain.Topic) string {
	return fmt.Sprintf("%d:%s", id, topic)
}

func (s *FileHistoryStore) Record(entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]domain.HistoryEntry)
	if err := readJSON(s.path(), &m); err != nil {
		return fmt.Errorf("%w: read history: %v", domain.ErrPersistence, err)
	}
	m[historyKey(entry.RequestID, entry.Topic)] = entry
	if err := writeJSON(s.path(), m, 0o600); err != nil {
		return fmt.Errorf("%w: write history: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *FileHistoryStore) Exists(id domain.RequestID, topic domain.Topic) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]domain.HistoryEntry)
	if err := readJSON(s.path(), &m); err != nil {
		return false, fmt.Errorf("%w: read history: %v", domain.ErrPersistence, err)
	}
	_, ok := m[historyKey(id, topic)]
	return ok, nil
}

var _ domain.HistoryStore = (*FileHistoryStore)(nil)
