package store

import (
	"sync"

	"pairlink/internal/domain"
)

// MemoryKeyStorage is an in-memory KeyStorage for tests and ephemeral
// engines.
type MemoryKeyStorage struct {
	mu       sync.RWMutex
	pairs    map[string]domain.X25519Private
	topics   map[domain.Topic]domain.TopicKeys
	identity *domain.X25519Public
}

// NewMemoryKeyStorage creates an empty in-memory key storage.
func NewMemoryKeyStorage() *MemoryKeyStorage {
	return &MemoryKeyStorage{
		pairs:  make(map[string]domain.X25519Private),
		topics: make(map[domain.Topic]domain.TopicKeys),
	}
}

func (s *MemoryKeyStorage) SaveKeyPair(pub domain.X25519Public, priv domain.X25519Private) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[pub.Hex()] = priv
	return nil
}

func (s *MemoryKeyStorage) LoadKeyPair(pub domain.X25519Public) (domain.X25519Private, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	priv, ok := s.pairs[pub.Hex()]
	return priv, ok, nil
}

func (s *MemoryKeyStorage) DeleteKeyPair(pub domain.X25519Public) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pairs, pub.Hex())
	return nil
}

func (s *MemoryKeyStorage) SaveTopicKeys(topic domain.Topic, keys domain.TopicKeys) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[topic] = keys
	return nil
}

func (s *MemoryKeyStorage) LoadTopicKeys(topic domain.Topic) (domain.TopicKeys, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys, ok := s.topics[topic]
	return keys, ok, nil
}

func (s *MemoryKeyStorage) DeleteTopicKeys(topic domain.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.topics, topic)
	return nil
}

func (s *MemoryKeyStorage) SaveIdentity(pub domain.X25519Public) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := pub
	s.identity = &p
	return nil
}

func (s *MemoryKeyStorage) LoadIdentity() (domain.X25519Public, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return domain.X25519Public{}, false, nil
	}
	return *s.identity, true, nil
}

var _ domain.KeyStorage = (*MemoryKeyStorage)(nil)

// MemoryRelationshipStore is an in-memory RelationshipStore.
type MemoryRelationshipStore struct {
	mu   sync.RWMutex
	recs map[domain.Topic]domain.RelationshipRecord
}

// NewMemoryRelationshipStore creates an empty in-memory relationship store.
func NewMemoryRelationshipStore() *MemoryRelationshipStore {
	return &MemoryRelationshipStore{recs: make(map[domain.Topic]domain.RelationshipRecord)}
}

func (s *MemoryRelationshipStore) Save(rec domain.RelationshipRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.Topic] = rec
	return nil
}

func (s *MemoryRelationshipStore) Load(topic domain.Topic) (domain.RelationshipRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[topic]
	return rec, ok, nil
}

func (s *MemoryRelationshipStore) LoadByRequestID(id domain.RequestID) (domain.RelationshipRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.recs {
		if rec.RequestID == id {
			return rec, true, nil
		}
	}
	return domain.RelationshipRecord{}, false, nil
}

func (s *MemoryRelationshipStore) Delete(topic domain.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, topic)
	return nil
}

func (s *MemoryRelationshipStore) List() ([]domain.RelationshipRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RelationshipRecord, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec)
	}
	return out, nil
}

var _ domain.RelationshipStore = (*MemoryRelationshipStore)(nil)

// MemoryPendingRequestStore is an in-memory PendingRequestStore.
type MemoryPendingRequestStore struct {
	mu   sync.RWMutex
	reqs map[domain.RequestID]domain.PendingRequest
}

// NewMemoryPendingRequestStore creates an empty in-memory pending store.
func NewMemoryPendingRequestStore() *MemoryPendingRequestStore {
	return &MemoryPendingRequestStore{reqs: make(map[domain.RequestID]domain.PendingRequest)}
}

func (s *MemoryPendingRequestStore) Save(req domain.PendingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs[req.ID] = req
	return nil
}

func (s *MemoryPendingRequestStore) Load(id domain.RequestID) (domain.PendingRequest, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.reqs[id]
	return req, ok, nil
}

func (s *MemoryPendingRequestStore) Delete(id domain.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reqs, id)
	return nil
}

var _ domain.PendingRequestStore = (*MemoryPendingRequestStore)(nil)

// MemoryHistoryStore is an in-memory HistoryStore.
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.HistoryEntry
}

// NewMemoryHistoryStore creates an empty in-memory history store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{entries: make(map[string]domain.HistoryEntry)}
}

func (s *MemoryHistoryStore) Record(entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[historyKey(entry.RequestID, entry.Topic)] = entry
	return nil
}

func (s *MemoryHistoryStore) Exists(id domain.RequestID, topic domain.Topic) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[historyKey(id, topic)]
	return ok, nil
}

var _ domain.HistoryStore = (*MemoryHistoryStore)(nil)
