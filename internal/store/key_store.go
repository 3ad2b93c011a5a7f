package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pairlink/internal/domain"
)

const keyFile = "keys.enc"

// keyData is the decrypted shape of the key file.
type keyData struct {
	Pairs    map[string]domain.X25519Private `json:"pairs"` // pub hex -> priv
	Topics   map[domain.Topic]domain.TopicKeys `json:"topics"`
	Identity string                          `json:"identity,omitempty"`
}

// FileKeyStorage persists key pairs and topic bindings in a single
// passphrase-sealed file.
type FileKeyStorage struct {
	dir        string
	passphrase string
	mu         sync.Mutex
}

// NewFileKeyStorage creates a key storage rooted at dir.
func NewFileKeyStorage(dir, passphrase string) *FileKeyStorage {
	return &FileKeyStorage{dir: dir, passphrase: passphrase}
}

func (s *FileKeyStorage) load() (keyData, error) {
	data := keyData{
		Pairs:  make(map[string]domain.X25519Private),
		Topics: make(map[domain.Topic]domain.TopicKeys),
	}
	b, err := readFile(filepath.Join(s.dir, keyFile))
	if err != nil {
		return data, fmt.Errorf("%w: read key file: %v", domain.ErrPersistence, err)
	}
	if b == nil {
		return data, nil
	}
	raw, err := open(s.passphrase, b)
	if err != nil {
		return data, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("%w: decode key file: %v", domain.ErrPersistence, err)
	}
	if data.Pairs == nil {
		data.Pairs = make(map[string]domain.X25519Private)
	}
	if data.Topics == nil {
		data.Topics = make(map[domain.Topic]domain.TopicKeys)
	}
	return data, nil
}

func (s *FileKeyStorage) save(data keyData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: encode key file: %v", domain.ErrPersistence, err)
	}
	N, r, p := scryptParamsDefault()
	sealed, err := seal(s.passphrase, raw, N, r, p)
	if err != nil {
		return fmt.Errorf("%w: seal key file: %v", domain.ErrPersistence, err)
	}
	if err := writeFile(filepath.Join(s.dir, keyFile), sealed, os.FileMode(0o600)); err != nil {
		return fmt.Errorf("%w: write key file: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *FileKeyStorage) SaveKeyPair(pub domain.X25519Public, priv domain.X25519Private) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data.Pairs[pub.Hex()] = priv
	return s.save(data)
}

func (s *FileKeyStorage) LoadKeyPair(pub domain.X25519Public) (domain.X25519Private, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return domain.X25519Private{}, false, err
	}
	priv, ok := data.Pairs[pub.Hex()]
	return priv, ok, nil
}

func (s *FileKeyStorage) DeleteKeyPair(pub domain.X25519Public) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	delete(data.Pairs, pub.Hex())
	return s.save(data)
}

func (s *FileKeyStorage) SaveTopicKeys(topic domain.Topic, keys domain.TopicKeys) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data.Topics[topic] = keys
	return s.save(data)
}

func (s *FileKeyStorage) LoadTopicKeys(topic domain.Topic) (domain.TopicKeys, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return domain.TopicKeys{}, false, err
	}
	keys, ok := data.Topics[topic]
	return keys, ok, nil
}

func (s *FileKeyStorage) DeleteTopicKeys(topic domain.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	delete(data.Topics, topic)
	return s.save(data)
}

func (s *FileKeyStorage) SaveIdentity(pub domain.X25519Public) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data.Identity = pub.Hex()
	return s.save(data)
}

func (s *FileKeyStorage) LoadIdentity() (domain.X25519Public, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return domain.X25519Public{}, false, err
	}
	if data.Identity == "" {
		return domain.X25519Public{}, false, nil
	}
	pub, err := domain.ParsePublicKey(data.Identity)
	if err != nil {
		return domain.X25519Public{}, false, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return pub, true, nil
}

var _ domain.KeyStorage = (*FileKeyStorage)(nil)
