package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	schemaVersion = 2
	keySize       = chacha20poly1305.KeySize
)

// blobVersion is authenticated as AAD so a downgraded payload fails to open.
const blobVersion byte = 0x02

var (
	hkdfInfoSecrets = []byte("uigen.secrets.enc.v1")
	hkdfInfoSession = []byte("uigen.session.sign.v1")
)

type Store struct {
	secretsPath string
	keyPath     string
	mu          sync.Mutex
}

type Secrets struct {
	SchemaVersion int    `json:"schema_version"`
	AnthropicKey  string `json:"anthropic_api_key,omitempty"`
	JWTSecret     string `json:"jwt_secret,omitempty"`
}

type encryptedPayload struct {
	SchemaVersion int    `json:"schema_version"`
	Blob          string `json:"blob"`
}

func NewStore(secretsPath, keyPath string) *Store {
	return &Store{secretsPath: secretsPath, keyPath: keyPath}
}

// NewDataDirStore keeps secrets.enc and master.key side by side under dataDir.
func NewDataDirStore(dataDir string) *Store {
	return NewStore(filepath.Join(dataDir, "secrets.enc"), filepath.Join(dataDir, "master.key"))
}

func (s *Store) GetAnthropicKey() (string, error) {
	var key string
	err := s.view(func(sec *Secrets) { key = sec.AnthropicKey })
	return key, err
}

func (s *Store) SetAnthropicKey(key string) error {
	return s.update(func(sec *Secrets) error {
		sec.AnthropicKey = key
		return nil
	})
}

func (s *Store) GetJWTSecret() (string, error) {
	var secret string
	err := s.view(func(sec *Secrets) { secret = sec.JWTSecret })
	return secret, err
}

func (s *Store) SetJWTSecret(secret string) error {
	return s.update(func(sec *Secrets) error {
		sec.JWTSecret = secret
		return nil
	})
}

// SessionSigningKey returns the stored JWT secret, or a key derived from
// master.key when none has been set. The derived key is stable for as long
// as master.key exists.
func (s *Store) SessionSigningKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	if sec.JWTSecret != "" {
		return []byte(sec.JWTSecret), nil
	}
	master, err := s.loadOrCreateKey()
	if err != nil {
		return nil, err
	}
	return deriveKey(master, hkdfInfoSession)
}

func (s *Store) ClearProviderKey(providerID string) error {
	return s.update(func(sec *Secrets) error {
		if providerID != "anthropic" {
			return fmt.Errorf("unsupported provider %q", providerID)
		}
		sec.AnthropicKey = ""
		return nil
	})
}

func (s *Store) view(fn func(*Secrets)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, err := s.readLocked()
	if err != nil {
		return err
	}
	fn(sec)
	return nil
}

// update runs a read-modify-write cycle under the store lock. Nothing is
// written when fn fails.
func (s *Store) update(fn func(*Secrets) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, err := s.readLocked()
	if err != nil {
		return err
	}
	if err := fn(sec); err != nil {
		return err
	}
	return s.writeLocked(sec)
}

func (s *Store) readLocked() (*Secrets, error) {
	data, err := os.ReadFile(s.secretsPath)
	if errors.Is(err, os.ErrNotExist) {
		return &Secrets{SchemaVersion: schemaVersion}, nil
	}
	if err != nil {
		return nil, err
	}
	var payload encryptedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(s.secretsPath), err)
	}
	blob, err := base64.StdEncoding.DecodeString(payload.Blob)
	if err != nil {
		return nil, fmt.Errorf("decode blob: %w", err)
	}
	key, err := s.encryptionKey()
	if err != nil {
		return nil, err
	}
	plain, err := open(blob, key)
	if err != nil {
		return nil, err
	}
	sec := &Secrets{}
	if err := json.Unmarshal(plain, sec); err != nil {
		return nil, err
	}
	if sec.SchemaVersion == 0 {
		sec.SchemaVersion = schemaVersion
	}
	return sec, nil
}

// writeLocked replaces secrets.enc through a temp file so a crash never
// leaves a truncated payload behind.
func (s *Store) writeLocked(sec *Secrets) error {
	key, err := s.encryptionKey()
	if err != nil {
		return err
	}
	plain, err := json.Marshal(sec)
	if err != nil {
		return err
	}
	blob, err := seal(plain, key)
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(encryptedPayload{
		SchemaVersion: schemaVersion,
		Blob:          base64.StdEncoding.EncodeToString(blob),
	}, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.secretsPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".secrets-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.secretsPath)
}

// encryptionKey must be called with s.mu held.
func (s *Store) encryptionKey() ([]byte, error) {
	master, err := s.loadOrCreateKey()
	if err != nil {
		return nil, err
	}
	return deriveKey(master, hkdfInfoSecrets)
}

func (s *Store) loadOrCreateKey() ([]byte, error) {
	key, err := os.ReadFile(s.keyPath)
	if err == nil {
		if len(key) != keySize {
			return nil, errors.New("invalid master key length")
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(s.keyPath), 0o755); err != nil {
		return nil, err
	}
	key = make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	if err := os.WriteFile(s.keyPath, key, 0o600); err != nil {
		return nil, err
	}
	return key, nil
}

func deriveKey(master, info []byte) ([]byte, error) {
	out := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, info), out); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return out, nil
}

// seal lays out [version][nonce][ciphertext+tag].
func seal(plain, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	out := make([]byte, 1+chacha20poly1305.NonceSizeX, 1+chacha20poly1305.NonceSizeX+len(plain)+aead.Overhead())
	out[0] = blobVersion
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, fmt.Errorf("generating random nonce: %w", err)
	}
	nonce := out[1 : 1+chacha20poly1305.NonceSizeX]
	return aead.Seal(out, nonce, plain, []byte{blobVersion}), nil
}

func open(blob, key []byte) ([]byte, error) {
	if len(blob) < 1+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, errors.New("secrets blob too short")
	}
	if blob[0] != blobVersion {
		return nil, fmt.Errorf("secrets blob version %d is not supported", blob[0])
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	plain, err := aead.Open(nil, nonce, blob[1+chacha20poly1305.NonceSizeX:], blob[:1])
	if err != nil {
		return nil, fmt.Errorf("decrypt secrets: %w", err)
	}
	return plain, nil
}
