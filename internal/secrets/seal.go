package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4

	// maxCachedKeys bounds the derived-key cache.
	maxCachedKeys = 32

	// sealedPrefix marks a value produced by Seal. Values without it are
	// treated as plaintext written before a key was configured.
	sealedPrefix = "sealed:v1:"
)

var (
	ErrNoKey     = errors.New("no secret key configured")
	ErrMalformed = errors.New("malformed sealed value")
)

// Sealer encrypts short credential strings with AES-256-GCM under a key
// derived from a passphrase with Argon2id. Each value gets its own salt.
// Derived keys are cached by salt so opening the same value repeatedly
// runs Argon2id once.
type Sealer struct {
	passphrase string

	mu      sync.Mutex
	keys    map[string][]byte
	derived int
}

func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrNoKey
	}
	return &Sealer{passphrase: passphrase, keys: make(map[string][]byte)}, nil
}

func (s *Sealer) key(salt []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.keys[string(salt)]; ok {
		return k
	}
	k := argon2.IDKey([]byte(s.passphrase), salt, argonTime, argonMem, argonPar, keySize)
	s.derived++
	if len(s.keys) >= maxCachedKeys {
		clear(s.keys)
	}
	s.keys[string(salt)] = k
	return k
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// Seal returns "sealed:v1:" followed by base64 of salt, nonce and ciphertext.
func (s *Sealer) Seal(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	gcm, err := newGCM(s.key(salt))
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, []byte(plaintext), nil)

	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values that were never sealed are returned unchanged.
func (s *Sealer) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode: %w", ErrMalformed)
	}
	if len(data) < saltSize+nonceSize {
		return "", ErrMalformed
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	ciphertext := data[saltSize+nonceSize:]

	gcm, err := newGCM(s.key(salt))
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}
