// Package vault provides authenticated encryption for provider API keys at
// rest. Secrets are sealed with AES-256-GCM under a key derived once per
// process from the master secret via Argon2id.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	// NonceSize is the AES-GCM nonce size (96 bits).
	NonceSize = 12
	// TagSize is the GCM authentication tag size (128 bits).
	TagSize = 16
	// KeySize is the derived AES-256 key size.
	KeySize = 32
)

// Argon2id parameters for deriving the vault key from the master secret.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// derivationSalt is a fixed application salt used purely for domain
// separation; the master secret itself is high-entropy.
var derivationSalt = []byte("parley.credential-vault.v1")

var (
	// ErrValidation indicates an empty plaintext or blob.
	ErrValidation = errors.New("vault: empty input")
	// ErrFormat indicates a blob that is not valid base64 or is too short
	// to contain a nonce and tag.
	ErrFormat = errors.New("vault: malformed blob")
	// ErrIntegrity indicates the authentication tag did not verify.
	ErrIntegrity = errors.New("vault: integrity check failed")
	// ErrNoSecret indicates the vault was constructed without a master secret.
	ErrNoSecret = errors.New("vault: master secret not configured")
)

// Vault encrypts and decrypts credential blobs. It is safe for concurrent
// use; the key derivation runs at most once per Vault.
type Vault struct {
	secret string

	once    sync.Once
	aead    cipher.AEAD
	initErr error
}

// New creates a Vault for the given master secret. The key is not derived
// until first use.
func New(masterSecret string) *Vault {
	return &Vault{secret: masterSecret}
}

// init derives the AES key and builds the GCM cipher. Guarded by sync.Once
// so concurrent first callers never race or observe a partial key.
func (v *Vault) init() {
	if v.secret == "" {
		v.initErr = ErrNoSecret
		return
	}

	key := argon2.IDKey([]byte(v.secret), derivationSalt, argonTime, argonMemory, argonThreads, KeySize)

	block, err := aes.NewCipher(key)
	if err != nil {
		v.initErr = fmt.Errorf("vault: create cipher: %w", err)
		return
	}

	v.aead, err = cipher.NewGCM(block)
	if err != nil {
		v.initErr = fmt.Errorf("vault: create GCM: %w", err)
	}
}

// cipherInstance returns the memoized AEAD, deriving the key on first call.
func (v *Vault) cipherInstance() (cipher.AEAD, error) {
	v.once.Do(v.init)
	if v.initErr != nil {
		return nil, v.initErr
	}
	return v.aead, nil
}

// Encrypt seals plaintext and returns base64(nonce || tag || ciphertext).
// A fresh random nonce is generated on every call.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrValidation
	}

	aead, err := v.cipherInstance()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: generate nonce: %w", err)
	}

	// Seal produces ciphertext || tag; the stored layout puts the tag
	// between nonce and ciphertext.
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	blob := make([]byte, 0, NonceSize+TagSize+len(ct))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt and returns the plaintext.
// It never returns unverified plaintext: any bit flip in the nonce, tag, or
// ciphertext yields ErrIntegrity.
func (v *Vault) Decrypt(blob string) (string, error) {
	if blob == "" {
		return "", ErrValidation
	}

	aead, err := v.cipherInstance()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrFormat
	}
	if len(raw) < NonceSize+TagSize {
		return "", ErrFormat
	}

	nonce := raw[:NonceSize]
	tag := raw[NonceSize : NonceSize+TagSize]
	ct := raw[NonceSize+TagSize:]

	// Reassemble ciphertext || tag for GCM.
	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrIntegrity
	}

	return string(plaintext), nil
}
