package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	// KeySize is the size in bytes of both the strong and weak keys
	// (AES-256).
	KeySize = 32

	scryptN = 1 << 15 // 32768, interactive-login cost parameter
	scryptR = 8
	scryptP = 1
)

// StrongKey authenticates and encrypts object payloads with AES-256-GCM.
// Two encryptions of the same plaintext never produce the same ciphertext.
type StrongKey struct {
	key []byte
}

// NewStrongKey wraps a 32-byte key for use with Encrypt/Decrypt.
func NewStrongKey(key []byte) (*StrongKey, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("security: strong key must be %d bytes, got %d", KeySize, len(key))
	}
	return &StrongKey{key: key}, nil
}

// GenerateStrongKey returns a fresh random strong key, used once per
// account at setup time.
func GenerateStrongKey() (*StrongKey, error) {
	buf := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("security: generating strong key: %w", err)
	}
	return &StrongKey{key: buf}, nil
}

// Bytes returns the raw key material, for wrapping/persisting it under a
// login-derived key.
func (k *StrongKey) Bytes() []byte { return k.key }

// Encrypt authenticates and encrypts plaintext, returning nonce||ciphertext.
func (k *StrongKey) Encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := k.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("security: generating nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt authenticates and decrypts data produced by Encrypt.
func (k *StrongKey) Decrypt(data []byte) ([]byte, error) {
	gcm, err := k.gcm()
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("security: ciphertext too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("security: decrypt: %w", err)
	}
	return plaintext, nil
}

func (k *StrongKey) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, fmt.Errorf("security: new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// WeakKey encrypts filenames: deterministic for identical plaintexts under
// one key, with short (16-byte) overhead. It is not authenticated; the
// engine compensates by embedding the physical path inside the
// strong-encrypted payload and checking it on every read (see pkg/store's
// tamper detection).
type WeakKey struct {
	key []byte
}

// DeriveWeakKey derives a filename key from the strong key and a security
// level (call sites use 5; the parameter's exact meaning beyond "distinct
// key per level" is not specified upstream, see DESIGN.md). "Level 5" names
// the key-derivation input, not the IV size below; the 16-byte IV is fixed
// by AES's block size regardless of level.
func DeriveWeakKey(strong *StrongKey, level int) *WeakKey {
	mac := hmac.New(sha256.New, strong.key)
	fmt.Fprintf(mac, "weak-key-level:%d", level)
	return &WeakKey{key: mac.Sum(nil)}
}

// Encrypt deterministically encrypts plaintext. The same plaintext under
// the same key always produces the same ciphertext, which is required so
// list() can correlate directory names across invocations without storing
// a separate index.
//
// Construction: a synthetic IV is HMAC-SHA256(key, plaintext)[:16] (a
// SIV-style derivation over stdlib primitives), then AES-CTR with that IV
// encrypts the plaintext. Output is iv||ciphertext, 16 bytes of overhead.
func (k *WeakKey) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, fmt.Errorf("security: new cipher: %w", err)
	}

	mac := hmac.New(sha256.New, k.key)
	mac.Write(plaintext)
	iv := mac.Sum(nil)[:block.BlockSize()]

	out := make([]byte, len(iv)+len(plaintext))
	copy(out, iv)
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(out[len(iv):], plaintext)
	return out, nil
}

// Decrypt reverses Encrypt. There is no authentication: a corrupted or
// relocated ciphertext decrypts to garbage rather than failing outright,
// which is why every read path re-validates the decrypted filename
// against the decrypted payload's embedded context.
func (k *WeakKey) Decrypt(data []byte) ([]byte, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, fmt.Errorf("security: new cipher: %w", err)
	}
	ivLen := block.BlockSize()
	if len(data) < ivLen {
		return nil, fmt.Errorf("security: weak ciphertext too short")
	}
	iv, ciphertext := data[:ivLen], data[ivLen:]
	out := make([]byte, len(ciphertext))
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(out, ciphertext)
	return out, nil
}

// DeriveLoginKey derives a key-wrapping key from a user's password and
// per-user salt using scrypt. The result is used only to wrap/unwrap the
// account's strong key on disk; it is never itself used to encrypt
// objects and the password is never written anywhere.
func DeriveLoginKey(password string, salt []byte) (*StrongKey, error) {
	if password == "" {
		return nil, fmt.Errorf("security: password cannot be empty")
	}
	derived, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, KeySize)
	if err != nil {
		return nil, fmt.Errorf("security: deriving login key: %w", err)
	}
	return &StrongKey{key: derived}, nil
}

// GenerateSalt returns fresh random salt for a new account.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("security: generating salt: %w", err)
	}
	return salt, nil
}
