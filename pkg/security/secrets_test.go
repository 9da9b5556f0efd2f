package security

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStrongKey(t *testing.T) {
	tests := []struct {
		name    string
		key     []byte
		wantErr bool
	}{
		{"valid 32-byte key", make([]byte, 32), false},
		{"invalid short key", make([]byte, 16), true},
		{"invalid long key", make([]byte, 64), true},
		{"empty key", []byte{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := NewStrongKey(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, k)
		})
	}
}

func TestStrongKeyEncryptDecryptRoundTrip(t *testing.T) {
	k, err := GenerateStrongKey()
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"simple string", []byte("hello world")},
		{"json data", []byte(`{"clientName":{"first":"Ada","last":"Lovelace"}}`)},
		{"binary data", []byte{0x00, 0x01, 0x02, 0xFF, 0xFE, 0xFD}},
		{"large data", bytes.Repeat([]byte("test"), 1000)},
		{"empty plaintext", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := k.Encrypt(tt.plaintext)
			require.NoError(t, err)
			require.False(t, bytes.Equal(ciphertext, tt.plaintext))

			decrypted, err := k.Decrypt(ciphertext)
			require.NoError(t, err)
			require.Equal(t, tt.plaintext, decrypted)
		})
	}
}

func TestStrongKeyEncryptIsNonDeterministic(t *testing.T) {
	k, err := GenerateStrongKey()
	require.NoError(t, err)

	plaintext := []byte("same plaintext")
	a, err := k.Encrypt(plaintext)
	require.NoError(t, err)
	b, err := k.Encrypt(plaintext)
	require.NoError(t, err)
	require.False(t, bytes.Equal(a, b), "strong encryption must be non-deterministic")
}

func TestStrongKeyDecryptErrors(t *testing.T) {
	k, err := GenerateStrongKey()
	require.NoError(t, err)

	tests := []struct {
		name       string
		ciphertext []byte
	}{
		{"empty", []byte{}},
		{"nil", nil},
		{"too short", []byte{0x01, 0x02}},
		{"corrupted", bytes.Repeat([]byte("x"), 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.Decrypt(tt.ciphertext)
			require.Error(t, err)
		})
	}
}

func TestStrongKeyDecryptDetectsTamper(t *testing.T) {
	k, err := GenerateStrongKey()
	require.NoError(t, err)

	ciphertext, err := k.Encrypt([]byte("payload"))
	require.NoError(t, err)
	ciphertext[len(ciphertext)-1] ^= 0xFF

	_, err = k.Decrypt(ciphertext)
	require.Error(t, err)
}

func TestStrongKeyDecryptWithWrongKeyFails(t *testing.T) {
	k1, err := GenerateStrongKey()
	require.NoError(t, err)
	k2, err := GenerateStrongKey()
	require.NoError(t, err)

	ciphertext, err := k1.Encrypt([]byte("secret data"))
	require.NoError(t, err)

	_, err = k2.Decrypt(ciphertext)
	require.Error(t, err)
}

func TestWeakKeyDeterministic(t *testing.T) {
	strong, err := GenerateStrongKey()
	require.NoError(t, err)
	weak := DeriveWeakKey(strong, 5)

	plaintext := []byte("Lovelace\x00SR-1")
	a, err := weak.Encrypt(plaintext)
	require.NoError(t, err)
	b, err := weak.Encrypt(plaintext)
	require.NoError(t, err)
	require.Equal(t, a, b, "weak encryption must be deterministic for identical plaintexts")

	decrypted, err := weak.Decrypt(a)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestWeakKeyDifferentPlaintextsDiffer(t *testing.T) {
	strong, err := GenerateStrongKey()
	require.NoError(t, err)
	weak := DeriveWeakKey(strong, 5)

	a, err := weak.Encrypt([]byte("Lovelace"))
	require.NoError(t, err)
	b, err := weak.Encrypt([]byte("Byron"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestDeriveWeakKeyDistinctPerLevel(t *testing.T) {
	strong, err := GenerateStrongKey()
	require.NoError(t, err)

	w5 := DeriveWeakKey(strong, 5)
	w6 := DeriveWeakKey(strong, 6)

	a, err := w5.Encrypt([]byte("x"))
	require.NoError(t, err)
	b, err := w6.Encrypt([]byte("x"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestWeakKeyDecryptTooShort(t *testing.T) {
	strong, err := GenerateStrongKey()
	require.NoError(t, err)
	weak := DeriveWeakKey(strong, 5)

	_, err = weak.Decrypt([]byte{0x01})
	require.Error(t, err)
}

func TestDeriveLoginKeyDeterministicPerSalt(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	k1, err := DeriveLoginKey("correct horse battery staple", salt)
	require.NoError(t, err)
	k2, err := DeriveLoginKey("correct horse battery staple", salt)
	require.NoError(t, err)
	require.Equal(t, k1.Bytes(), k2.Bytes())

	otherSalt, err := GenerateSalt()
	require.NoError(t, err)
	k3, err := DeriveLoginKey("correct horse battery staple", otherSalt)
	require.NoError(t, err)
	require.NotEqual(t, k1.Bytes(), k3.Bytes())
}

func TestDeriveLoginKeyEmptyPassword(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	_, err = DeriveLoginKey("", salt)
	require.Error(t, err)
}

func TestGenerateSaltUnique(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	b, err := GenerateSalt()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.Len(t, a, 16)
}
