/*
Package security implements the two key types the vault store encrypts
everything with, plus password-based key derivation for login.

StrongKey is AES-256-GCM: random nonce per call, so two encryptions of
the same plaintext never match. It authenticates and encrypts every
object payload.

WeakKey is derived from a StrongKey and an integer security level via
HMAC-SHA256, then used for AES-CTR encryption with a synthetic IV
computed as HMAC-SHA256(weakKey, plaintext)[:aes.BlockSize], so the same
plaintext under the same key always produces the same ciphertext. This
determinism is what lets filesystem entry names be both encrypted and
listable without a separate index.

DeriveLoginKey wraps golang.org/x/crypto/scrypt with interactive-login
parameters (N=32768, r=8, p=1) to turn a password and salt into the key
that wraps an account's strong key at rest.
*/
package security
