package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// ErrWrongPassphrase indicates the encrypted clients file could not be
// decrypted with the supplied passphrase.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupt clients file")

// encryptedDocument is the on-disk shape of an encrypted clients file
type encryptedDocument struct {
	Salt      string `json:"salt"`
	Nonce     string `json:"nonce"`
	Encrypted string `json:"encrypted"`
}

// LoadEncrypted reads credential pairs from an AES-GCM encrypted clients
// file. The key is derived from the passphrase with PBKDF2-SHA256.
func LoadEncrypted(path, passphrase string) ([]Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read encrypted clients file %s: %w", path, err)
	}

	var doc encryptedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse encrypted clients file %s: %w", path, err)
	}

	salt, err := base64.StdEncoding.DecodeString(doc.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	nonce, err := base64.StdEncoding.DecodeString(doc.Nonce)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	ciphertext, err := base64.StdEncoding.DecodeString(doc.Encrypted)
	if err != nil {
		return nil, ErrWrongPassphrase
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrWrongPassphrase
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}

	return parse(plaintext, path)
}

// SaveEncrypted writes credential pairs to an encrypted clients file,
// replacing it atomically.
func SaveEncrypted(path, passphrase string, creds []Credential) error {
	plaintext, err := json.Marshal(document{Clients: creds})
	if err != nil {
		return fmt.Errorf("failed to marshal clients: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	doc := encryptedDocument{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Nonce:     base64.StdEncoding.EncodeToString(nonce),
		Encrypted: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, plaintext, nil)),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal encrypted clients: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write encrypted clients file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace encrypted clients file: %w", err)
	}
	return nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
