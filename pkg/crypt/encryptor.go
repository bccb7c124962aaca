package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/go-playground/validator.v9"
)

// Encryptor seals short facts (browser session ids) into opaque hex tokens.
// Each token carries its own random nonce.
type Encryptor struct {
	Gcm cipher.AEAD `validate:"required"`
}

var validate = validator.New()

func NewEncryptor(privateKey string) *Encryptor {
	if privateKey == "" {
		panic("PrivateKey is required to create Encryptor")
	}
	key := sha256.Sum256([]byte(privateKey))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		panic(err.Error())
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		panic(err.Error())
	}

	encryptor := &Encryptor{Gcm: gcm}
	if err := validate.Struct(encryptor); err != nil {
		panic(err.Error())
	}
	return encryptor
}

func (encryptor *Encryptor) EncryptFact(fact string) (string, error) {
	nonce := make([]byte, encryptor.Gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, "error generating nonce")
	}
	sealed := encryptor.Gcm.Seal(nonce, nonce, []byte(fact), nil)
	return hex.EncodeToString(sealed), nil
}

func (encryptor *Encryptor) DecryptFact(encryptedFact string) (string, error) {
	encryptedBytes, err := hex.DecodeString(encryptedFact)
	if err != nil {
		return "", errors.Wrap(err, "error decoding token")
	}
	nonceSize := encryptor.Gcm.NonceSize()
	if len(encryptedBytes) < nonceSize {
		return "", errors.New("token is too short")
	}
	nonce, ciphertext := encryptedBytes[:nonceSize], encryptedBytes[nonceSize:]
	plaintext, err := encryptor.Gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Wrap(err, "error opening token")
	}
	return string(plaintext), nil
}
