// Package crypt implements the BWENC1 file encryption format.
//
// The on-disk layout is a two-line text header followed by raw ciphertext:
//
//	BWENC1\n
//	<hex-encoded 16-byte salt>\n
//	<AES-256-CBC ciphertext, PKCS#7 padded>
//
// Key and IV are derived with PBKDF2-HMAC-SHA256 over the passphrase and
// salt. The iteration count matches the 'openssl enc -pbkdf2' default so
// files remain interchangeable with the original OpenSSL wrapper.
package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"

	"github.com/dotkeep/dotkeep/pkg/errors"
)

const (
	// Magic is the first header line identifying the format
	Magic = "BWENC1"

	// SaltSize is the salt length in bytes
	SaltSize = 16

	// Iterations is the PBKDF2 iteration count (openssl enc -pbkdf2 default)
	Iterations = 10000

	keySize = 32
	ivSize  = aes.BlockSize
)

// deriveKeyIV stretches the passphrase into an AES-256 key and CBC IV
func deriveKeyIV(passphrase, salt []byte) (key, iv []byte) {
	material := pbkdf2.Key(passphrase, salt, Iterations, keySize+ivSize, sha256.New)
	return material[:keySize], material[keySize:]
}

// Encrypt seals plaintext under the passphrase, producing a complete
// BWENC1 file image.
func Encrypt(plaintext, passphrase []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, errors.New(errors.ErrCryptPassphrase, "empty passphrase")
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot generate salt")
	}

	key, iv := deriveKeyIV(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot initialize cipher")
	}

	padded := pad(plaintext)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	var out bytes.Buffer
	out.WriteString(Magic)
	out.WriteByte('\n')
	out.WriteString(hex.EncodeToString(salt))
	out.WriteByte('\n')
	out.Write(ciphertext)
	return out.Bytes(), nil
}

// Decrypt opens a BWENC1 file image with the passphrase.
func Decrypt(data, passphrase []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, errors.New(errors.ErrCryptPassphrase, "empty passphrase")
	}

	salt, ciphertext, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	if len(ciphertext)%aes.BlockSize != 0 || len(ciphertext) == 0 {
		return nil, errors.New(errors.ErrCryptFormat, "ciphertext is not block aligned")
	}

	key, iv := deriveKeyIV(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot initialize cipher")
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := unpad(plaintext)
	if err != nil {
		// Bad padding almost always means a wrong passphrase
		return nil, errors.Wrap(err, errors.ErrCryptPassphrase, "cannot decrypt")
	}
	return unpadded, nil
}

// parseHeader validates the magic and salt lines and returns the salt and
// the remaining ciphertext.
func parseHeader(data []byte) (salt, ciphertext []byte, err error) {
	magicLine, rest, ok := bytes.Cut(data, []byte{'\n'})
	if !ok || string(magicLine) != Magic {
		return nil, nil, errors.Newf(errors.ErrCryptFormat, "missing %s header", Magic)
	}

	saltLine, rest, ok := bytes.Cut(rest, []byte{'\n'})
	if !ok {
		return nil, nil, errors.New(errors.ErrCryptFormat, "missing salt line")
	}

	salt, err = hex.DecodeString(string(saltLine))
	if err != nil || len(salt) != SaltSize {
		return nil, nil, errors.New(errors.ErrCryptFormat, "invalid salt line")
	}

	return salt, rest, nil
}

// pad applies PKCS#7 padding up to the AES block size
func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips and validates PKCS#7 padding
func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, errors.New(errors.ErrCryptFormat, "invalid padded length")
	}

	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, errors.New(errors.ErrCryptFormat, "invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New(errors.ErrCryptFormat, "invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
