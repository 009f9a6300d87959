package crypt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"short", []byte("hello")},
		{"exact block", bytes.Repeat([]byte("x"), 16)},
		{"multi block", bytes.Repeat([]byte("secret data "), 100)},
		{"binary", []byte{0x00, 0xff, 0x10, 0x80, 0x7f}},
	}

	passphrase := []byte("correct horse battery staple")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := Encrypt(tt.plaintext, passphrase)
			require.NoError(t, err)

			opened, err := Decrypt(sealed, passphrase)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, opened)
		})
	}
}

func TestHeaderLayout(t *testing.T) {
	sealed, err := Encrypt([]byte("data"), []byte("pw"))
	require.NoError(t, err)

	lines := strings.SplitN(string(sealed), "\n", 3)
	require.Len(t, lines, 3)
	assert.Equal(t, Magic, lines[0])
	assert.Len(t, lines[1], SaltSize*2) // hex-encoded salt
}

func TestSaltIsFresh(t *testing.T) {
	a, err := Encrypt([]byte("data"), []byte("pw"))
	require.NoError(t, err)
	b, err := Encrypt([]byte("data"), []byte("pw"))
	require.NoError(t, err)

	// Same input, different salt, different ciphertext
	assert.NotEqual(t, a, b)
}

func TestWrongPassphrase(t *testing.T) {
	sealed, err := Encrypt([]byte("sensitive"), []byte("right"))
	require.NoError(t, err)

	_, err = Decrypt(sealed, []byte("wrong"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCryptPassphrase))
}

func TestEmptyPassphrase(t *testing.T) {
	_, err := Encrypt([]byte("x"), nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCryptPassphrase))

	_, err = Decrypt([]byte("x"), nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCryptPassphrase))
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"wrong magic", "NOTMAGIC\nabcd\n"},
		{"missing salt line", Magic + "\n"},
		{"bad salt hex", Magic + "\nzzzz\nct"},
		{"short salt", Magic + "\nabcd\nct"},
		{"unaligned ciphertext", Magic + "\n" + strings.Repeat("ab", SaltSize) + "\nshort"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decrypt([]byte(tt.data), []byte("pw"))
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrCryptFormat), "got %v", err)
		})
	}
}

func TestUnpad(t *testing.T) {
	_, err := unpad([]byte{})
	assert.Error(t, err)

	_, err = unpad(bytes.Repeat([]byte{0x00}, 16))
	assert.Error(t, err)

	_, err = unpad(bytes.Repeat([]byte{17}, 16))
	assert.Error(t, err)

	got, err := unpad(append(bytes.Repeat([]byte{'a'}, 12), 4, 4, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, []byte("aaaaaaaaaaaa"), got)
}
