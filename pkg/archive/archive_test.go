package archive

import (
	"archive/zip"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTree writes a small directory tree to archive in tests
func makeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "notes", "deep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes", "a.txt"), []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes", "deep", "b.txt"), []byte("beta"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "single.txt"), []byte("solo"), 0644))

	return dir
}

func TestCreate(t *testing.T) {
	dir := makeTree(t)
	out := filepath.Join(t.TempDir(), "bundle.zip")

	summary, err := Create(out, []string{
		filepath.Join(dir, "notes"),
		filepath.Join(dir, "single.txt"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Files)
	assert.Equal(t, int64(len("alpha")+len("beta")+len("solo")), summary.Bytes)

	r, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	// Entries are sorted, directories keep their top-level name
	assert.Equal(t, []string{"notes/a.txt", "notes/deep/b.txt", "single.txt"}, names)

	rc, err := r.File[0].Open()
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(content))
}

func TestCreateMissingInput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bundle.zip")
	_, err := Create(out, []string{filepath.Join(t.TempDir(), "ghost")})
	require.Error(t, err)
	assert.NoFileExists(t, out)
}

func TestCreateNothing(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "bundle.zip"), nil)
	require.Error(t, err)
}

func TestMail(t *testing.T) {
	dir := makeTree(t)
	out := filepath.Join(t.TempDir(), "bundle.eml")

	summary, err := Mail(out, []string{filepath.Join(dir, "notes")}, MailOptions{
		From:    "me@example.com",
		To:      "you@example.com",
		Subject: "weekly notes",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Files)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	require.NoError(t, err)
	assert.Equal(t, "weekly notes", msg.Header.Get("Subject"))
	assert.Equal(t, "me@example.com", msg.Header.Get("From"))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])

	// First part: plain-text summary
	part, err := mr.NextPart()
	require.NoError(t, err)
	text, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Contains(t, string(text), "bundle.zip")

	// Second part: the zip, base64-encoded in 76-char lines
	part, err = mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "base64", part.Header.Get("Content-Transfer-Encoding"))
	assert.Contains(t, part.Header.Get("Content-Disposition"), "bundle.zip")

	raw, err := io.ReadAll(part)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}

	decoded, err := base64.StdEncoding.DecodeString(
		strings.ReplaceAll(strings.TrimSpace(string(raw)), "\r\n", ""))
	require.NoError(t, err)

	zr, err := zip.NewReader(strings.NewReader(string(decoded)), int64(len(decoded)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)
}

func TestMailDefaultSubject(t *testing.T) {
	dir := makeTree(t)
	out := filepath.Join(t.TempDir(), "stuff.eml")

	_, err := Mail(out, []string{filepath.Join(dir, "single.txt")}, MailOptions{})
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	require.NoError(t, err)
	assert.Equal(t, "stuff.zip", msg.Header.Get("Subject"))
}
