// Package archive zips files and directories, and can wrap the result
// into an email message with the zip as a base64 attachment.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/dotkeep/dotkeep/pkg/logging"
)

// Summary reports what went into an archive
type Summary struct {
	Path  string
	Files int
	Bytes int64
}

// entry is one file headed for the zip, with the name it gets inside
type entry struct {
	source string
	name   string
}

// collect expands the given paths into zip entries. Directories are
// walked recursively; entry names are relative to the argument's parent
// so the archive unpacks into recognizable top-level names.
func collect(paths []string) ([]entry, error) {
	var entries []entry
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileNotFound, "cannot archive %s", path)
		}

		if !info.IsDir() {
			entries = append(entries, entry{source: path, name: filepath.Base(path)})
			continue
		}

		root := filepath.Clean(path)
		prefix := filepath.Base(root)
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			entries = append(entries, entry{
				source: p,
				name:   filepath.ToSlash(filepath.Join(prefix, rel)),
			})
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot walk %s", path)
		}
	}

	// Deterministic archive layout regardless of argument order
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	for i := 1; i < len(entries); i++ {
		if entries[i].name == entries[i-1].name {
			return nil, errors.Newf(errors.ErrInvalidInput,
				"duplicate archive entry %q", entries[i].name)
		}
	}
	return entries, nil
}

// writeZip streams the entries into w as a zip archive
func writeZip(w io.Writer, entries []entry) (int64, error) {
	zw := zip.NewWriter(w)

	var total int64
	for _, e := range entries {
		info, err := os.Stat(e.source)
		if err != nil {
			return total, errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", e.source)
		}

		header := &zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: info.ModTime(),
		}
		header.SetMode(info.Mode())

		dst, err := zw.CreateHeader(header)
		if err != nil {
			return total, errors.Wrap(err, errors.ErrInternal, "cannot create zip entry")
		}

		src, err := os.Open(e.source)
		if err != nil {
			return total, errors.Wrapf(err, errors.ErrFileAccess, "cannot open %s", e.source)
		}
		n, err := io.Copy(dst, src)
		src.Close()
		if err != nil {
			return total, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", e.source)
		}
		total += n
	}

	if err := zw.Close(); err != nil {
		return total, errors.Wrap(err, errors.ErrInternal, "cannot finalize zip")
	}
	return total, nil
}

// Create zips the given files and directories into out
func Create(out string, paths []string) (*Summary, error) {
	logger := logging.GetLogger("archive")

	entries, err := collect(paths)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "nothing to archive")
	}

	f, err := os.Create(out)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot create %s", out)
	}
	defer f.Close()

	rawBytes, err := writeZip(f, entries)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot write %s", out)
	}

	logger.Info().Str("path", out).Int("files", len(entries)).Msg("archive created")
	return &Summary{Path: out, Files: len(entries), Bytes: rawBytes}, nil
}

// MailOptions control the generated email message
type MailOptions struct {
	From    string
	To      string
	Subject string
}

// Mail zips the given paths and writes an RFC 2822 message to out with
// the zip attached as base64. The attachment name derives from the
// output filename.
func Mail(out string, paths []string, opts MailOptions) (*Summary, error) {
	logger := logging.GetLogger("archive")

	entries, err := collect(paths)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "nothing to archive")
	}

	var zipBuf bytes.Buffer
	rawBytes, err := writeZip(&zipBuf, entries)
	if err != nil {
		return nil, err
	}

	attachment := strings.TrimSuffix(filepath.Base(out), filepath.Ext(out)) + ".zip"
	subject := opts.Subject
	if subject == "" {
		subject = attachment
	}

	var msg bytes.Buffer
	mw := multipart.NewWriter(&msg)

	if opts.From != "" {
		fmt.Fprintf(&msg, "From: %s\r\n", opts.From)
	}
	if opts.To != "" {
		fmt.Fprintf(&msg, "To: %s\r\n", opts.To)
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	text, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot build message")
	}
	fmt.Fprintf(text, "Attached: %s (%d files, %d bytes uncompressed)\r\n",
		attachment, len(entries), rawBytes)

	body, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {fmt.Sprintf("application/zip; name=%q", attachment)},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", attachment)},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot build message")
	}
	if err := writeBase64(body, zipBuf.Bytes()); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot encode attachment")
	}

	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot finalize message")
	}

	if err := os.WriteFile(out, msg.Bytes(), 0644); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot write %s", out)
	}

	logger.Info().Str("path", out).Int("files", len(entries)).Msg("mail archive written")
	return &Summary{Path: out, Files: len(entries), Bytes: rawBytes}, nil
}

// base64LineLength keeps encoded lines within the classic MIME limit
const base64LineLength = 76

// writeBase64 encodes data in 76-character lines
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := base64LineLength
		if n > len(encoded) {
			n = len(encoded)
		}
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded[:n]); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}
