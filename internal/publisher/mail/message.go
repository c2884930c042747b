package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

type Attachment struct {
	Filename string
	Content  []byte
}

type Message struct {
	From        string
	To          []string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// AttachFiles reads every path into an attachment.
func (m *Message) AttachFiles(paths ...string) error {
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read attachment %s: %w", p, err)
		}
		m.Attachments = append(m.Attachments, Attachment{Filename: filepath.Base(p), Content: b})
	}
	return nil
}

// Bytes renders the message as multipart/mixed with a multipart/alternative
// body. The html part is only present when HTML is set.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer

	mixed := multipart.NewWriter(&buf)
	header := []string{
		"From: " + sanitizeHeader(m.From),
		"To: " + sanitizeHeader(strings.Join(m.To, ", ")),
		"Subject: " + mime.QEncoding.Encode("utf-8", sanitizeHeader(m.Subject)),
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q", mixed.Boundary()),
		"",
		"",
	}
	buf.WriteString(strings.Join(header, "\r\n"))

	var body bytes.Buffer
	alt := multipart.NewWriter(&body)
	if err := writeText(alt, "text/plain", m.Text); err != nil {
		return nil, err
	}
	if m.HTML != "" {
		if err := writeText(alt, "text/html", m.HTML); err != nil {
			return nil, err
		}
	}
	if err := alt.Close(); err != nil {
		return nil, err
	}

	part, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%q", alt.Boundary())},
	})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(body.Bytes()); err != nil {
		return nil, err
	}

	for _, a := range m.Attachments {
		part, err := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"application/octet-stream"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", a.Filename)},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, a.Content); err != nil {
			return nil, err
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeText(w *multipart.Writer, contentType, text string) error {
	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType + "; charset=utf-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return err
	}
	return writeBase64(part, []byte(text))
}

// writeBase64 wraps encoded lines at 76 characters.
func writeBase64(w interface{ Write([]byte) (int, error) }, b []byte) error {
	encoded := base64.StdEncoding.EncodeToString(b)
	for len(encoded) > 76 {
		if _, err := w.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err := w.Write([]byte(encoded + "\r\n"))
	return err
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}
