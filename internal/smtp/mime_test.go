package smtp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmail(t *testing.T) {
	t.Run("纯文本邮件", func(t *testing.T) {
		raw := strings.Join([]string{
			"From: a@example.com",
			"To: b@poof.test",
			"Subject: plain",
			"Content-Type: text/plain; charset=utf-8",
			"",
			"hello world",
		}, "\r\n")

		parsed, err := ParseEmail([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, "plain", parsed.Subject)
		assert.Equal(t, "hello world", strings.TrimSpace(parsed.Text))
		assert.Empty(t, parsed.HTML)
	})

	t.Run("RFC2047编码的主题", func(t *testing.T) {
		raw := strings.Join([]string{
			"From: a@example.com",
			"Subject: =?UTF-8?B?5L2g5aW95LiW55WM?=",
			"",
			"body",
		}, "\r\n")

		parsed, err := ParseEmail([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, "你好世界", parsed.Subject)
	})

	t.Run("multipart提取文本与HTML", func(t *testing.T) {
		raw := strings.Join([]string{
			"From: a@example.com",
			"Subject: multi",
			`Content-Type: multipart/alternative; boundary="BOUND"`,
			"",
			"--BOUND",
			"Content-Type: text/plain; charset=utf-8",
			"",
			"text part",
			"--BOUND",
			"Content-Type: text/html; charset=utf-8",
			"",
			"<p>html part</p>",
			"--BOUND--",
		}, "\r\n")

		parsed, err := ParseEmail([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, "text part", strings.TrimSpace(parsed.Text))
		assert.Equal(t, "<p>html part</p>", strings.TrimSpace(parsed.HTML))
	})

	t.Run("base64附件", func(t *testing.T) {
		raw := strings.Join([]string{
			"From: a@example.com",
			"Subject: with attachment",
			`Content-Type: multipart/mixed; boundary="BOUND"`,
			"",
			"--BOUND",
			"Content-Type: text/plain",
			"",
			"see attached",
			"--BOUND",
			"Content-Type: application/octet-stream",
			`Content-Disposition: attachment; filename="data.bin"`,
			"Content-Transfer-Encoding: base64",
			"",
			"aGVsbG8gYmluYXJ5", // "hello binary"
			"--BOUND--",
		}, "\r\n")

		parsed, err := ParseEmail([]byte(raw))
		require.NoError(t, err)
		require.Len(t, parsed.Attachments, 1)

		att := parsed.Attachments[0]
		assert.Equal(t, "data.bin", att.Filename)
		assert.Equal(t, "application/octet-stream", att.ContentType)
		assert.Equal(t, []byte("hello binary"), att.Content)
		assert.Equal(t, int64(len("hello binary")), att.Size)
	})

	t.Run("quoted-printable正文", func(t *testing.T) {
		raw := strings.Join([]string{
			"From: a@example.com",
			"Subject: qp",
			"Content-Type: text/plain; charset=utf-8",
			"Content-Transfer-Encoding: quoted-printable",
			"",
			"caf=C3=A9",
		}, "\r\n")

		parsed, err := ParseEmail([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, "café", strings.TrimSpace(parsed.Text))
	})

	t.Run("没有Content-Type按纯文本处理", func(t *testing.T) {
		raw := "From: a@example.com\r\nSubject: bare\r\n\r\nraw body"

		parsed, err := ParseEmail([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, "raw body", strings.TrimSpace(parsed.Text))
	})
}
