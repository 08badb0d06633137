package attachment

import (
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"mailsync-backend/internal/email/domain"
	"mailsync-backend/internal/email/fetcher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttachmentRepo struct {
	created []*domain.Attachment
}

func (f *fakeAttachmentRepo) Create(a *domain.Attachment) error {
	f.created = append(f.created, a)
	return nil
}

func (f *fakeAttachmentRepo) ListByMessage(messageID string) ([]*domain.Attachment, error) {
	var out []*domain.Attachment
	for _, a := range f.created {
		if a.MessageID == messageID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttachmentRepo) ListByFingerprint(accountID, fingerprint string) ([]*domain.Attachment, error) {
	var out []*domain.Attachment
	for _, a := range f.created {
		if a.AccountID == accountID && a.Fingerprint == fingerprint {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttachmentRepo) MarkDownloaded(id string) error {
	for _, a := range f.created {
		if a.ID == id {
			a.DownloadState = domain.AttachmentDownloaded
			now := time.Now()
			a.DownloadedAt = &now
		}
	}
	return nil
}

func testMessage() *domain.Message {
	return &domain.Message{ID: "msg-1", AccountID: "acct-1"}
}

func TestProcessStoresAttachmentMetadata(t *testing.T) {
	repo := &fakeAttachmentRepo{}
	p := NewProcessor(repo, slog.New(slog.DiscardHandler))

	has, err := p.Process(testMessage(), []fetcher.RawPart{
		{Filename: "report.pdf", ContentType: "application/pdf", Disposition: "attachment", Data: []byte("pdf-bytes")},
	})
	require.NoError(t, err)
	assert.True(t, has)

	require.Len(t, repo.created, 1)
	att := repo.created[0]
	assert.Equal(t, "msg-1", att.MessageID)
	assert.Equal(t, "report.pdf", att.Filename)
	assert.Equal(t, domain.AttachmentDownloaded, att.DownloadState)
	assert.Len(t, att.Fingerprint, 64)
	assert.Equal(t, int64(len("pdf-bytes")), att.Size)
}

func TestProcessProviderSideAttachmentStaysPending(t *testing.T) {
	repo := &fakeAttachmentRepo{}
	p := NewProcessor(repo, slog.New(slog.DiscardHandler))

	has, err := p.Process(testMessage(), []fetcher.RawPart{
		{Filename: "photo.jpg", ContentType: "image/jpeg", Disposition: "attachment", AttachmentID: "provider-att-1", Size: 12345},
	})
	require.NoError(t, err)
	assert.True(t, has)

	require.Len(t, repo.created, 1)
	assert.Equal(t, domain.AttachmentPending, repo.created[0].DownloadState)
	assert.Empty(t, repo.created[0].Fingerprint)
}

func TestProcessInlineNotCountedAsAttachment(t *testing.T) {
	repo := &fakeAttachmentRepo{}
	p := NewProcessor(repo, slog.New(slog.DiscardHandler))

	has, err := p.Process(testMessage(), []fetcher.RawPart{
		{Filename: "logo.png", ContentType: "image/png", Disposition: "inline", ContentID: "logo@corp"},
	})
	require.NoError(t, err)
	assert.False(t, has, "inline parts do not flag the message")

	require.Len(t, repo.created, 1)
	assert.True(t, repo.created[0].IsInline)
}

func TestProcessBlocksDangerousExtensions(t *testing.T) {
	repo := &fakeAttachmentRepo{}
	p := NewProcessor(repo, slog.New(slog.DiscardHandler))

	_, err := p.Process(testMessage(), []fetcher.RawPart{
		{Filename: "invoice.exe", ContentType: "application/octet-stream", Disposition: "attachment", Data: []byte("mz")},
	})
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.Equal(t, domain.AttachmentBlocked, repo.created[0].DownloadState)
}

func TestProcessEqualContentSharesFingerprint(t *testing.T) {
	repo := &fakeAttachmentRepo{}
	p := NewProcessor(repo, slog.New(slog.DiscardHandler))

	data := []byte("identical payload")
	_, err := p.Process(testMessage(), []fetcher.RawPart{
		{Filename: "a.txt", ContentType: "text/plain", Disposition: "attachment", Data: data},
		{Filename: "b.txt", ContentType: "text/plain", Disposition: "attachment", Data: data},
	})
	require.NoError(t, err)

	require.Len(t, repo.created, 2, "duplicates are recorded, dedup is advisory only")
	assert.Equal(t, repo.created[0].Fingerprint, repo.created[1].Fingerprint)
}

func TestCollectDefersPersistenceToStore(t *testing.T) {
	repo := &fakeAttachmentRepo{}
	p := NewProcessor(repo, slog.New(slog.DiscardHandler))

	records, has := p.Collect(testMessage(), []fetcher.RawPart{
		{Filename: "report.pdf", ContentType: "application/pdf", Disposition: "attachment", Data: []byte("pdf")},
	})
	require.Len(t, records, 1)
	assert.True(t, has)
	assert.Empty(t, repo.created, "nothing is written until the message row exists")

	require.NoError(t, p.Store(records))
	assert.Len(t, repo.created, 1)
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd":      "passwd",
		"C:\\dump\\evil.txt":    "evil.txt",
		"re\x00port\x1b.pdf":    "report.pdf",
		"  ":                    "unnamed",
		"..":                    "unnamed",
		"plain-name.docx":       "plain-name.docx",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), "input %q", in)
	}

	long := strings.Repeat("x", 300) + ".pdf"
	got := SanitizeFilename(long)
	assert.Len(t, got, 255)
	assert.True(t, strings.HasSuffix(got, ".pdf"))

	multibyte := strings.Repeat("é", 300) + ".pdf"
	got = SanitizeFilename(multibyte)
	assert.LessOrEqual(t, len(got), 255)
	assert.True(t, utf8.ValidString(got), "the cap must not split a rune")
	assert.True(t, strings.HasSuffix(got, ".pdf"))
}
