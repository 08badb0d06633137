package fetcher

import (
	"context"
	"errors"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	"mailsync-backend/internal/credential"
)

// ErrCursorExpired is returned when the provider no longer accepts the
// stored change-log cursor. The orchestrator falls back to a full sync
// for the current run instead of treating it as a transient failure.
var ErrCursorExpired = errors.New("sync cursor expired")

// RawMessage is one provider message before normalization.
type RawMessage struct {
	ProviderID string
	UID        uint32
	Folder     string

	Subject    string
	From       string
	To         string
	Cc         string
	Bcc        string
	Headers    map[string]string
	BodyText   string
	BodyHTML   string
	Parts      []RawPart
	Labels     []string
	Flags      []string
	Size       int64
	ReceivedAt time.Time
}

// RawPart is a body part or attachment stub. Data may be nil when the
// provider serves attachment payloads lazily; AttachmentID then points at
// the payload for a later fetch.
type RawPart struct {
	Filename     string
	ContentType  string
	ContentID    string
	Disposition  string
	AttachmentID string
	Size         int64
	Data         []byte
}

// IsAttachment reports whether the part should be recorded as a file.
func (p *RawPart) IsAttachment() bool {
	return p.Filename != "" || p.Disposition == "attachment"
}

// Session is an open connection/scope against one account's mailbox.
type Session interface {
	// FetchFolder streams messages through fn in provider order and returns
	// the new checkpoint for the folder. In full mode the cursor is ignored
	// and a bounded lookback window is fetched instead. An error from fn
	// aborts the stream; messages already delivered stay applied.
	FetchFolder(ctx context.Context, folder, cursor string, full bool, batchSize int, fn func(*RawMessage) error) (string, error)
	Close() error
}

// Fetcher opens sessions for accounts of one transport kind. Connection
// errors surface from Open so the orchestrator can apply its connect
// retry policy separately from the run retry policy.
type Fetcher interface {
	Open(ctx context.Context, account *accountdomain.Account, cred *credential.Credential) (Session, error)
}
