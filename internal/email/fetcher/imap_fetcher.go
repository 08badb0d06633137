package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	"mailsync-backend/internal/credential"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// IMAPFetcher opens sessions against folder-protocol mailboxes. Incremental
// mode requests UIDs above the stored cursor; full mode is bounded by the
// configured lookback window.
type IMAPFetcher struct {
	lookback    time.Duration
	dialTimeout time.Duration
	logger      *slog.Logger
}

func NewIMAPFetcher(lookback, dialTimeout time.Duration, logger *slog.Logger) *IMAPFetcher {
	if dialTimeout == 0 {
		dialTimeout = 30 * time.Second
	}
	return &IMAPFetcher{
		lookback:    lookback,
		dialTimeout: dialTimeout,
		logger:      logger.With("component", "imap-fetcher"),
	}
}

func (f *IMAPFetcher) Open(ctx context.Context, account *accountdomain.Account, cred *credential.Credential) (Session, error) {
	addr := fmt.Sprintf("%s:%d", account.IMAPServer, account.IMAPPort)

	dialer := &net.Dialer{Timeout: f.dialTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create IMAP client: %w", err)
	}

	if err := c.Login(cred.Username, cred.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	return &imapSession{
		client:   c,
		lookback: f.lookback,
		logger:   f.logger.With("account", account.EmailAddress),
	}, nil
}

type imapSession struct {
	client   *client.Client
	lookback time.Duration
	logger   *slog.Logger
}

func (s *imapSession) Close() error {
	return s.client.Logout()
}

func (s *imapSession) FetchFolder(ctx context.Context, folder, cursor string, full bool, batchSize int, fn func(*RawMessage) error) (string, error) {
	if _, err := s.client.Select(folder, true); err != nil {
		return cursor, fmt.Errorf("failed to select %s: %w", folder, err)
	}

	sinceUID := parseUIDCursor(cursor)

	criteria := imap.NewSearchCriteria()
	if full || sinceUID == 0 {
		criteria.Since = time.Now().Add(-s.lookback)
	} else {
		set := new(imap.SeqSet)
		set.AddRange(sinceUID+1, 0)
		criteria.Uid = set
	}

	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		return cursor, fmt.Errorf("failed to search %s: %w", folder, err)
	}
	if len(uids) == 0 {
		return cursor, nil
	}

	if batchSize <= 0 {
		batchSize = 100
	}

	highest := sinceUID
	for start := 0; start < len(uids); start += batchSize {
		end := start + batchSize
		if end > len(uids) {
			end = len(uids)
		}
		chunkHighest, err := s.fetchChunk(ctx, folder, uids[start:end], fn)
		if chunkHighest > highest {
			highest = chunkHighest
		}
		if err != nil {
			return formatUIDCursor(highest, cursor), err
		}
	}

	return formatUIDCursor(highest, cursor), nil
}

func (s *imapSession) fetchChunk(ctx context.Context, folder string, uids []uint32, fn func(*RawMessage) error) (uint32, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchUid,
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchRFC822Size,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var highest uint32
	for msg := range messages {
		select {
		case <-ctx.Done():
			// Drain so the fetch goroutine can finish.
			for range messages {
			}
			<-done
			return highest, ctx.Err()
		default:
		}

		raw, err := s.parseMessage(msg, folder, section)
		if err != nil {
			s.logger.Warn("failed to parse message", "uid", msg.Uid, "error", err)
			continue
		}
		if err := fn(raw); err != nil {
			for range messages {
			}
			<-done
			return highest, err
		}
		if msg.Uid > highest {
			highest = msg.Uid
		}
	}

	if err := <-done; err != nil {
		return highest, fmt.Errorf("failed to fetch: %w", err)
	}
	return highest, nil
}

func (s *imapSession) parseMessage(msg *imap.Message, folder string, section *imap.BodySectionName) (*RawMessage, error) {
	raw := &RawMessage{
		UID:        msg.Uid,
		ProviderID: strconv.FormatUint(uint64(msg.Uid), 10),
		Folder:     folder,
		Flags:      msg.Flags,
		Size:       int64(msg.Size),
		ReceivedAt: msg.InternalDate,
		Headers:    make(map[string]string),
	}

	if msg.Envelope != nil {
		raw.Subject = msg.Envelope.Subject
		raw.From = formatAddresses(msg.Envelope.From)
		raw.To = formatAddresses(msg.Envelope.To)
		raw.Cc = formatAddresses(msg.Envelope.Cc)
		raw.Bcc = formatAddresses(msg.Envelope.Bcc)
		if msg.Envelope.MessageId != "" {
			raw.ProviderID = msg.Envelope.MessageId
			raw.Headers["Message-Id"] = msg.Envelope.MessageId
		}
		if msg.Envelope.InReplyTo != "" {
			raw.Headers["In-Reply-To"] = msg.Envelope.InReplyTo
		}
		if raw.ReceivedAt.IsZero() {
			raw.ReceivedAt = msg.Envelope.Date
		}
	}

	body := msg.GetBody(section)
	if body == nil {
		return raw, nil
	}

	mr, err := mail.CreateReader(body)
	if err != nil {
		return raw, fmt.Errorf("failed to create mail reader: %w", err)
	}

	for _, key := range []string{"Message-Id", "In-Reply-To", "References", "X-Priority", "Importance", "Date"} {
		if v := mr.Header.Get(key); v != "" {
			raw.Headers[key] = v
		}
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Warn("failed to read part", "uid", msg.Uid, "error", err)
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch {
			case strings.HasPrefix(ct, "text/html"):
				raw.BodyHTML = string(data)
			case strings.HasPrefix(ct, "text/plain"):
				raw.BodyText = string(data)
			default:
				// Inline non-text part, usually an embedded image.
				cid := strings.Trim(h.Get("Content-Id"), "<>")
				raw.Parts = append(raw.Parts, RawPart{
					ContentType: ct,
					ContentID:   cid,
					Disposition: "inline",
					Size:        int64(len(data)),
					Data:        data,
				})
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			ct, _, _ := h.ContentType()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			raw.Parts = append(raw.Parts, RawPart{
				Filename:    filename,
				ContentType: ct,
				Disposition: "attachment",
				Size:        int64(len(data)),
				Data:        data,
			})
		}
	}

	return raw, nil
}

func formatAddresses(addrs []*imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		addr := a.Address()
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, addr))
		} else {
			parts = append(parts, addr)
		}
	}
	return strings.Join(parts, ", ")
}

func parseUIDCursor(cursor string) uint32 {
	if cursor == "" {
		return 0
	}
	n, err := strconv.ParseUint(cursor, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}

func formatUIDCursor(highest uint32, previous string) string {
	if highest == 0 {
		return previous
	}
	return strconv.FormatUint(uint64(highest), 10)
}
