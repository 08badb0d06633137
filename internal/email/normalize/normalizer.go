package normalize

import (
	"log/slog"
	"mime"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"mailsync-backend/internal/email/domain"
	"mailsync-backend/internal/email/fetcher"

	"github.com/google/uuid"
)

const previewLength = 200

// Normalizer converts provider-shaped raw messages into the canonical
// message record. Errors are reported per message so one malformed
// message never aborts a batch.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With("component", "normalizer")}
}

func (n *Normalizer) Normalize(raw *fetcher.RawMessage, accountID string) (*domain.Message, error) {
	fromName, fromAddr := parseSingleAddress(decodeHeader(raw.From))

	msg := &domain.Message{
		ID:                uuid.New().String(),
		AccountID:         accountID,
		ProviderMessageID: raw.ProviderID,
		Subject:           decodeHeader(raw.Subject),
		From:              fromAddr,
		FromName:          fromName,
		To:                parseAddressList(decodeHeader(raw.To)),
		Cc:                parseAddressList(decodeHeader(raw.Cc)),
		Bcc:               parseAddressList(decodeHeader(raw.Bcc)),
		MessageIDHeader:   canonicalMessageID(header(raw, "Message-Id", "Message-ID")),
		References:        referenceList(raw),
		Folder:            classifyFolder(raw),
		Priority:          classifyPriority(raw),
		Size:              raw.Size,
		ReceivedAt:        raw.ReceivedAt,
		SentAt:            sentTime(raw),
	}

	msg.BodyText = raw.BodyText
	msg.BodyHTML = SanitizeHTML(raw.BodyHTML)
	if msg.BodyText == "" && msg.BodyHTML != "" {
		msg.BodyText = HTMLToText(msg.BodyHTML)
	}
	msg.Preview = makePreview(msg.BodyText)

	for _, flag := range raw.Flags {
		if strings.EqualFold(flag, "\\Seen") {
			msg.IsRead = true
		}
		if strings.EqualFold(flag, "\\Flagged") {
			msg.IsStarred = true
		}
	}
	for _, label := range raw.Labels {
		switch label {
		case "STARRED":
			msg.IsStarred = true
		case "UNREAD":
			msg.IsRead = false
		}
	}
	// Gmail reports unread as a label; the absence of UNREAD means read.
	if len(raw.Labels) > 0 && !containsLabel(raw.Labels, "UNREAD") {
		msg.IsRead = true
	}

	return msg, nil
}

// decodeHeader resolves RFC 2047 encoded words, returning the input
// unchanged when it cannot be decoded.
func decodeHeader(value string) string {
	if !strings.Contains(value, "=?") {
		return value
	}
	decoder := &mime.WordDecoder{}
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func parseSingleAddress(value string) (name, address string) {
	if value == "" {
		return "", ""
	}
	addr, err := mail.ParseAddress(value)
	if err != nil {
		// Keep malformed senders as-is rather than losing the message.
		return "", strings.TrimSpace(value)
	}
	return addr.Name, strings.ToLower(addr.Address)
}

// parseAddressList returns a comma-joined list of lowercased addresses.
// Entries that fail to parse individually are dropped.
func parseAddressList(value string) string {
	if value == "" {
		return ""
	}
	var out []string
	addrs, err := mail.ParseAddressList(value)
	if err != nil {
		for _, piece := range strings.Split(value, ",") {
			addr, err := mail.ParseAddress(strings.TrimSpace(piece))
			if err != nil {
				continue
			}
			out = append(out, strings.ToLower(addr.Address))
		}
		return strings.Join(out, ",")
	}
	for _, addr := range addrs {
		out = append(out, strings.ToLower(addr.Address))
	}
	return strings.Join(out, ",")
}

func header(raw *fetcher.RawMessage, names ...string) string {
	for _, name := range names {
		if v, ok := raw.Headers[name]; ok && v != "" {
			return v
		}
	}
	for k, v := range raw.Headers {
		for _, name := range names {
			if strings.EqualFold(k, name) && v != "" {
				return v
			}
		}
	}
	return ""
}

func canonicalMessageID(value string) string {
	return strings.Trim(strings.TrimSpace(value), "<>")
}

// referenceList combines References and In-Reply-To into one
// space-joined list of bare message ids, most recent last.
func referenceList(raw *fetcher.RawMessage) string {
	var ids []string
	seen := make(map[string]bool)
	add := func(value string) {
		for _, field := range strings.Fields(value) {
			id := canonicalMessageID(field)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	add(header(raw, "References"))
	add(header(raw, "In-Reply-To"))
	return strings.Join(ids, " ")
}

// classifyFolder maps provider labels or mailbox names onto the
// canonical folder set. When several apply, the most specific wins.
func classifyFolder(raw *fetcher.RawMessage) string {
	if len(raw.Labels) > 0 {
		has := func(l string) bool { return containsLabel(raw.Labels, l) }
		switch {
		case has("INBOX"):
			return domain.FolderInbox
		case has("SENT"):
			return domain.FolderSent
		case has("DRAFT"):
			return domain.FolderDrafts
		case has("SPAM"):
			return domain.FolderSpam
		case has("TRASH"):
			return domain.FolderTrash
		default:
			return domain.FolderArchived
		}
	}

	name := strings.ToLower(raw.Folder)
	switch {
	case name == "inbox" || name == "":
		return domain.FolderInbox
	case strings.Contains(name, "sent"):
		return domain.FolderSent
	case strings.Contains(name, "draft"):
		return domain.FolderDrafts
	case strings.Contains(name, "spam") || strings.Contains(name, "junk"):
		return domain.FolderSpam
	case strings.Contains(name, "trash") || strings.Contains(name, "deleted"):
		return domain.FolderTrash
	default:
		return domain.FolderArchived
	}
}

func containsLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

func classifyPriority(raw *fetcher.RawMessage) string {
	if v := header(raw, "X-Priority"); v != "" {
		switch {
		case strings.HasPrefix(v, "1"), strings.HasPrefix(v, "2"):
			return domain.PriorityHigh
		case strings.HasPrefix(v, "4"), strings.HasPrefix(v, "5"):
			return domain.PriorityLow
		}
	}
	switch strings.ToLower(header(raw, "Importance")) {
	case "high":
		return domain.PriorityHigh
	case "low":
		return domain.PriorityLow
	}
	return domain.PriorityNormal
}

func sentTime(raw *fetcher.RawMessage) time.Time {
	if v := header(raw, "Date"); v != "" {
		if t, err := mail.ParseDate(v); err == nil {
			return t.UTC()
		}
	}
	return raw.ReceivedAt
}

func makePreview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength])
}
