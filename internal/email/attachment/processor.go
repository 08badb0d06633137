package attachment

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"mailsync-backend/internal/email/domain"
	"mailsync-backend/internal/email/fetcher"
	"mailsync-backend/internal/email/repository"

	"github.com/google/uuid"
)

const maxFilenameLength = 255

var blockedExtensions = map[string]bool{
	".exe": true, ".bat": true, ".cmd": true, ".com": true,
	".scr": true, ".pif": true, ".js": true, ".vbs": true,
	".jar": true, ".msi": true, ".ps1": true,
}

// Processor records attachment metadata for a synced message. Payload
// bytes are fingerprinted when the fetcher delivered them; provider-side
// attachments stay pending until downloaded on demand.
type Processor struct {
	attachmentRepo repository.AttachmentRepository
	logger         *slog.Logger
}

func NewProcessor(attachmentRepo repository.AttachmentRepository, logger *slog.Logger) *Processor {
	return &Processor{
		attachmentRepo: attachmentRepo,
		logger:         logger.With("component", "attachment-processor"),
	}
}

// Collect builds one attachment record per raw part and reports whether
// the message carries any non-inline attachment. Nothing is persisted;
// the caller stores the records once the owning message row exists.
func (p *Processor) Collect(msg *domain.Message, parts []fetcher.RawPart) ([]*domain.Attachment, bool) {
	var records []*domain.Attachment
	hasAttachments := false
	for _, part := range parts {
		if !part.IsAttachment() {
			continue
		}

		att := &domain.Attachment{
			ID:          uuid.New().String(),
			MessageID:   msg.ID,
			AccountID:   msg.AccountID,
			Filename:    SanitizeFilename(part.Filename),
			ContentType: part.ContentType,
			ContentID:   part.ContentID,
			Size:        part.Size,
			IsInline:    part.Disposition == "inline" || part.ContentID != "",
		}

		switch {
		case blockedExtensions[strings.ToLower(filepath.Ext(att.Filename))]:
			att.DownloadState = domain.AttachmentBlocked
		case len(part.Data) > 0:
			att.Fingerprint = fingerprint(part.Data)
			att.Size = int64(len(part.Data))
			att.DownloadState = domain.AttachmentDownloaded
		default:
			att.DownloadState = domain.AttachmentPending
		}

		records = append(records, att)
		if !att.IsInline {
			hasAttachments = true
		}
	}
	return records, hasAttachments
}

// Store persists previously collected attachment records.
func (p *Processor) Store(records []*domain.Attachment) error {
	for _, att := range records {
		if err := p.attachmentRepo.Create(att); err != nil {
			return err
		}
	}
	return nil
}

// Process collects and stores in one step.
func (p *Processor) Process(msg *domain.Message, parts []fetcher.RawPart) (bool, error) {
	records, hasAttachments := p.Collect(msg, parts)
	return hasAttachments, p.Store(records)
}

// fingerprint is advisory: equal fingerprints allow storage dedup but
// never suppress the attachment record itself.
func fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SanitizeFilename strips path components and control characters and
// caps the length while preserving the extension.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unnamed"
	}

	// Drop any directory component, regardless of separator style.
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}

	var b strings.Builder
	for _, r := range name {
		if unicode.IsControl(r) || r == 0 {
			continue
		}
		b.WriteRune(r)
	}
	name = b.String()

	if name == "" || name == "." || name == ".." {
		return "unnamed"
	}

	if len(name) > maxFilenameLength {
		ext := filepath.Ext(name)
		if len(ext) >= maxFilenameLength {
			ext = ""
		}
		// Cut on a rune boundary so the stored name stays valid UTF-8.
		cut := maxFilenameLength - len(ext)
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut] + ext
	}
	return name
}
