package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	"mailsync-backend/internal/credential"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailFetcher opens sessions against the Gmail API. Incremental mode
// walks the history log from the stored cursor; full mode paginates a
// time-bounded listing and takes the profile history id as the new cursor.
type GmailFetcher struct {
	lookback time.Duration
	logger   *slog.Logger
}

func NewGmailFetcher(lookback time.Duration, logger *slog.Logger) *GmailFetcher {
	return &GmailFetcher{
		lookback: lookback,
		logger:   logger.With("component", "gmail-fetcher"),
	}
}

func (f *GmailFetcher) Open(ctx context.Context, account *accountdomain.Account, cred *credential.Credential) (Session, error) {
	httpClient := oauth2.NewClient(ctx, cred.TokenSource)
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	// Surface auth/connection problems at open time, not mid-batch.
	if _, err := svc.Users.GetProfile("me").Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("unable to reach mailbox: %w", err)
	}
	return &gmailSession{
		svc:      svc,
		lookback: f.lookback,
		logger:   f.logger.With("account", account.EmailAddress),
	}, nil
}

type gmailSession struct {
	svc      *gmail.Service
	lookback time.Duration
	logger   *slog.Logger
}

func (s *gmailSession) Close() error { return nil }

func (s *gmailSession) FetchFolder(ctx context.Context, folder, cursor string, full bool, batchSize int, fn func(*RawMessage) error) (string, error) {
	if batchSize <= 0 || batchSize > 500 {
		batchSize = 100
	}
	if !full && cursor != "" {
		return s.fetchHistory(ctx, cursor, batchSize, fn)
	}
	return s.fetchFull(ctx, folder, batchSize, fn)
}

func (s *gmailSession) fetchHistory(ctx context.Context, cursor string, batchSize int, fn func(*RawMessage) error) (string, error) {
	startHistoryID, err := strconv.ParseUint(cursor, 10, 64)
	if err != nil {
		return cursor, ErrCursorExpired
	}

	latest := startHistoryID
	seen := make(map[string]bool)

	call := s.svc.Users.History.List("me").
		StartHistoryId(startHistoryID).
		MaxResults(int64(batchSize))

	err = call.Pages(ctx, func(page *gmail.ListHistoryResponse) error {
		for _, history := range page.History {
			if history.Id > latest {
				latest = history.Id
			}
			for _, record := range history.MessagesAdded {
				msgID := record.Message.Id
				if seen[msgID] {
					continue
				}
				seen[msgID] = true

				full, err := s.svc.Users.Messages.Get("me", msgID).Format("full").Context(ctx).Do()
				if err != nil {
					s.logger.Warn("unable to retrieve message", "id", msgID, "error", err)
					continue
				}
				if err := fn(convertGmailMessage(full)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		if isExpiredHistoryError(err) {
			return cursor, ErrCursorExpired
		}
		return formatHistoryCursor(latest, cursor), fmt.Errorf("unable to list history: %w", err)
	}

	return formatHistoryCursor(latest, cursor), nil
}

func (s *gmailSession) fetchFull(ctx context.Context, folder string, batchSize int, fn func(*RawMessage) error) (string, error) {
	q := "after:" + time.Now().Add(-s.lookback).Format("2006/01/02")

	call := s.svc.Users.Messages.List("me").
		Q(q).
		IncludeSpamTrash(false).
		MaxResults(int64(batchSize))
	if folder != "" && folder != "ALL" {
		call = call.LabelIds(folder)
	}

	err := call.Pages(ctx, func(page *gmail.ListMessagesResponse) error {
		for _, m := range page.Messages {
			full, err := s.svc.Users.Messages.Get("me", m.Id).Format("full").Context(ctx).Do()
			if err != nil {
				s.logger.Warn("unable to retrieve message", "id", m.Id, "error", err)
				continue
			}
			if err := fn(convertGmailMessage(full)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("unable to list messages: %w", err)
	}

	// The profile history id becomes the checkpoint for incremental runs.
	profile, err := s.svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil || profile.HistoryId == 0 {
		return "", nil
	}
	return strconv.FormatUint(profile.HistoryId, 10), nil
}

// isExpiredHistoryError detects the distinct "historyId too old" condition
// that requires a full re-sync rather than a transient retry.
func isExpiredHistoryError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "404") || strings.Contains(msg, "historyId") || strings.Contains(msg, "Invalid startHistoryId")
}

func formatHistoryCursor(latest uint64, previous string) string {
	if latest == 0 {
		return previous
	}
	return strconv.FormatUint(latest, 10)
}

func convertGmailMessage(msg *gmail.Message) *RawMessage {
	headers := make(map[string]string)
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			headers[h.Name] = h.Value
		}
	}

	raw := &RawMessage{
		ProviderID: msg.Id,
		Subject:    headers["Subject"],
		From:       headers["From"],
		To:         headers["To"],
		Cc:         headers["Cc"],
		Bcc:        headers["Bcc"],
		Headers:    headers,
		Labels:     msg.LabelIds,
		Size:       msg.SizeEstimate,
		ReceivedAt: time.Unix(msg.InternalDate/1000, 0),
	}

	if msg.Payload != nil {
		raw.BodyText, raw.BodyHTML = extractBodies(msg.Payload)
		raw.Parts = extractAttachmentStubs(msg.Payload)
	}
	return raw
}

func extractBodies(payload *gmail.MessagePart) (plain, html string) {
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			if payload.MimeType == "text/html" {
				return "", string(data)
			}
			return string(data), ""
		}
	}

	var walk func(parts []*gmail.MessagePart)
	walk = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			switch part.MimeType {
			case "text/html":
				if html == "" && part.Body != nil && part.Body.Data != "" {
					if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
						html = string(data)
					}
				}
			case "text/plain":
				if plain == "" && part.Body != nil && part.Body.Data != "" {
					if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
						plain = string(data)
					}
				}
			}
			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}
	walk(payload.Parts)
	return plain, html
}

// extractAttachmentStubs records attachment metadata only; payloads are
// fetched lazily per attachment.
func extractAttachmentStubs(payload *gmail.MessagePart) []RawPart {
	var parts []RawPart

	var walk func(ps []*gmail.MessagePart)
	walk = func(ps []*gmail.MessagePart) {
		for _, part := range ps {
			if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
				contentID := strings.Trim(partHeader(part, "Content-ID"), "<>")
				disposition := "attachment"
				if strings.HasPrefix(strings.ToLower(partHeader(part, "Content-Disposition")), "inline") || contentID != "" {
					disposition = "inline"
				}
				parts = append(parts, RawPart{
					Filename:     part.Filename,
					ContentType:  part.MimeType,
					ContentID:    contentID,
					Disposition:  disposition,
					AttachmentID: part.Body.AttachmentId,
					Size:         int64(part.Body.Size),
				})
			}
			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}
	walk(payload.Parts)
	return parts
}

func partHeader(part *gmail.MessagePart, name string) string {
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
