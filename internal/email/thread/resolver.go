package thread

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"mailsync-backend/internal/email/domain"
	"mailsync-backend/internal/email/repository"

	"github.com/google/uuid"
)

// subjectWindow bounds how far back subject-based matching looks; older
// conversations with the same subject start a new thread.
const subjectWindow = 7 * 24 * time.Hour

var replyPrefixPattern = regexp.MustCompile(`(?i)^\s*((re|fwd?|fw)\s*(\[\d+\])?\s*:\s*)+`)

// Resolver assigns each incoming message to a conversation thread.
// Reference headers take precedence; normalized subject within a recent
// window is the fallback; otherwise a new thread is started.
type Resolver struct {
	messageRepo repository.MessageRepository
	threadRepo  repository.ThreadRepository
	logger      *slog.Logger
}

func NewResolver(messageRepo repository.MessageRepository, threadRepo repository.ThreadRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		messageRepo: messageRepo,
		threadRepo:  threadRepo,
		logger:      logger.With("component", "thread-resolver"),
	}
}

// Resolve finds or creates the thread for msg and folds in its
// idempotent metadata (timestamps, subject, participants, attachment
// flag). Message and unread counts are left alone: the caller runs
// Recount once the message row is stored, so a retried batch never
// double-counts.
func (r *Resolver) Resolve(msg *domain.Message) (*domain.Thread, error) {
	thread, err := r.findByReferences(msg)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		thread, err = r.findBySubject(msg)
		if err != nil {
			return nil, err
		}
	}

	if thread == nil {
		thread = r.newThread(msg)
		if err := r.threadRepo.Create(thread); err != nil {
			return nil, fmt.Errorf("unable to create thread: %w", err)
		}
		return thread, nil
	}

	r.absorb(thread, msg)
	if err := r.threadRepo.Update(thread); err != nil {
		return nil, fmt.Errorf("unable to update thread: %w", err)
	}
	return thread, nil
}

// findByReferences matches the References and In-Reply-To chain against
// already-stored messages of the same account. The earliest stored match
// decides the thread, which keeps resolution stable across re-syncs.
func (r *Resolver) findByReferences(msg *domain.Message) (*domain.Thread, error) {
	ids := strings.Fields(msg.References)
	if len(ids) == 0 {
		return nil, nil
	}
	match, err := r.messageRepo.FindByMessageIDHeaders(msg.AccountID, ids)
	if err != nil {
		return nil, fmt.Errorf("unable to look up referenced messages: %w", err)
	}
	if match == nil || match.ThreadID == "" {
		return nil, nil
	}
	return r.threadRepo.FindByID(match.ThreadID)
}

func (r *Resolver) findBySubject(msg *domain.Message) (*domain.Thread, error) {
	normalized := NormalizeSubject(msg.Subject)
	if normalized == "" {
		return nil, nil
	}
	since := msg.ReceivedAt.Add(-subjectWindow)
	return r.threadRepo.FindBySubjectSince(msg.AccountID, normalized, since)
}

func (r *Resolver) newThread(msg *domain.Message) *domain.Thread {
	t := &domain.Thread{
		ID:                uuid.New().String(),
		AccountID:         msg.AccountID,
		ThreadKey:         msg.ProviderMessageID,
		Subject:           msg.Subject,
		NormalizedSubject: NormalizeSubject(msg.Subject),
		HasAttachments:    msg.HasAttachments,
		FirstMessageAt:    msg.ReceivedAt,
		LastMessageAt:     msg.ReceivedAt,
		LastActivityAt:    msg.ReceivedAt,
	}
	t.AddParticipants(messageParticipants(msg))
	return t
}

func (r *Resolver) absorb(t *domain.Thread, msg *domain.Message) {
	if msg.HasAttachments {
		t.HasAttachments = true
	}
	if msg.ReceivedAt.Before(t.FirstMessageAt) {
		t.FirstMessageAt = msg.ReceivedAt
	}
	if msg.ReceivedAt.After(t.LastMessageAt) {
		t.LastMessageAt = msg.ReceivedAt
		t.Subject = msg.Subject
	}
	if msg.ReceivedAt.After(t.LastActivityAt) {
		t.LastActivityAt = msg.ReceivedAt
	}
	t.AddParticipants(messageParticipants(msg))
}

// RecountByID loads a thread and recomputes its aggregates. Returns
// (nil, nil) when the thread does not exist.
func (r *Resolver) RecountByID(threadID string) (*domain.Thread, error) {
	t, err := r.threadRepo.FindByID(threadID)
	if err != nil || t == nil {
		return nil, err
	}
	if err := r.Recount(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Recount recomputes the thread counters from stored messages. Runs
// after a message row is created or changes read state so counters
// never drift from storage.
func (r *Resolver) Recount(t *domain.Thread) error {
	total, err := r.messageRepo.CountByThread(t.ID)
	if err != nil {
		return err
	}
	unread, err := r.messageRepo.CountUnreadByThread(t.ID)
	if err != nil {
		return err
	}
	t.MessageCount = int(total)
	t.UnreadCount = int(unread)
	return r.threadRepo.Update(t)
}

// NormalizeSubject strips reply and forward prefixes and collapses
// whitespace, lowercased for matching.
func NormalizeSubject(subject string) string {
	s := replyPrefixPattern.ReplaceAllString(subject, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(strings.TrimSpace(s))
}

func messageParticipants(msg *domain.Message) []string {
	var out []string
	if msg.From != "" {
		out = append(out, msg.From)
	}
	for _, field := range []string{msg.To, msg.Cc} {
		for _, addr := range strings.Split(field, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				out = append(out, addr)
			}
		}
	}
	return out
}
