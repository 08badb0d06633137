package thread

import (
	"log/slog"
	"sort"
	"testing"
	"time"

	"mailsync-backend/internal/email/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessageRepo struct {
	messages []*domain.Message
}

func (f *fakeMessageRepo) Create(m *domain.Message) error {
	m.CreatedAt = time.Now()
	f.messages = append(f.messages, m)
	return nil
}

func (f *fakeMessageRepo) Update(m *domain.Message) error { return nil }

func (f *fakeMessageRepo) FindByID(id string) (*domain.Message, error) {
	for _, m := range f.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageRepo) FindByProviderID(accountID, providerMessageID string) (*domain.Message, error) {
	for _, m := range f.messages {
		if m.AccountID == accountID && m.ProviderMessageID == providerMessageID {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageRepo) FindByMessageIDHeaders(accountID string, ids []string) (*domain.Message, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var candidates []*domain.Message
	for _, m := range f.messages {
		if m.AccountID == accountID && wanted[m.MessageIDHeader] {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return candidates[0], nil
}

func (f *fakeMessageRepo) ListByThread(threadID string) ([]*domain.Message, error) {
	var out []*domain.Message
	for _, m := range f.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) CountByThread(threadID string) (int64, error) {
	msgs, _ := f.ListByThread(threadID)
	return int64(len(msgs)), nil
}

func (f *fakeMessageRepo) CountUnreadByThread(threadID string) (int64, error) {
	var n int64
	msgs, _ := f.ListByThread(threadID)
	for _, m := range msgs {
		if !m.IsRead {
			n++
		}
	}
	return n, nil
}

type fakeThreadRepo struct {
	threads []*domain.Thread
}

func (f *fakeThreadRepo) Create(t *domain.Thread) error {
	t.CreatedAt = time.Now()
	f.threads = append(f.threads, t)
	return nil
}

func (f *fakeThreadRepo) Update(t *domain.Thread) error { return nil }

func (f *fakeThreadRepo) FindByID(id string) (*domain.Thread, error) {
	for _, t := range f.threads {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeThreadRepo) FindBySubjectSince(accountID, normalizedSubject string, since time.Time) (*domain.Thread, error) {
	var candidates []*domain.Thread
	for _, t := range f.threads {
		if t.AccountID == accountID && t.NormalizedSubject == normalizedSubject && !t.LastActivityAt.Before(since) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return candidates[0], nil
}

func (f *fakeThreadRepo) ListByAccount(accountID string, limit, offset int) ([]*domain.Thread, error) {
	return f.threads, nil
}

func newTestResolver() (*Resolver, *fakeMessageRepo, *fakeThreadRepo) {
	messages := &fakeMessageRepo{}
	threads := &fakeThreadRepo{}
	return NewResolver(messages, threads, slog.New(slog.DiscardHandler)), messages, threads
}

func newMessage(id, subject string, received time.Time) *domain.Message {
	return &domain.Message{
		ID:                "id-" + id,
		AccountID:         "acct-1",
		ProviderMessageID: id,
		MessageIDHeader:   id + "@example.com",
		Subject:           subject,
		From:              "alice@example.com",
		To:                "bob@example.com",
		ReceivedAt:        received,
	}
}

// addToThread mirrors the caller contract: the message row is stored
// first, counters follow from Recount.
func addToThread(t *testing.T, resolver *Resolver, messageRepo *fakeMessageRepo, msg *domain.Message, resolved *domain.Thread) {
	t.Helper()
	msg.ThreadID = resolved.ID
	require.NoError(t, messageRepo.Create(msg))
	require.NoError(t, resolver.Recount(resolved))
}

func TestResolveCreatesNewThread(t *testing.T) {
	resolver, messageRepo, threadRepo := newTestResolver()

	msg := newMessage("m1", "Project kickoff", time.Now())
	resolved, err := resolver.Resolve(msg)
	require.NoError(t, err)
	addToThread(t, resolver, messageRepo, msg, resolved)

	require.Len(t, threadRepo.threads, 1)
	assert.Equal(t, "m1", resolved.ThreadKey)
	assert.Equal(t, "project kickoff", resolved.NormalizedSubject)
	assert.Equal(t, 1, resolved.MessageCount)
	assert.Equal(t, 1, resolved.UnreadCount)
	assert.Contains(t, resolved.Participants, "alice@example.com")
	assert.Contains(t, resolved.Participants, "bob@example.com")
}

func TestResolveJoinsByReferences(t *testing.T) {
	resolver, messageRepo, threadRepo := newTestResolver()
	now := time.Now()

	first := newMessage("m1", "Budget", now.Add(-time.Hour))
	root, err := resolver.Resolve(first)
	require.NoError(t, err)
	addToThread(t, resolver, messageRepo, first, root)

	// Different subject; the reference chain must still win.
	reply := newMessage("m2", "Completely new topic", now)
	reply.References = "m1@example.com"
	resolved, err := resolver.Resolve(reply)
	require.NoError(t, err)
	addToThread(t, resolver, messageRepo, reply, resolved)

	assert.Equal(t, root.ID, resolved.ID)
	assert.Equal(t, 2, resolved.MessageCount)
	require.Len(t, threadRepo.threads, 1)
}

func TestResolveJoinsBySubjectWithinWindow(t *testing.T) {
	resolver, messageRepo, _ := newTestResolver()
	now := time.Now()

	first := newMessage("m1", "Lunch plans", now.Add(-24*time.Hour))
	root, err := resolver.Resolve(first)
	require.NoError(t, err)
	addToThread(t, resolver, messageRepo, first, root)

	reply := newMessage("m2", "Re: Lunch plans", now)
	resolved, err := resolver.Resolve(reply)
	require.NoError(t, err)
	assert.Equal(t, root.ID, resolved.ID)
}

func TestResolveSubjectOutsideWindowStartsNewThread(t *testing.T) {
	resolver, messageRepo, threadRepo := newTestResolver()
	now := time.Now()

	old := newMessage("m1", "Weekly report", now.Add(-30*24*time.Hour))
	root, err := resolver.Resolve(old)
	require.NoError(t, err)
	addToThread(t, resolver, messageRepo, old, root)

	recent := newMessage("m2", "Re: Weekly report", now)
	resolved, err := resolver.Resolve(recent)
	require.NoError(t, err)

	assert.NotEqual(t, root.ID, resolved.ID)
	assert.Len(t, threadRepo.threads, 2)
}

func TestResolveUpdatesAggregates(t *testing.T) {
	resolver, messageRepo, _ := newTestResolver()
	now := time.Now()

	first := newMessage("m1", "Specs", now.Add(-time.Hour))
	first.IsRead = true
	root, err := resolver.Resolve(first)
	require.NoError(t, err)
	addToThread(t, resolver, messageRepo, first, root)
	assert.Equal(t, 0, root.UnreadCount)

	reply := newMessage("m2", "Re: Specs", now)
	reply.HasAttachments = true
	reply.From = "carol@example.com"
	resolved, err := resolver.Resolve(reply)
	require.NoError(t, err)
	addToThread(t, resolver, messageRepo, reply, resolved)

	assert.Equal(t, 2, resolved.MessageCount)
	assert.Equal(t, 1, resolved.UnreadCount)
	assert.True(t, resolved.HasAttachments)
	assert.Equal(t, now, resolved.LastMessageAt)
	assert.Contains(t, resolved.Participants, "carol@example.com")
}

func TestRecountByID(t *testing.T) {
	resolver, messageRepo, _ := newTestResolver()

	msg := newMessage("m1", "Counts", time.Now())
	root, err := resolver.Resolve(msg)
	require.NoError(t, err)
	addToThread(t, resolver, messageRepo, msg, root)

	msg.IsRead = true
	recounted, err := resolver.RecountByID(root.ID)
	require.NoError(t, err)
	require.NotNil(t, recounted)
	assert.Equal(t, 1, recounted.MessageCount)
	assert.Equal(t, 0, recounted.UnreadCount)
}

func TestRecountByIDMissingThread(t *testing.T) {
	resolver, _, _ := newTestResolver()
	recounted, err := resolver.RecountByID("missing")
	require.NoError(t, err)
	assert.Nil(t, recounted)
}

func TestNormalizeSubject(t *testing.T) {
	cases := map[string]string{
		"Re: Hello":           "hello",
		"RE: FW: Fwd: Hello":  "hello",
		"Re[2]: Hello":        "hello",
		"  Spaced   subject ": "spaced subject",
		"Plain":               "plain",
		"":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSubject(in), "input %q", in)
	}
}
