package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/memproxy/internal/domain"
)

// runStoreContract exercises behaviour every Store implementation must share.
// Session ids are unique per subtest so implementations backed by a shared database work too.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	newSession := func(t *testing.T, createdAt time.Time) *domain.Session {
		t.Helper()
		s := &domain.Session{SessionID: uuid.NewString(), CreatedAt: createdAt, Title: domain.DefaultSessionTitle}
		require.NoError(t, store.CreateSession(ctx, s))
		return s
	}

	t.Run("SessionRoundTrip", func(t *testing.T) {
		s := newSession(t, time.Now())

		got, err := store.GetSession(ctx, s.SessionID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, s.SessionID, got.SessionID)
		assert.Equal(t, domain.DefaultSessionTitle, got.Title)
		assert.WithinDuration(t, s.CreatedAt, got.CreatedAt, time.Second)

		missing, err := store.GetSession(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("InsertSessionIfAbsent", func(t *testing.T) {
		s := &domain.Session{SessionID: uuid.NewString(), CreatedAt: time.Now(), Title: "first"}
		created, err := store.InsertSessionIfAbsent(ctx, s)
		require.NoError(t, err)
		assert.True(t, created)

		again := &domain.Session{SessionID: s.SessionID, CreatedAt: time.Now(), Title: "second"}
		created, err = store.InsertSessionIfAbsent(ctx, again)
		require.NoError(t, err)
		assert.False(t, created)

		got, err := store.GetSession(ctx, s.SessionID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "first", got.Title)
	})

	t.Run("RecentMessagesWindow", func(t *testing.T) {
		s := newSession(t, time.Now())
		base := time.Now().Add(-time.Hour)
		for i := 1; i <= 50; i++ {
			msg := &domain.Message{
				SessionID: s.SessionID,
				Role:      domain.RoleUser,
				Content:   fmt.Sprintf("m%02d", i),
				CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
			}
			require.NoError(t, store.CreateMessage(ctx, msg))
			assert.NotZero(t, msg.ID)
		}

		recent, err := store.GetRecentMessages(ctx, s.SessionID, 20)
		require.NoError(t, err)
		require.Len(t, recent, 20)
		assert.Equal(t, "m31", recent[0].Content)
		assert.Equal(t, "m50", recent[19].Content)
		for i := 1; i < len(recent); i++ {
			assert.Greater(t, recent[i].ID, recent[i-1].ID)
		}

		all, err := store.GetMessages(ctx, s.SessionID)
		require.NoError(t, err)
		require.Len(t, all, 50)
		assert.Equal(t, "m01", all[0].Content)
	})

	t.Run("TiesBrokenByInsertionOrder", func(t *testing.T) {
		s := newSession(t, time.Now())
		at := time.Now()
		for _, content := range []string{"a", "b", "c"} {
			require.NoError(t, store.CreateMessage(ctx, &domain.Message{
				SessionID: s.SessionID, Role: domain.RoleUser, Content: content, CreatedAt: at,
			}))
		}

		recent, err := store.GetRecentMessages(ctx, s.SessionID, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "b", recent[0].Content)
		assert.Equal(t, "c", recent[1].Content)
	})

	t.Run("FewerMessagesThanLimit", func(t *testing.T) {
		s := newSession(t, time.Now())
		require.NoError(t, store.CreateMessage(ctx, &domain.Message{
			SessionID: s.SessionID, Role: domain.RoleUser, Content: "only", CreatedAt: time.Now(),
		}))

		recent, err := store.GetRecentMessages(ctx, s.SessionID, 20)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "only", recent[0].Content)
	})

	t.Run("MessageRequiresSession", func(t *testing.T) {
		err := store.CreateMessage(ctx, &domain.Message{
			SessionID: uuid.NewString(), Role: domain.RoleUser, Content: "orphan", CreatedAt: time.Now(),
		})
		assert.Error(t, err)
	})

	t.Run("DeleteSessionsBeforeCascades", func(t *testing.T) {
		now := time.Now()
		old := newSession(t, now.Add(-10*24*time.Hour))
		fresh := newSession(t, now.Add(-time.Hour))
		for _, s := range []*domain.Session{old, old, fresh} {
			require.NoError(t, store.CreateMessage(ctx, &domain.Message{
				SessionID: s.SessionID, Role: domain.RoleUser, Content: "hi", CreatedAt: now,
			}))
		}

		deleted, err := store.DeleteSessionsBefore(ctx, now.Add(-7*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		gone, err := store.GetSession(ctx, old.SessionID)
		require.NoError(t, err)
		assert.Nil(t, gone)
		orphans, err := store.GetMessages(ctx, old.SessionID)
		require.NoError(t, err)
		assert.Empty(t, orphans)

		kept, err := store.GetMessages(ctx, fresh.SessionID)
		require.NoError(t, err)
		assert.Len(t, kept, 1)
	})

	t.Run("ListSessions", func(t *testing.T) {
		a := newSession(t, time.Now().Add(-2*time.Minute))
		b := newSession(t, time.Now().Add(-time.Minute))

		sessions, err := store.ListSessions(ctx)
		require.NoError(t, err)

		pos := map[string]int{}
		for i, s := range sessions {
			pos[s.SessionID] = i
		}
		require.Contains(t, pos, a.SessionID)
		require.Contains(t, pos, b.SessionID)
		assert.Less(t, pos[a.SessionID], pos[b.SessionID])
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
