package threadlist

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"t3chat-be/internal/entity"
)

func chat(title string, createdAt time.Time, pinned bool, messages int) entity.Chat {
	c := entity.Chat{
		Id:           uuid.New(),
		UserId:       uuid.New(),
		CreatedAt:    createdAt,
		IsPinned:     pinned,
		MessageCount: messages,
	}
	if title != "" {
		c.Title = &title
	}
	return c
}

func labels(groups []Group) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Label)
	}
	return out
}

func TestRenderGrouping(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	today := chat("today", now.Add(-5*time.Hour), false, 2)
	yesterday := chat("yesterday", now.Add(-1*day), false, 2)
	fourDays := chat("four days", now.Add(-4*day), false, 2)
	twentyDays := chat("twenty days", now.Add(-20*day), false, 2)
	fortyDays := chat("forty days", now.Add(-40*day), false, 2)
	pinnedOld := chat("pinned", now.Add(-40*day), true, 2)

	s := NewSynchronizer()
	s.SetBase([]entity.Chat{fortyDays, today, pinnedOld, yesterday, twentyDays, fourDays})

	groups := s.Render(now, "")
	require.Equal(t, []string{
		GroupPinned, GroupToday, GroupYesterday, GroupLast7Days, GroupLast30Days, GroupOlder,
	}, labels(groups))

	assert.Equal(t, pinnedOld.Id, groups[0].Chats[0].Id)
	assert.Equal(t, today.Id, groups[1].Chats[0].Id)
	assert.Equal(t, yesterday.Id, groups[2].Chats[0].Id)
	assert.Equal(t, fourDays.Id, groups[3].Chats[0].Id)
	assert.Equal(t, twentyDays.Id, groups[4].Chats[0].Id)
	assert.Equal(t, fortyDays.Id, groups[5].Chats[0].Id)
}

func TestRenderYesterdayIsCalendarDayNotRollingWindow(t *testing.T) {
	// 00:30 local; three hours earlier is 21:30 of the previous calendar day.
	now := time.Date(2026, 3, 14, 0, 30, 0, 0, time.UTC)
	lateLastNight := chat("late", now.Add(-3*time.Hour), false, 1)

	s := NewSynchronizer()
	s.SetBase([]entity.Chat{lateLastNight})

	groups := s.Render(now, "")
	require.Len(t, groups, 1)
	assert.Equal(t, GroupYesterday, groups[0].Label)
}

func TestRenderPinnedKeepsServerOrder(t *testing.T) {
	now := time.Now()
	older := chat("a", now.Add(-72*time.Hour), true, 1)
	newer := chat("b", now.Add(-1*time.Hour), true, 1)

	s := NewSynchronizer()
	s.SetBase([]entity.Chat{older, newer})

	groups := s.Render(now, "")
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Chats, 2)
	assert.Equal(t, older.Id, groups[0].Chats[0].Id)
	assert.Equal(t, newer.Id, groups[0].Chats[1].Id)
}

func TestRenderSortsBucketsNewestFirst(t *testing.T) {
	now := time.Now()
	morning := chat("morning", now.Add(-8*time.Hour), false, 1)
	noon := chat("noon", now.Add(-3*time.Hour), false, 1)

	s := NewSynchronizer()
	s.SetBase([]entity.Chat{morning, noon})

	groups := s.Render(now, "")
	require.Len(t, groups, 1)
	assert.Equal(t, noon.Id, groups[0].Chats[0].Id)
	assert.Equal(t, morning.Id, groups[0].Chats[1].Id)
}

func TestRenderExcludesZeroMessageChats(t *testing.T) {
	now := time.Now()
	scratch := chat("", now, false, 0)
	real := chat("real", now, false, 3)

	s := NewSynchronizer()
	s.SetBase([]entity.Chat{scratch, real})

	groups := s.Render(now, "")
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Chats, 1)
	assert.Equal(t, real.Id, groups[0].Chats[0].Id)

	// Still excluded when a query is present.
	groups = s.Render(now, "real")
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Chats, 1)
}

func TestRenderSearchFilter(t *testing.T) {
	now := time.Now()
	plans := chat("Weekend Plans", now, false, 1)
	golang := chat("Go generics", now, false, 1)

	s := NewSynchronizer()
	s.SetBase([]entity.Chat{plans, golang})

	groups := s.Render(now, "weekend")
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Chats, 1)
	assert.Equal(t, plans.Id, groups[0].Chats[0].Id)

	assert.Empty(t, s.Render(now, "rust"))
}

func TestRenameOverlayAndRollback(t *testing.T) {
	now := time.Now()
	c := chat("Old title", now, false, 1)

	s := NewSynchronizer()
	s.SetBase([]entity.Chat{c})

	title, ok := s.DispatchRename(c.Id, "  Foo  ")
	require.True(t, ok)
	assert.Equal(t, "Foo", title)

	groups := s.Render(now, "")
	assert.Equal(t, "Foo", *groups[0].Chats[0].Title)

	// Network failure: dropping the intent reasserts the server value.
	s.Reject(c.Id, FieldTitle)
	groups = s.Render(now, "")
	assert.Equal(t, "Old title", *groups[0].Chats[0].Title)
	assert.Zero(t, s.PendingCount())
}

func TestRenameEmptyOrUnchangedIsCancel(t *testing.T) {
	now := time.Now()
	c := chat("Keep me", now, false, 1)

	s := NewSynchronizer()
	s.SetBase([]entity.Chat{c})

	_, ok := s.DispatchRename(c.Id, "   ")
	assert.False(t, ok)
	_, ok = s.DispatchRename(c.Id, "Keep me")
	assert.False(t, ok)
	assert.Zero(t, s.PendingCount())
}

func TestLaterIntentOnSameFieldSupersedes(t *testing.T) {
	now := time.Now()
	c := chat("x", now, false, 1)

	s := NewSynchronizer()
	s.SetBase([]entity.Chat{c})

	_, ok := s.DispatchRename(c.Id, "First")
	require.True(t, ok)
	_, ok = s.DispatchRename(c.Id, "Second")
	require.True(t, ok)

	groups := s.Render(now, "")
	assert.Equal(t, "Second", *groups[0].Chats[0].Title)
	assert.Equal(t, 1, s.PendingCount())
}

func TestPinAndRenameOverlayIndependently(t *testing.T) {
	now := time.Now()
	c := chat("x", now.Add(-48*time.Hour), false, 1)

	s := NewSynchronizer()
	s.SetBase([]entity.Chat{c})

	_, ok := s.DispatchRename(c.Id, "Renamed")
	require.True(t, ok)
	s.DispatchPin(c.Id, true)

	groups := s.Render(now, "")
	require.Equal(t, GroupPinned, groups[0].Label)
	assert.Equal(t, "Renamed", *groups[0].Chats[0].Title)
	assert.Equal(t, 2, s.PendingCount())
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	now := time.Now()
	c := chat("x", now, false, 1)

	s := NewSynchronizer()
	s.SetBase([]entity.Chat{c})

	// Confirming without arming dispatches nothing and hides nothing.
	assert.False(t, s.ConfirmDelete(c.Id))
	require.Len(t, s.Render(now, ""), 1)

	// Arming alone changes nothing either.
	s.ArmDelete(c.Id)
	require.Len(t, s.Render(now, ""), 1)

	assert.True(t, s.ConfirmDelete(c.Id))
	assert.Empty(t, s.Render(now, ""))

	// A second confirm needs a fresh arm.
	assert.False(t, s.ConfirmDelete(c.Id))
}

func TestDisarmDeleteCancelsConfirmation(t *testing.T) {
	c := chat("x", time.Now(), false, 1)
	s := NewSynchronizer()
	s.SetBase([]entity.Chat{c})

	s.ArmDelete(c.Id)
	s.DisarmDelete(c.Id)
	assert.False(t, s.ConfirmDelete(c.Id))
}

func TestDeleteRollbackRestoresChat(t *testing.T) {
	now := time.Now()
	c := chat("x", now, false, 1)
	s := NewSynchronizer()
	s.SetBase([]entity.Chat{c})

	s.ArmDelete(c.Id)
	require.True(t, s.ConfirmDelete(c.Id))
	assert.Empty(t, s.Render(now, ""))

	s.Reject(c.Id, FieldDeleted)
	require.Len(t, s.Render(now, ""), 1)
}
