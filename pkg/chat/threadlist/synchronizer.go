package threadlist

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"t3chat-be/internal/entity"
)

// Field identifies which chat property a pending intent touches. Intents are
// tracked per chat and field so a rename and a pin on the same chat can be in
// flight at once.
type Field string

const (
	FieldTitle   Field = "title"
	FieldPinned  Field = "pinned"
	FieldDeleted Field = "deleted"
)

// Intent is one locally dispatched, not yet confirmed mutation overlaid on
// the last known server list.
type Intent struct {
	ChatId uuid.UUID
	Field  Field
	Title  string
	Pinned bool

	seq uint64
}

// Group labels, emitted in this order when non-empty.
const (
	GroupPinned     = "Pinned"
	GroupToday      = "Today"
	GroupYesterday  = "Yesterday"
	GroupLast7Days  = "Last 7 days"
	GroupLast30Days = "Last 30 days"
	GroupOlder      = "Older"
)

// Group is one labeled bucket of the rendered sidebar.
type Group struct {
	Label string
	Chats []entity.Chat
}

type intentKey struct {
	chatId uuid.UUID
	field  Field
}

// Synchronizer derives the displayed thread list from the last fetched server
// list plus pending intents. The server list is never mutated in place;
// rollback is dropping the intent.
type Synchronizer struct {
	base    []entity.Chat
	pending map[intentKey]Intent
	armed   map[uuid.UUID]bool
	seq     uint64
}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{
		pending: make(map[intentKey]Intent),
		armed:   make(map[uuid.UUID]bool),
	}
}

// SetBase replaces the authoritative server list after a fetch.
func (s *Synchronizer) SetBase(chats []entity.Chat) {
	s.base = make([]entity.Chat, len(chats))
	copy(s.base, chats)
}

// DispatchRename records a rename intent. It returns false without recording
// anything when the trimmed title is empty or matches the currently displayed
// value, which the caller treats as cancel, not clear.
func (s *Synchronizer) DispatchRename(chatId uuid.UUID, title string) (string, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", false
	}
	if current, ok := s.displayedTitle(chatId); ok && current == title {
		return "", false
	}
	s.put(Intent{ChatId: chatId, Field: FieldTitle, Title: title})
	return title, true
}

// DispatchPin records a pin-toggle intent.
func (s *Synchronizer) DispatchPin(chatId uuid.UUID, pinned bool) {
	s.put(Intent{ChatId: chatId, Field: FieldPinned, Pinned: pinned})
}

// ArmDelete is the first step of the two-step delete. It changes nothing in
// the displayed list and dispatches nothing.
func (s *Synchronizer) ArmDelete(chatId uuid.UUID) {
	s.armed[chatId] = true
}

// DisarmDelete cancels a pending confirmation.
func (s *Synchronizer) DisarmDelete(chatId uuid.UUID) {
	delete(s.armed, chatId)
}

// ConfirmDelete records the delete intent, but only when ArmDelete was called
// first. It returns whether the caller should dispatch the mutation.
func (s *Synchronizer) ConfirmDelete(chatId uuid.UUID) bool {
	if !s.armed[chatId] {
		return false
	}
	delete(s.armed, chatId)
	s.put(Intent{ChatId: chatId, Field: FieldDeleted})
	return true
}

// Resolve clears a confirmed intent. The caller refetches the server list
// afterwards so the committed value comes from the base, not the overlay.
func (s *Synchronizer) Resolve(chatId uuid.UUID, field Field) {
	delete(s.pending, intentKey{chatId: chatId, field: field})
}

// Reject clears a failed intent. No error state is kept; the pre-mutation
// server values reassert themselves on the next Render.
func (s *Synchronizer) Reject(chatId uuid.UUID, field Field) {
	delete(s.pending, intentKey{chatId: chatId, field: field})
}

// PendingCount reports how many intents are in flight.
func (s *Synchronizer) PendingCount() int {
	return len(s.pending)
}

func (s *Synchronizer) put(in Intent) {
	s.seq++
	in.seq = s.seq
	s.pending[intentKey{chatId: in.ChatId, field: in.Field}] = in
}

func (s *Synchronizer) displayedTitle(chatId uuid.UUID) (string, bool) {
	if in, ok := s.pending[intentKey{chatId: chatId, field: FieldTitle}]; ok {
		return in.Title, true
	}
	for i := range s.base {
		if s.base[i].Id == chatId {
			if s.base[i].Title == nil {
				return "", true
			}
			return *s.base[i].Title, true
		}
	}
	return "", false
}

// Render derives the displayed sidebar groups from the base list and pending
// intents. Pinned chats come first in server order; the rest are bucketed by
// local calendar day distance and sorted newest first within each bucket.
// Chats with zero messages never appear. A non-empty query filters by
// case-insensitive substring match on the title before grouping.
func (s *Synchronizer) Render(now time.Time, query string) []Group {
	overlaid := make([]entity.Chat, 0, len(s.base))
	for _, c := range s.base {
		if _, ok := s.pending[intentKey{chatId: c.Id, field: FieldDeleted}]; ok {
			continue
		}
		if in, ok := s.pending[intentKey{chatId: c.Id, field: FieldTitle}]; ok {
			title := in.Title
			c.Title = &title
		}
		if in, ok := s.pending[intentKey{chatId: c.Id, field: FieldPinned}]; ok {
			c.IsPinned = in.Pinned
		}
		overlaid = append(overlaid, c)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	filtered := overlaid[:0]
	for _, c := range overlaid {
		if c.MessageCount == 0 {
			continue
		}
		if query != "" {
			if c.Title == nil || !strings.Contains(strings.ToLower(*c.Title), query) {
				continue
			}
		}
		filtered = append(filtered, c)
	}

	var pinned []entity.Chat
	buckets := map[string][]entity.Chat{}
	for _, c := range filtered {
		if c.IsPinned {
			pinned = append(pinned, c)
			continue
		}
		label := bucketLabel(now, c.CreatedAt)
		buckets[label] = append(buckets[label], c)
	}

	groups := make([]Group, 0, 6)
	if len(pinned) > 0 {
		groups = append(groups, Group{Label: GroupPinned, Chats: pinned})
	}
	for _, label := range []string{GroupToday, GroupYesterday, GroupLast7Days, GroupLast30Days, GroupOlder} {
		chats := buckets[label]
		if len(chats) == 0 {
			continue
		}
		sort.SliceStable(chats, func(i, j int) bool {
			return chats[i].CreatedAt.After(chats[j].CreatedAt)
		})
		groups = append(groups, Group{Label: label, Chats: chats})
	}
	return groups
}

func bucketLabel(now, createdAt time.Time) string {
	days := daysBetween(createdAt, now)
	switch {
	case days <= 0:
		return GroupToday
	case days == 1:
		return GroupYesterday
	case days <= 7:
		return GroupLast7Days
	case days <= 30:
		return GroupLast30Days
	default:
		return GroupOlder
	}
}

// daysBetween counts calendar day boundaries between the two times in now's
// location, so "Today" is the local calendar day rather than a rolling 24h
// window.
func daysBetween(t, now time.Time) int {
	return int(startOfDay(now).Sub(startOfDay(t.In(now.Location()))).Hours() / 24)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
