package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"t3chat-be/internal/constant"
	"t3chat-be/internal/entity"
)

// State is the submission lifecycle of one open conversation.
type State string

const (
	StateIdle      State = "idle"
	StateSubmitted State = "submitted"
	StateStreaming State = "streaming"
	StateError     State = "error"
	StateCancelled State = "cancelled"
)

var (
	ErrBusy           = errors.New("a submission is already in flight")
	ErrEmptyMessage   = errors.New("message needs text or attachments")
	ErrUnknownModel   = errors.New("model is not in the catalog")
	ErrNoActiveStream = errors.New("no submission in flight")
)

// Batch is the set of messages to persist when an exchange finishes. Message
// ids are stable across retries, so writing the same batch twice must not
// duplicate rows.
type Batch struct {
	ChatId        uuid.UUID
	Messages      []entity.Message
	FirstExchange bool
	CompletedAt   time.Time
}

// Engine owns the live transcript and submission lifecycle of a single chat.
// The transcript is append-only; stream chunks are applied strictly in
// arrival order. The engine never talks to storage or the model itself, it
// only decides what the caller should send and persist.
type Engine struct {
	mu sync.Mutex

	chatId uuid.UUID
	userId uuid.UUID
	state  State

	transcript []entity.Message
	persisted  int

	firstExchange bool
	lastErr       error
	abort         func()
}

func NewEngine(chatId, userId uuid.UUID, transcript []entity.Message) *Engine {
	return &Engine{
		chatId:     chatId,
		userId:     userId,
		state:      StateIdle,
		transcript: transcript,
		persisted:  len(transcript),
	}
}

func (e *Engine) ChatId() uuid.UUID { return e.chatId }
func (e *Engine) UserId() uuid.UUID { return e.userId }

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastError returns the failure of the most recent exchange, if any. It is
// cleared on the next successful submit.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Transcript returns a copy of the full message list, including any
// in-progress assistant message.
func (e *Engine) Transcript() []entity.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]entity.Message, len(e.transcript))
	copy(out, e.transcript)
	return out
}

// Submit appends the optimistic user message and moves the engine into the
// submitted state. The message must carry text or attachments, and modelId
// must name a catalog model.
func (e *Engine) Submit(msg entity.Message, modelId string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateSubmitted, StateStreaming:
		return ErrBusy
	}
	if msg.Text() == "" && len(msg.AttachmentIds) == 0 {
		return ErrEmptyMessage
	}
	if !constant.IsCatalogModel(modelId) {
		return ErrUnknownModel
	}

	if msg.Id == uuid.Nil {
		msg.Id = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.ChatId = e.chatId
	msg.Role = entity.RoleUser

	e.firstExchange = e.persisted == 0
	e.transcript = append(e.transcript, msg)
	e.state = StateSubmitted
	e.lastErr = nil
	return nil
}

// SetAbort registers the cancellation hook for the in-flight inference call.
// Stop invokes it exactly once.
func (e *Engine) SetAbort(abort func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abort = abort
}

// History returns the transcript to send to the model, a copy of everything
// appended so far including the optimistic user message.
func (e *Engine) History() []entity.Message {
	return e.Transcript()
}

// AppendChunk adds one streamed token to the in-progress assistant message.
// The first chunk creates the assistant message and moves the engine to the
// streaming state; later chunks extend it in arrival order.
func (e *Engine) AppendChunk(token string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateSubmitted:
		e.transcript = append(e.transcript, entity.Message{
			Id:        uuid.New(),
			ChatId:    e.chatId,
			Role:      entity.RoleAssistant,
			Parts:     []entity.MessagePart{{Type: entity.PartText, Text: token}},
			CreatedAt: time.Now(),
		})
		e.state = StateStreaming
	case StateStreaming:
		last := &e.transcript[len(e.transcript)-1]
		last.Parts[len(last.Parts)-1].Text += token
	default:
		return ErrNoActiveStream
	}
	return nil
}

// Complete finalizes a successful exchange. It returns the batch of messages
// appended since the last persisted point, flagged when this was the chat's
// first completed exchange so the caller can derive a title and re-stamp the
// chat's createdAt.
func (e *Engine) Complete(now time.Time) (*Batch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateSubmitted, StateStreaming:
	default:
		return nil, ErrNoActiveStream
	}
	e.state = StateIdle
	e.abort = nil
	return e.snapshotBatchLocked(now), nil
}

// Stop aborts the in-flight inference call. Partial assistant content already
// streamed is kept and returned for persistence; nothing is rolled back.
func (e *Engine) Stop(now time.Time) (*Batch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateSubmitted, StateStreaming:
	default:
		return nil, ErrNoActiveStream
	}
	if e.abort != nil {
		e.abort()
		e.abort = nil
	}
	e.state = StateCancelled
	return e.snapshotBatchLocked(now), nil
}

// Fail records an upstream failure. The optimistic user message and any
// partial assistant output stay in the transcript; nothing is persisted and
// the draft is not restored.
func (e *Engine) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateSubmitted, StateStreaming:
	default:
		return
	}
	e.state = StateError
	e.lastErr = err
	e.abort = nil
}

func (e *Engine) snapshotBatchLocked(now time.Time) *Batch {
	msgs := make([]entity.Message, len(e.transcript)-e.persisted)
	copy(msgs, e.transcript[e.persisted:])
	batch := &Batch{
		ChatId:        e.chatId,
		Messages:      msgs,
		FirstExchange: e.firstExchange,
		CompletedAt:   now,
	}
	e.persisted = len(e.transcript)
	return batch
}
