package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"t3chat-be/internal/entity"
)

const testModel = "google/gemini-2.5-flash"

func userMsg(text string) entity.Message {
	return entity.Message{
		Id:    uuid.New(),
		Role:  entity.RoleUser,
		Parts: []entity.MessagePart{{Type: entity.PartText, Text: text}},
	}
}

func TestSubmitPreconditions(t *testing.T) {
	e := NewEngine(uuid.New(), uuid.New(), nil)

	err := e.Submit(entity.Message{Id: uuid.New()}, testModel)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	err = e.Submit(userMsg("hi"), "not/a-model")
	assert.ErrorIs(t, err, ErrUnknownModel)

	require.NoError(t, e.Submit(userMsg("hi"), testModel))
	assert.Equal(t, StateSubmitted, e.State())

	err = e.Submit(userMsg("again"), testModel)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestSubmitAllowsAttachmentOnlyMessage(t *testing.T) {
	e := NewEngine(uuid.New(), uuid.New(), nil)

	msg := entity.Message{
		Id:            uuid.New(),
		Parts:         []entity.MessagePart{{Type: entity.PartImage, MimeType: "image/png"}},
		AttachmentIds: []string{"attachment_abc"},
	}
	require.NoError(t, e.Submit(msg, testModel))
}

func TestStreamAppendsInArrivalOrder(t *testing.T) {
	e := NewEngine(uuid.New(), uuid.New(), nil)
	require.NoError(t, e.Submit(userMsg("hi"), testModel))

	require.NoError(t, e.AppendChunk("Hel"))
	assert.Equal(t, StateStreaming, e.State())
	require.NoError(t, e.AppendChunk("lo"))
	require.NoError(t, e.AppendChunk(" world"))

	transcript := e.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, entity.RoleAssistant, transcript[1].Role)
	assert.Equal(t, "Hello world", transcript[1].Text())
}

func TestCompleteReturnsBatchSinceLastPersist(t *testing.T) {
	chatId := uuid.New()
	e := NewEngine(chatId, uuid.New(), nil)

	require.NoError(t, e.Submit(userMsg("hi"), testModel))
	require.NoError(t, e.AppendChunk("hello"))

	now := time.Now()
	batch, err := e.Complete(now)
	require.NoError(t, err)
	assert.Equal(t, chatId, batch.ChatId)
	assert.True(t, batch.FirstExchange)
	assert.Equal(t, now, batch.CompletedAt)
	require.Len(t, batch.Messages, 2)
	assert.Equal(t, entity.RoleUser, batch.Messages[0].Role)
	assert.Equal(t, entity.RoleAssistant, batch.Messages[1].Role)
	assert.Equal(t, StateIdle, e.State())

	// Second exchange only carries its own pair and is no longer first.
	require.NoError(t, e.Submit(userMsg("more"), testModel))
	require.NoError(t, e.AppendChunk("sure"))
	batch, err = e.Complete(time.Now())
	require.NoError(t, err)
	assert.False(t, batch.FirstExchange)
	require.Len(t, batch.Messages, 2)
	assert.Equal(t, "more", batch.Messages[0].Text())
}

func TestFirstExchangeFalseWithPriorTranscript(t *testing.T) {
	prior := []entity.Message{userMsg("old"), {
		Id:    uuid.New(),
		Role:  entity.RoleAssistant,
		Parts: []entity.MessagePart{{Type: entity.PartText, Text: "old reply"}},
	}}
	e := NewEngine(uuid.New(), uuid.New(), prior)

	require.NoError(t, e.Submit(userMsg("hi"), testModel))
	require.NoError(t, e.AppendChunk("yo"))
	batch, err := e.Complete(time.Now())
	require.NoError(t, err)
	assert.False(t, batch.FirstExchange)
	require.Len(t, batch.Messages, 2)
}

func TestStopKeepsPartialContent(t *testing.T) {
	e := NewEngine(uuid.New(), uuid.New(), nil)

	aborted := false
	require.NoError(t, e.Submit(userMsg("hi"), testModel))
	e.SetAbort(func() { aborted = true })

	require.NoError(t, e.AppendChunk("Hel"))
	require.NoError(t, e.AppendChunk("lo"))

	batch, err := e.Stop(time.Now())
	require.NoError(t, err)
	assert.True(t, aborted)
	assert.Equal(t, StateCancelled, e.State())
	require.Len(t, batch.Messages, 2)
	assert.Equal(t, "Hello", batch.Messages[1].Text())
}

func TestStopBeforeFirstChunkPersistsUserMessageOnly(t *testing.T) {
	e := NewEngine(uuid.New(), uuid.New(), nil)
	require.NoError(t, e.Submit(userMsg("hi"), testModel))

	batch, err := e.Stop(time.Now())
	require.NoError(t, err)
	require.Len(t, batch.Messages, 1)
	assert.Equal(t, entity.RoleUser, batch.Messages[0].Role)
}

func TestStopWithoutSubmission(t *testing.T) {
	e := NewEngine(uuid.New(), uuid.New(), nil)
	_, err := e.Stop(time.Now())
	assert.ErrorIs(t, err, ErrNoActiveStream)
}

func TestFailKeepsOptimisticMessage(t *testing.T) {
	e := NewEngine(uuid.New(), uuid.New(), nil)
	require.NoError(t, e.Submit(userMsg("hi"), testModel))
	require.NoError(t, e.AppendChunk("par"))

	upstream := errors.New("stream reset")
	e.Fail(upstream)

	assert.Equal(t, StateError, e.State())
	assert.ErrorIs(t, e.LastError(), upstream)
	require.Len(t, e.Transcript(), 2)

	// Retry is user driven; the next submit works and its batch carries the
	// failed exchange's messages alongside the new one.
	require.NoError(t, e.Submit(userMsg("retry"), testModel))
	assert.NoError(t, e.LastError())
	require.NoError(t, e.AppendChunk("done"))
	batch, err := e.Complete(time.Now())
	require.NoError(t, err)
	assert.True(t, batch.FirstExchange)
	assert.Len(t, batch.Messages, 4)
}
