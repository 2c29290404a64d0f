package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"t3chat-be/internal/dto"
	"t3chat-be/internal/entity"
	"t3chat-be/internal/pkg/serverutils"
	"t3chat-be/internal/repository/contract"
	"t3chat-be/internal/repository/memory"
	"t3chat-be/internal/repository/specification"
	"t3chat-be/internal/repository/unitofwork"
	"t3chat-be/pkg/blob"
	"t3chat-be/pkg/llm"
)

// ---- in-memory fakes -------------------------------------------------------

type fakeChatRepository struct {
	mu    sync.Mutex
	chats map[uuid.UUID]*entity.Chat
}

func newFakeChatRepository() *fakeChatRepository {
	return &fakeChatRepository{chats: map[uuid.UUID]*entity.Chat{}}
}

func (r *fakeChatRepository) Create(_ context.Context, chat *entity.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *chat
	r.chats[chat.Id] = &c
	return nil
}

func (r *fakeChatRepository) Update(_ context.Context, chat *entity.Chat) error {
	return r.Create(context.Background(), chat)
}

func (r *fakeChatRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.chats, id)
	return nil
}

func (r *fakeChatRepository) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var byId *uuid.UUID
	var owner *uuid.UUID
	for _, s := range specs {
		switch spec := s.(type) {
		case specification.ByID:
			id := spec.ID
			byId = &id
		case specification.OwnedBy:
			id := spec.UserID
			owner = &id
		}
	}
	for _, c := range r.chats {
		if byId != nil && c.Id != *byId {
			continue
		}
		if owner != nil && c.UserId != *owner {
			continue
		}
		found := *c
		return &found, nil
	}
	return nil, nil
}

func (r *fakeChatRepository) FindAll(_ context.Context, _ ...specification.Specification) ([]*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Chat, 0, len(r.chats))
	for _, c := range r.chats {
		found := *c
		out = append(out, &found)
	}
	return out, nil
}

func (r *fakeChatRepository) FindAllWithMessageCounts(ctx context.Context, userId uuid.UUID) ([]*entity.Chat, error) {
	return r.FindAll(ctx)
}

func (r *fakeChatRepository) FindScratch(_ context.Context, userId uuid.UUID) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chats {
		if c.UserId == userId && c.Title == nil && c.MessageCount == 0 {
			found := *c
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeChatRepository) Count(_ context.Context, _ ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.chats)), nil
}

type fakeMessageRepository struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*entity.Message
}

func newFakeMessageRepository() *fakeMessageRepository {
	return &fakeMessageRepository{messages: map[uuid.UUID]*entity.Message{}}
}

func (r *fakeMessageRepository) UpsertBatch(_ context.Context, messages []*entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range messages {
		c := *m
		r.messages[m.Id] = &c
	}
	return nil
}

func (r *fakeMessageRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var chatId *uuid.UUID
	for _, s := range specs {
		if spec, ok := s.(specification.ByChatID); ok {
			id := spec.ChatID
			chatId = &id
		}
	}
	out := make([]*entity.Message, 0, len(r.messages))
	for _, m := range r.messages {
		if chatId != nil && m.ChatId != *chatId {
			continue
		}
		found := *m
		out = append(out, &found)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepository) CountByChatId(ctx context.Context, chatId uuid.UUID) (int64, error) {
	msgs, _ := r.FindAll(ctx, specification.ByChatID{ChatID: chatId})
	return int64(len(msgs)), nil
}

func (r *fakeMessageRepository) Count(_ context.Context, _ ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.messages)), nil
}

type fakeUnitOfWork struct {
	chatRepo    *fakeChatRepository
	messageRepo *fakeMessageRepository
}

func (u *fakeUnitOfWork) Begin(context.Context) error { return nil }
func (u *fakeUnitOfWork) Commit() error               { return nil }
func (u *fakeUnitOfWork) Rollback() error             { return nil }

func (u *fakeUnitOfWork) UserRepository() contract.UserRepository                     { return nil }
func (u *fakeUnitOfWork) UserProviderRepository() contract.UserProviderRepository     { return nil }
func (u *fakeUnitOfWork) UserRefreshTokenRepository() contract.UserRefreshTokenRepository {
	return nil
}
func (u *fakeUnitOfWork) ChatRepository() contract.ChatRepository       { return u.chatRepo }
func (u *fakeUnitOfWork) MessageRepository() contract.MessageRepository { return u.messageRepo }

type fakeFactory struct {
	uow *fakeUnitOfWork
}

func (f *fakeFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork { return f.uow }

// fakeProvider streams the configured chunks, then either returns or blocks
// until the context is cancelled.
type fakeProvider struct {
	chunks       []string
	blockAtEnd   bool
	failWith     error
	chunkEmitted chan struct{}
}

func (p *fakeProvider) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	return "Short Title", nil
}

func (p *fakeProvider) ChatStream(ctx context.Context, _ []llm.Message, onChunk llm.ChunkFunc, _ ...llm.Option) (string, error) {
	if p.failWith != nil {
		return "", p.failWith
	}
	var full string
	for _, c := range p.chunks {
		if ctx.Err() != nil {
			return full, nil
		}
		if err := onChunk(c); err != nil {
			return full, err
		}
		full += c
		if p.chunkEmitted != nil {
			p.chunkEmitted <- struct{}{}
		}
	}
	if p.blockAtEnd {
		<-ctx.Done()
	}
	return full, nil
}

type fakeBlobStore struct {
	objects map[string]*blob.Object
}

func (s *fakeBlobStore) Put(_ context.Context, ownerUserId, contentType string, data []byte) (string, error) {
	id := "attachment_" + uuid.NewString()
	s.objects[id] = &blob.Object{Id: id, ContentType: contentType, OwnerUserId: ownerUserId, Data: data}
	return id, nil
}

func (s *fakeBlobStore) Get(_ context.Context, id, requesterUserId string) (*blob.Object, error) {
	obj, ok := s.objects[id]
	if !ok || obj.OwnerUserId != requesterUserId {
		return nil, blob.ErrNotFound
	}
	return obj, nil
}

type capturingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *capturingPublisher) Publish(_ context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// ---- fixture ---------------------------------------------------------------

type chatFixture struct {
	svc       IChatService
	chatRepo  *fakeChatRepository
	msgRepo   *fakeMessageRepository
	publisher *capturingPublisher
	blobStore *fakeBlobStore
	userId    uuid.UUID
	chatId    uuid.UUID
}

func newChatFixture(t *testing.T, provider llm.LLMProvider) *chatFixture {
	t.Helper()

	chatRepo := newFakeChatRepository()
	msgRepo := newFakeMessageRepository()
	factory := &fakeFactory{uow: &fakeUnitOfWork{chatRepo: chatRepo, messageRepo: msgRepo}}
	publisher := &capturingPublisher{}
	store := &fakeBlobStore{objects: map[string]*blob.Object{}}

	userId := uuid.New()
	chatId := uuid.New()
	require.NoError(t, chatRepo.Create(context.Background(), &entity.Chat{
		Id:        chatId,
		UserId:    userId,
		CreatedAt: time.Now().Add(-time.Hour),
	}))

	svc := NewChatService(factory, provider, store, memory.NewEngineRegistry(), publisher, nil, nopLogger{})
	return &chatFixture{
		svc:       svc,
		chatRepo:  chatRepo,
		msgRepo:   msgRepo,
		publisher: publisher,
		blobStore: store,
		userId:    userId,
		chatId:    chatId,
	}
}

const testModelId = "google/gemini-2.5-flash"

// ---- tests -----------------------------------------------------------------

func TestStreamPersistsExchange(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{chunks: []string{"Hel", "lo"}})

	var streamed string
	err := f.svc.Stream(context.Background(), f.userId, f.chatId, &dto.StreamChatRequest{
		Text:    "hi there",
		ModelId: testModelId,
	}, func(chunk string) error {
		streamed += chunk
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", streamed)

	msgs, err := f.msgRepo.FindAll(context.Background(), specification.ByChatID{ChatID: f.chatId})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi there", msgs[0].Text())
	assert.Equal(t, entity.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello", msgs[1].Text())
}

func TestStreamRetrySameMessageIdDoesNotDuplicateUserRow(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{chunks: []string{"ok"}})
	messageId := uuid.New()

	for i := 0; i < 2; i++ {
		err := f.svc.Stream(context.Background(), f.userId, f.chatId, &dto.StreamChatRequest{
			MessageId: &messageId,
			Text:      "hi",
			ModelId:   testModelId,
		}, func(string) error { return nil })
		require.NoError(t, err)
	}

	msgs, err := f.msgRepo.FindAll(context.Background(), specification.ByChatID{ChatID: f.chatId})
	require.NoError(t, err)

	userRows := 0
	for _, m := range msgs {
		if m.Id == messageId {
			userRows++
		}
	}
	assert.Equal(t, 1, userRows)
}

func TestStreamFirstExchangeSideEffects(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{chunks: []string{"hey"}})
	start := time.Now()

	err := f.svc.Stream(context.Background(), f.userId, f.chatId, &dto.StreamChatRequest{
		Text:    "what is Go?",
		ModelId: testModelId,
	}, func(string) error { return nil })
	require.NoError(t, err)

	// createdAt is re-stamped to the completion time, not the row creation
	// time, so the chat sorts by first activity in the sidebar.
	chat, err := f.chatRepo.FindOne(context.Background(), specification.ByID{ID: f.chatId})
	require.NoError(t, err)
	assert.False(t, chat.CreatedAt.Before(start))

	// Exactly one exchange-completed event queued for title derivation.
	require.Len(t, f.publisher.payloads, 1)
}

func TestStreamSecondExchangeHasNoFirstExchangeSideEffects(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{chunks: []string{"hey"}})

	for i := 0; i < 2; i++ {
		err := f.svc.Stream(context.Background(), f.userId, f.chatId, &dto.StreamChatRequest{
			Text:    "hello again",
			ModelId: testModelId,
		}, func(string) error { return nil })
		require.NoError(t, err)
	}

	assert.Len(t, f.publisher.payloads, 1)
}

func TestStreamUpstreamFailurePersistsNothing(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{failWith: errors.New("upstream reset")})

	err := f.svc.Stream(context.Background(), f.userId, f.chatId, &dto.StreamChatRequest{
		Text:    "hi",
		ModelId: testModelId,
	}, func(string) error { return nil })
	require.Error(t, err)

	count, _ := f.msgRepo.Count(context.Background())
	assert.Zero(t, count)
	assert.Empty(t, f.publisher.payloads)
}

func TestStreamRejectsUnknownModel(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{chunks: []string{"x"}})

	err := f.svc.Stream(context.Background(), f.userId, f.chatId, &dto.StreamChatRequest{
		Text:    "hi",
		ModelId: "made-up/model",
	}, func(string) error { return nil })

	var verr *serverutils.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestStreamUnresolvableAttachmentFailsSubmit(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{chunks: []string{"x"}})

	// Attachment owned by a different user resolves as not-found.
	otherId, err := f.blobStore.Put(context.Background(), uuid.NewString(), "image/png", []byte{1})
	require.NoError(t, err)

	err = f.svc.Stream(context.Background(), f.userId, f.chatId, &dto.StreamChatRequest{
		Text:          "look at this",
		ModelId:       testModelId,
		AttachmentIds: []string{otherId},
	}, func(string) error { return nil })
	require.ErrorIs(t, err, serverutils.ErrNotFound)

	count, _ := f.msgRepo.Count(context.Background())
	assert.Zero(t, count)
}

func TestStopPersistsPartialContent(t *testing.T) {
	provider := &fakeProvider{
		chunks:       []string{"Hel", "lo"},
		blockAtEnd:   true,
		chunkEmitted: make(chan struct{}, 2),
	}
	f := newChatFixture(t, provider)

	done := make(chan error, 1)
	go func() {
		done <- f.svc.Stream(context.Background(), f.userId, f.chatId, &dto.StreamChatRequest{
			Text:    "hi",
			ModelId: testModelId,
		}, func(string) error { return nil })
	}()

	<-provider.chunkEmitted
	<-provider.chunkEmitted

	res, err := f.svc.Stop(context.Background(), f.userId, f.chatId)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Persisted)

	require.NoError(t, <-done)

	msgs, err := f.msgRepo.FindAll(context.Background(), specification.ByChatID{ChatID: f.chatId})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello", msgs[1].Text())
}

func TestStopWithoutLiveStream(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{})

	_, err := f.svc.Stop(context.Background(), f.userId, f.chatId)
	assert.ErrorIs(t, err, serverutils.ErrNotFound)
}

func TestStopByAnotherUserIsNotFound(t *testing.T) {
	provider := &fakeProvider{blockAtEnd: true, chunkEmitted: make(chan struct{}, 1), chunks: []string{"x"}}
	f := newChatFixture(t, provider)

	done := make(chan error, 1)
	go func() {
		done <- f.svc.Stream(context.Background(), f.userId, f.chatId, &dto.StreamChatRequest{
			Text:    "hi",
			ModelId: testModelId,
		}, func(string) error { return nil })
	}()
	<-provider.chunkEmitted

	_, err := f.svc.Stop(context.Background(), uuid.New(), f.chatId)
	assert.ErrorIs(t, err, serverutils.ErrNotFound)

	// Clean up the blocked stream.
	_, err = f.svc.Stop(context.Background(), f.userId, f.chatId)
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestNewChatReusesScratch(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{})

	// The fixture chat is title-less with zero messages, so it is scratch.
	res, err := f.svc.NewChat(context.Background(), f.userId)
	require.NoError(t, err)
	assert.True(t, res.Reused)
	assert.Equal(t, f.chatId, res.Id)
}

func TestApplyIntentRename(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{})

	_, err := f.svc.ApplyIntent(context.Background(), f.userId, f.chatId, &dto.ChatIntentRequest{
		Intent: "rename",
		Title:  "  Weekend Plans  ",
	})
	require.NoError(t, err)

	chat, _ := f.chatRepo.FindOne(context.Background(), specification.ByID{ID: f.chatId})
	require.NotNil(t, chat.Title)
	assert.Equal(t, "Weekend Plans", *chat.Title)
}

func TestApplyIntentRenameEmptyTitleRejected(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{})

	_, err := f.svc.ApplyIntent(context.Background(), f.userId, f.chatId, &dto.ChatIntentRequest{
		Intent: "rename",
		Title:  "   ",
	})

	var verr *serverutils.ValidationError
	require.ErrorAs(t, err, &verr)

	chat, _ := f.chatRepo.FindOne(context.Background(), specification.ByID{ID: f.chatId})
	assert.Nil(t, chat.Title)
}

func TestApplyIntentDeleteOfOpenChatRedirects(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{})

	res, err := f.svc.ApplyIntent(context.Background(), f.userId, f.chatId, &dto.ChatIntentRequest{
		Intent:  "delete",
		Current: f.chatId.String(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Redirect)

	chat, _ := f.chatRepo.FindOne(context.Background(), specification.ByID{ID: f.chatId})
	assert.Nil(t, chat)
}

func TestApplyIntentOnForeignChatIsNotFound(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{})

	_, err := f.svc.ApplyIntent(context.Background(), uuid.New(), f.chatId, &dto.ChatIntentRequest{
		Intent: "delete",
	})
	assert.ErrorIs(t, err, serverutils.ErrNotFound)
}
