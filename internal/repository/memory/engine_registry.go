package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"t3chat-be/pkg/chat/session"
)

// EngineRegistry tracks live session engines by chat id so a stop request
// can reach the stream it targets. Entries expire on their own in case a
// stream handler dies without unregistering.
type EngineRegistry struct {
	engines *cache.Cache
}

func NewEngineRegistry() *EngineRegistry {
	return &EngineRegistry{
		engines: cache.New(30*time.Minute, 10*time.Minute),
	}
}

func (r *EngineRegistry) Put(chatId uuid.UUID, eng *session.Engine) {
	r.engines.Set(chatId.String(), eng, cache.DefaultExpiration)
}

func (r *EngineRegistry) Get(chatId uuid.UUID) (*session.Engine, bool) {
	v, ok := r.engines.Get(chatId.String())
	if !ok {
		return nil, false
	}
	return v.(*session.Engine), true
}

func (r *EngineRegistry) Delete(chatId uuid.UUID) {
	r.engines.Delete(chatId.String())
}
