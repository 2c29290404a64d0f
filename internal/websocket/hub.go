package websocket

import (
	"sync"

	"github.com/google/uuid"

	"t3chat-be/internal/constant"
	"t3chat-be/internal/pkg/logger"
	pktNats "t3chat-be/pkg/nats"
)

// Hub fans thread events out to a user's connected sockets. Events arrive
// over NATS so every instance, including the one that published, relays to
// its own local clients (multi-device sync).
type Hub struct {
	// UserID -> connected clients (one user can hold several devices)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		logger:     log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// AttachSubscriber wires the hub to the thread events subject tree. The
// subject's last token is the target user id.
func (h *Hub) AttachSubscriber(sub *pktNats.Subscriber) error {
	return sub.Subscribe(constant.ThreadEventsSubjectPrefix+">", func(subject string, data []byte) {
		userIdStr := subject[len(constant.ThreadEventsSubjectPrefix):]
		userId, err := uuid.Parse(userIdStr)
		if err != nil {
			h.logger.Warn("Hub", "Thread event with bad subject", map[string]interface{}{"subject": subject})
			return
		}
		h.send(userId, data)
	})
}

func (h *Hub) send(userId uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := h.clients[userId]
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": userId})
			h.unregister <- client
		}
	}
}
