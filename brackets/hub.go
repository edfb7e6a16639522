package brackets

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Типы событий, транслируемых подписчикам комнаты турнира. Слой бота слушает
// их же: MatchDisputed — это сигнал эскалации арбитру, MatchActivated —
// сигнал создать тред матча.
const (
	EventMatchActivated     = "MATCH_ACTIVATED"
	EventMatchAwaiting      = "MATCH_AWAITING_CONFIRMATION"
	EventMatchDisputed      = "MATCH_DISPUTED"
	EventMatchFinished      = "MATCH_FINISHED"
	EventStandingsUpdated   = "STANDINGS_UPDATED"
	EventStageAdvanced      = "STAGE_ADVANCED"
	EventTournamentFinished = "TOURNAMENT_FINISHED"
	EventTournamentUpdated  = "TOURNAMENT_UPDATED"
)

// roomMessage — конверт события на проводе.
type roomMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client — одно websocket-подключение, подписанное на комнату турнира.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, room string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
		room: room,
	}
}

// Run регистрирует клиента в хабе и качает соединение до разрыва.
func (c *Client) Run() {
	c.hub.register <- c
	go c.writePump()
	c.readPump()
}

// closeSend закрывает канал отправки ровно один раз.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

func (c *Client) trySend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// Hub раздаёт события по комнатам; комната — shortID турнира. Рассылка
// best-effort: медленный клиент пропускает сообщение, состояние турнира от
// этого не зависит.
type Hub struct {
	logger     *slog.Logger
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]struct{}
	mu         sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]struct{})
			}
			h.rooms[client.room][client] = struct{}{}
			subscribers := len(h.rooms[client.room])
			h.mu.Unlock()
			h.logger.Info("websocket client subscribed",
				slog.String("room", client.room), slog.Int("subscribers", subscribers))

		case client := <-h.unregister:
			h.mu.Lock()
			if roomClients, ok := h.rooms[client.room]; ok {
				if _, member := roomClients[client]; member {
					client.closeSend()
					delete(roomClients, client)
					if len(roomClients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoom отправляет типизированное событие всем клиентам комнаты.
func (h *Hub) BroadcastToRoom(roomID string, eventType string, payload interface{}) {
	message, err := json.Marshal(roomMessage{Type: eventType, Payload: payload, RoomID: roomID})
	if err != nil {
		h.logger.Error("failed to marshal room event",
			slog.String("room", roomID), slog.String("type", eventType), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[roomID] {
		if !client.trySend(message) {
			h.logger.Warn("dropping event for slow websocket client", slog.String("room", roomID))
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		// Визуализатор только слушает; входящие сообщения игнорируются.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", slog.String("room", c.room), slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Дотягиваем всё, что успело накопиться, одним кадром.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
