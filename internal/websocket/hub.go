package chatws

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/helio-trials/PatientEngageBack/internal/services"
)

// Hub fans message events out to connected patients and admins. Clients are
// keyed by role plus id because patient and admin ids come from separate
// tables.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Event
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	key  string
	send chan []byte
}

type sender interface {
	SendMessage(
		ctx context.Context,
		actorID int64,
		role string,
		input services.SendMessageInput,
	) (*services.MessageDelivery, error)
}

// Event is the wire format pushed to subscribers.
type Event struct {
	Type           string   `json:"type"`
	ConversationID string   `json:"conversation_id"`
	SenderID       string   `json:"sender_id,omitempty"`
	SenderRole     string   `json:"sender_role,omitempty"`
	RecipientID    string   `json:"recipient_id,omitempty"`
	RecipientRole  string   `json:"recipient_role,omitempty"`
	Content        string   `json:"content"`
	MessageType    string   `json:"message_type,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	Attachments    []string `json:"attachments,omitempty"`
	Timestamp      string   `json:"timestamp"`
}

func clientKey(role, id string) string {
	return role + ":" + id
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Event, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, role, userID string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		key:  clientKey(role, userID),
		send: make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.key]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.key] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.key]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.key)
			}
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish pushes a delivery produced outside the websocket path (REST send)
// to both parties.
func (h *Hub) Publish(delivery *services.MessageDelivery) {
	h.broadcast <- eventFromDelivery(delivery)
}

func eventFromDelivery(delivery *services.MessageDelivery) *Event {
	message := delivery.Message
	return &Event{
		Type:           "message",
		ConversationID: strconv.FormatInt(message.ConversationID, 10),
		SenderID:       strconv.FormatInt(message.SenderID, 10),
		SenderRole:     message.SenderRole,
		RecipientID:    strconv.FormatInt(delivery.RecipientID, 10),
		RecipientRole:  delivery.RecipientRole,
		Content:        message.Content,
		MessageType:    message.MessageType,
		Priority:       message.Priority,
		Attachments:    message.Attachments,
		Timestamp:      services.FormatChatTimestamp(message.CreatedAt),
	}
}

func (h *Hub) deliver(event *Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("chat hub encode event: %v", err)
		return
	}

	senderKey := clientKey(event.SenderRole, event.SenderID)
	h.sendTo(senderKey, encoded)
	if event.RecipientID != "" {
		if recipientKey := clientKey(event.RecipientRole, event.RecipientID); recipientKey != senderKey {
			h.sendTo(recipientKey, encoded)
		}
	}
}

func (h *Hub) sendTo(key string, payload []byte) {
	set, ok := h.clients[key]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, key)
	}
}

func (c *Client) ReadPump(service sender, actorID int64, role string) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming struct {
			Type           string   `json:"type"`
			ConversationID string   `json:"conversation_id"`
			Content        string   `json:"content"`
			MessageType    string   `json:"message_type"`
			Priority       string   `json:"priority"`
			Attachments    []string `json:"attachments"`
		}
		if err := json.Unmarshal(payload, &incoming); err != nil {
			c.writeError("invalid message payload")
			continue
		}
		if incoming.Type != "message" {
			c.writeError("unsupported message type")
			continue
		}

		conversationID, err := strconv.ParseInt(incoming.ConversationID, 10, 64)
		if err != nil || conversationID <= 0 {
			c.writeError("invalid conversation id")
			continue
		}

		delivery, err := service.SendMessage(context.Background(), actorID, role, services.SendMessageInput{
			ConversationID: conversationID,
			Content:        incoming.Content,
			MessageType:    incoming.MessageType,
			Priority:       incoming.Priority,
			Attachments:    incoming.Attachments,
		})
		if err != nil {
			c.writeError("failed to send message")
			continue
		}

		c.hub.broadcast <- eventFromDelivery(delivery)
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *Client) writeError(message string) {
	payload, err := json.Marshal(Event{
		Type:      "error",
		Content:   message,
		Timestamp: services.FormatChatTimestamp(time.Now().UTC()),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.hub.Unregister(c)
	}
}
