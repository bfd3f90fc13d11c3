// Package client is a typed HTTP client for the chat backend. It
// mirrors the REST surface one call per endpoint and upgrades to a
// websocket for the event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-backend/domain"
	"chat-backend/domain/event"
	"chat-backend/errors"
)

// Chat mirrors the creation and listing payloads.
type Chat struct {
	ChatID       string   `json:"chat_id"`
	Participants []string `json:"participants"`
}

// PresenceAck mirrors the update-presence acknowledgment.
type PresenceAck struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// ReadReceipt mirrors the mark-read acknowledgment.
type ReadReceipt struct {
	ChatID            string     `json:"chat_id"`
	UserID            string     `json:"user_id"`
	LastReadMessageID *uuid.UUID `json:"last_read_message_id"`
}

type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		dialer:  websocket.DefaultDialer,
	}
}

func (c *Client) CreateChat(ctx context.Context, participants []string) (*Chat, error) {
	var chat Chat
	payload := map[string][]string{"participants": participants}
	if err := c.do(ctx, http.MethodPost, "/chats", payload, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *Client) ListChats(ctx context.Context) ([]Chat, error) {
	var chats []Chat
	if err := c.do(ctx, http.MethodGet, "/chats", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (c *Client) GetMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	var messages []domain.Message
	if err := c.do(ctx, http.MethodGet, "/chats/"+chatID+"/messages", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage posts a message. The created message itself arrives on
// the event stream, not in the REST reply.
func (c *Client) SendMessage(ctx context.Context, chatID, userID string, kind domain.MessageKind, content string) error {
	payload := map[string]string{"user_id": userID, "kind": string(kind), "content": content}
	var ack struct {
		Status string `json:"status"`
	}
	return c.do(ctx, http.MethodPost, "/chats/"+chatID+"/messages", payload, &ack)
}

func (c *Client) UpdatePresence(ctx context.Context, chatID, userID string, status domain.PresenceStatus) (*PresenceAck, error) {
	payload := map[string]string{"user_id": userID, "status": string(status)}
	var ack PresenceAck
	if err := c.do(ctx, http.MethodPost, "/chats/"+chatID+"/presence", payload, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (c *Client) GetPresence(ctx context.Context, chatID string) ([]domain.ParticipantPresence, error) {
	var presences []domain.ParticipantPresence
	if err := c.do(ctx, http.MethodGet, "/chats/"+chatID+"/presence", nil, &presences); err != nil {
		return nil, err
	}
	return presences, nil
}

func (c *Client) MarkRead(ctx context.Context, chatID, userID string) (*ReadReceipt, error) {
	payload := map[string]string{"user_id": userID}
	var receipt ReadReceipt
	if err := c.do(ctx, http.MethodPost, "/chats/"+chatID+"/read", payload, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) GetReadReceipts(ctx context.Context, chatID string) (map[string]*uuid.UUID, error) {
	var body struct {
		ChatID       string                `json:"chat_id"`
		ReadReceipts map[string]*uuid.UUID `json:"read_receipts"`
	}
	if err := c.do(ctx, http.MethodGet, "/chats/"+chatID+"/read", nil, &body); err != nil {
		return nil, err
	}
	return body.ReadReceipts, nil
}

// EventStream is one live websocket subscription.
type EventStream struct {
	conn *websocket.Conn
}

// StreamEvents subscribes to chatID's event stream. The context bounds
// the handshake only; close the stream to stop receiving.
func (c *Client) StreamEvents(ctx context.Context, chatID string) (*EventStream, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws/" + chatID
	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, decodeError(resp)
		}
		return nil, err
	}
	return &EventStream{conn: conn}, nil
}

// Next blocks until the server pushes the next event frame.
func (s *EventStream) Next() (event.RawEnvelope, error) {
	var env event.RawEnvelope
	_, frame, err := s.conn.ReadMessage()
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return env, fmt.Errorf("malformed frame: %w", err)
	}
	return env, nil
}

// NextWithin is Next bounded by a read deadline.
func (s *EventStream) NextWithin(d time.Duration) (event.RawEnvelope, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		return event.RawEnvelope{}, err
	}
	return s.Next()
}

func (s *EventStream) Close() error {
	return s.conn.Close()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError rebuilds a taxonomy error from the wire so callers keep
// matching with errors.IsNotFound and friends across the network.
func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		body.Error = fmt.Sprintf("server answered %s", resp.Status)
	}
	return errors.FromHTTPStatus(resp.StatusCode, body.Error)
}
