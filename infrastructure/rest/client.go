// Package rest implements the remote boundary collaborators over HTTP/JSON:
// the identity/room directory, the message store polled by the scheduler,
// and the quantum teleportation collaborator.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"entangleme/domain"
	"entangleme/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Client talks to the EntangleMe backend. It satisfies contract.RoomDirectory,
// contract.MessageStore and contract.Teleporter.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type wireUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

type wireMessage struct {
	ID                  uuid.UUID       `json:"id"`
	Sender              string          `json:"sender"`
	Bit                 int             `json:"bit"`
	Timestamp           time.Time       `json:"timestamp"`
	TeleportationResult json.RawMessage `json:"teleportation_result,omitempty"`
}

// CreateOrFetchUser registers a username. The backend answers 409 when the
// name is already registered; the client then lists users and returns the
// existing entity, so a retried registration is indistinguishable from a
// fresh one.
func (c *Client) CreateOrFetchUser(ctx context.Context, username string) (domain.Participant, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/api/users",
		map[string]string{"username": username})
	if err != nil {
		return domain.Participant{}, errors.NewTransportError("user registration", err)
	}
	switch status {
	case http.StatusOK, http.StatusCreated:
		var user wireUser
		if err = json.Unmarshal(body, &user); err != nil {
			return domain.Participant{}, errors.NewTransportError("user registration", err)
		}
		return domain.Participant{ID: user.ID, Username: user.Username}, nil
	case http.StatusConflict:
		return c.fetchUser(ctx, username)
	default:
		return domain.Participant{}, errors.NewTransportError("user registration",
			fmt.Errorf("unexpected status %d", status))
	}
}

func (c *Client) fetchUser(ctx context.Context, username string) (domain.Participant, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/users", nil)
	if err != nil {
		return domain.Participant{}, errors.NewTransportError("user lookup", err)
	}
	if status != http.StatusOK {
		return domain.Participant{}, errors.NewTransportError("user lookup",
			fmt.Errorf("unexpected status %d", status))
	}
	var payload struct {
		Users []wireUser `json:"users"`
	}
	if err = json.Unmarshal(body, &payload); err != nil {
		return domain.Participant{}, errors.NewTransportError("user lookup", err)
	}
	for _, u := range payload.Users {
		if u.Username == username {
			return domain.Participant{ID: u.ID, Username: u.Username}, nil
		}
	}
	// Registered name that a different participant owns.
	return domain.Participant{}, errors.ErrNameConflict
}

// CreateOrJoinRoom joins the fixed room, creating it on first join. A 409
// means both slots are taken by other participants.
func (c *Client) CreateOrJoinRoom(ctx context.Context, roomName string, userID uuid.UUID) (string, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/api/rooms/join",
		map[string]string{"room": roomName, "user_id": userID.String()})
	if err != nil {
		return "", errors.NewTransportError("room join", err)
	}
	switch status {
	case http.StatusOK, http.StatusCreated:
		var payload struct {
			RoomID string `json:"room_id"`
		}
		if err = json.Unmarshal(body, &payload); err != nil {
			return "", errors.NewTransportError("room join", err)
		}
		return payload.RoomID, nil
	case http.StatusConflict:
		return "", errors.ErrRoomFull
	default:
		return "", errors.NewTransportError("room join", fmt.Errorf("unexpected status %d", status))
	}
}

func (c *Client) ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/rooms/"+roomID+"/participants", nil)
	if err != nil {
		return nil, errors.NewTransportError("participant listing", err)
	}
	if status != http.StatusOK {
		return nil, errors.NewTransportError("participant listing",
			fmt.Errorf("unexpected status %d", status))
	}
	var payload struct {
		Participants []wireUser `json:"participants"`
	}
	if err = json.Unmarshal(body, &payload); err != nil {
		return nil, errors.NewTransportError("participant listing", err)
	}
	return lo.Map(payload.Participants, func(u wireUser, _ int) domain.Participant {
		return domain.Participant{ID: u.ID, Username: u.Username}
	}), nil
}

// RemoveParticipant deregisters a user from the room. A 404 counts as
// success: the participant is gone either way.
func (c *Client) RemoveParticipant(ctx context.Context, roomID string, userID uuid.UUID) error {
	status, _, err := c.do(ctx, http.MethodDelete,
		"/api/rooms/"+roomID+"/participants/"+userID.String(), nil)
	if err != nil {
		return errors.NewTransportError("participant removal", err)
	}
	if status != http.StatusOK && status != http.StatusNoContent && status != http.StatusNotFound {
		return errors.NewTransportError("participant removal", fmt.Errorf("unexpected status %d", status))
	}
	return nil
}

func (c *Client) ListMessages(ctx context.Context, roomID string) ([]domain.Message, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/rooms/"+roomID+"/messages", nil)
	if err != nil {
		return nil, errors.NewTransportError("message poll", err)
	}
	if status != http.StatusOK {
		return nil, errors.NewTransportError("message poll",
			fmt.Errorf("unexpected status %d", status))
	}
	var payload struct {
		Messages []wireMessage `json:"messages"`
	}
	if err = json.Unmarshal(body, &payload); err != nil {
		return nil, errors.NewTransportError("message poll", err)
	}
	return lo.Map(payload.Messages, func(m wireMessage, _ int) domain.Message {
		return domain.Message{
			ID:                  m.ID,
			Sender:              m.Sender,
			Bit:                 m.Bit,
			At:                  m.Timestamp,
			TeleportationResult: m.TeleportationResult,
		}
	}), nil
}

func (c *Client) PostMessage(ctx context.Context, roomID string, message domain.Message) error {
	status, _, err := c.do(ctx, http.MethodPost, "/api/rooms/"+roomID+"/messages", wireMessage{
		ID:                  message.ID,
		Sender:              message.Sender,
		Bit:                 message.Bit,
		Timestamp:           message.At,
		TeleportationResult: message.TeleportationResult,
	})
	if err != nil {
		return errors.NewTransportError("message post", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return errors.NewTransportError("message post", fmt.Errorf("unexpected status %d", status))
	}
	return nil
}

// Teleport runs the quantum teleportation for one bit between the two
// participants. The response body is returned verbatim: its shape belongs
// to the visualization consumer, not to this layer.
func (c *Client) Teleport(ctx context.Context, roomID string, senderID, receiverID uuid.UUID, bit int) (domain.TeleportationResult, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/api/quantum/teleport", map[string]any{
		"room_id":     roomID,
		"sender_id":   senderID.String(),
		"receiver_id": receiverID.String(),
		"bit":         bit,
	})
	if err != nil {
		return nil, errors.NewTransportError("teleportation", err)
	}
	if status != http.StatusOK {
		return nil, errors.NewTransportError("teleportation",
			fmt.Errorf("unexpected status %d", status))
	}
	return domain.TeleportationResult(body), nil
}

// Simulate runs a standalone teleportation with no room attached.
func (c *Client) Simulate(ctx context.Context, bit int) (domain.TeleportationResult, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/api/quantum/simulate",
		map[string]int{"bit": bit})
	if err != nil {
		return nil, errors.NewTransportError("simulation", err)
	}
	if status != http.StatusOK {
		return nil, errors.NewTransportError("simulation",
			fmt.Errorf("unexpected status %d", status))
	}
	return domain.TeleportationResult(body), nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
