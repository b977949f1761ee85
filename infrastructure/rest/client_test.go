package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"entangleme/domain"
	"entangleme/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 2*time.Second, slog.Default())
}

func TestClient_CreateOrFetchUser_Created(t *testing.T) {
	req := require.New(t)
	aliceID := uuid.New()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal(http.MethodPost, r.Method)
		req.Equal("/api/users", r.URL.Path)
		var payload map[string]string
		req.NoError(json.NewDecoder(r.Body).Decode(&payload))
		req.Equal("alice", payload["username"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": aliceID, "username": "alice"})
	}))

	participant, err := client.CreateOrFetchUser(context.Background(), "alice")
	req.NoError(err)
	req.Equal(aliceID, participant.ID)
	req.Equal("alice", participant.Username)
}

func TestClient_CreateOrFetchUser_Conflict_Fetches_Existing(t *testing.T) {
	req := require.New(t)
	aliceID := uuid.New()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusConflict)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]any{
				{"id": uuid.New(), "username": "bob"},
				{"id": aliceID, "username": "alice"},
			},
		})
	})
	client := newTestClient(t, mux)

	// Re-registering an owned name resolves to the existing participant
	participant, err := client.CreateOrFetchUser(context.Background(), "alice")
	req.NoError(err)
	req.Equal(aliceID, participant.ID)
}

func TestClient_CreateOrFetchUser_Conflict_Unknown_Owner(t *testing.T) {
	req := require.New(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusConflict)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"users": []map[string]any{}})
	})
	client := newTestClient(t, mux)

	// Conflict with no matching entry means someone else owns the name
	_, err := client.CreateOrFetchUser(context.Background(), "alice")
	req.ErrorIs(err, errors.ErrNameConflict)
}

func TestClient_CreateOrJoinRoom(t *testing.T) {
	req := require.New(t)
	userID := uuid.New()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/api/rooms/join", r.URL.Path)
		var payload map[string]string
		req.NoError(json.NewDecoder(r.Body).Decode(&payload))
		req.Equal(domain.RoomName, payload["room"])
		req.Equal(userID.String(), payload["user_id"])

		_ = json.NewEncoder(w).Encode(map[string]string{"room_id": "room-1"})
	}))

	roomID, err := client.CreateOrJoinRoom(context.Background(), domain.RoomName, userID)
	req.NoError(err)
	req.Equal("room-1", roomID)
}

func TestClient_CreateOrJoinRoom_Full(t *testing.T) {
	req := require.New(t)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	_, err := client.CreateOrJoinRoom(context.Background(), domain.RoomName, uuid.New())
	req.ErrorIs(err, errors.ErrRoomFull)
}

func TestClient_ListMessages_Preserves_Opaque_Result(t *testing.T) {
	req := require.New(t)
	messageID := uuid.New()
	teleportation := json.RawMessage(`{"steps":[{"gate":"H"},{"gate":"CNOT"}],"fidelity":0.97}`)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/api/rooms/room-1/messages", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{{
				"id":                   messageID,
				"sender":               "alice",
				"bit":                  1,
				"timestamp":            time.Now().UTC(),
				"teleportation_result": teleportation,
			}},
		})
	}))

	messages, err := client.ListMessages(context.Background(), "room-1")
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(messageID, messages[0].ID)
	req.Equal(1, messages[0].Bit)
	// The visualization payload passes through untouched
	req.JSONEq(string(teleportation), string(messages[0].TeleportationResult))
}

func TestClient_RemoveParticipant_Tolerates_Absent(t *testing.T) {
	req := require.New(t)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	// The participant being already gone is still a success
	req.NoError(client.RemoveParticipant(context.Background(), "room-1", uuid.New()))
}

func TestClient_Teleport_Returns_Body_Verbatim(t *testing.T) {
	req := require.New(t)
	body := `{"circuit":"teleport","bit":1,"measurements":[0,1]}`

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/api/quantum/teleport", r.URL.Path)
		var payload map[string]any
		req.NoError(json.NewDecoder(r.Body).Decode(&payload))
		req.Equal(float64(1), payload["bit"])

		fmt.Fprint(w, body)
	}))

	result, err := client.Teleport(context.Background(), "room-1", uuid.New(), uuid.New(), 1)
	req.NoError(err)
	req.Equal(body, string(result))
}

func TestClient_Unexpected_Status_Is_TransportError(t *testing.T) {
	req := require.New(t)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.ListParticipants(context.Background(), "room-1")
	var transportErr *errors.TransportError
	req.ErrorAs(err, &transportErr)
	req.Equal("participant listing", transportErr.Op)
}

func TestClient_Connection_Failure_Is_TransportError(t *testing.T) {
	req := require.New(t)

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	client := NewClient(server.URL, time.Second, slog.Default())

	_, err := client.ListMessages(context.Background(), "room-1")
	var transportErr *errors.TransportError
	req.ErrorAs(err, &transportErr)
}
