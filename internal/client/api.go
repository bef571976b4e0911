package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Muchai14/code-collab-hub/internal/domain"
)

var (
	// ErrRoomNotFound is returned when the server does not know the room id.
	ErrRoomNotFound = errors.New("client: room not found")
	// ErrConnectionFailed is returned when the relay channel could not be
	// established.
	ErrConnectionFailed = errors.New("client: relay connection failed")
	// ErrNotJoined is returned for operations that require a joined room.
	ErrNotJoined = errors.New("client: not joined to a room")
)

// RoomResponse is the create/join response body.
type RoomResponse struct {
	Room *domain.Room        `json:"room"`
	User *domain.Participant `json:"user"`
}

// API is the request/response half of the client: plain JSON over HTTP
// against the room endpoints.
type API struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPI creates an API client rooted at baseURL (e.g. "http://host:8080").
func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &API{baseURL: baseURL, httpClient: httpClient}
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrRoomNotFound
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("client: %s %s: unexpected status %d: %s", method, path, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("client: decode response: %w", err)
		}
	}
	return nil
}

// CreateRoom calls POST /api/rooms.
func (a *API) CreateRoom(ctx context.Context, hostName string, language domain.Language) (*RoomResponse, error) {
	body := map[string]interface{}{"hostName": hostName}
	if language != "" {
		body["language"] = language
	}
	var out RoomResponse
	if err := a.do(ctx, http.MethodPost, "/api/rooms", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JoinRoom calls POST /api/rooms/{roomId}/join.
func (a *API) JoinRoom(ctx context.Context, roomID, userName string) (*RoomResponse, error) {
	var out RoomResponse
	err := a.do(ctx, http.MethodPost, "/api/rooms/"+roomID+"/join",
		map[string]string{"userName": userName}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRoom calls GET /api/rooms/{roomId}. A missing room returns
// (nil, nil): absence is an answer here, not an error.
func (a *API) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var out domain.Room
	err := a.do(ctx, http.MethodGet, "/api/rooms/"+roomID, nil, &out)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// LeaveRoom calls DELETE /api/rooms/{roomId}/participants/{userId}.
func (a *API) LeaveRoom(ctx context.Context, roomID, userID string) error {
	return a.do(ctx, http.MethodDelete, "/api/rooms/"+roomID+"/participants/"+userID, nil, nil)
}

// UpdateCode calls PUT /api/rooms/{roomId}/code.
func (a *API) UpdateCode(ctx context.Context, roomID, code string) (*domain.Room, error) {
	var out domain.Room
	err := a.do(ctx, http.MethodPut, "/api/rooms/"+roomID+"/code",
		map[string]string{"code": code}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateLanguage calls PUT /api/rooms/{roomId}/language and returns the
// room with its freshly reset boilerplate buffer.
func (a *API) UpdateLanguage(ctx context.Context, roomID string, language domain.Language) (*domain.Room, error) {
	var out domain.Room
	err := a.do(ctx, http.MethodPut, "/api/rooms/"+roomID+"/language",
		map[string]domain.Language{"language": language}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
