package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muchai14/code-collab-hub/internal/domain"
	"github.com/Muchai14/code-collab-hub/internal/infra/persistence/memory"
	"github.com/Muchai14/code-collab-hub/internal/service"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewRoomHandler(service.NewRoomService(memory.NewRoomStore()))

	router := gin.New()
	rooms := router.Group("/api/rooms")
	{
		rooms.POST("", handler.CreateRoom)
		rooms.POST("/:roomId/join", handler.JoinRoom)
		rooms.GET("/:roomId", handler.GetRoom)
		rooms.DELETE("/:roomId/participants/:userId", handler.LeaveRoom)
		rooms.PUT("/:roomId/code", handler.UpdateCode)
		rooms.PUT("/:roomId/language", handler.UpdateLanguage)
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createRoom(t *testing.T, router *gin.Engine, hostName, language string) RoomResponse {
	t.Helper()
	body := gin.H{"hostName": hostName}
	if language != "" {
		body["language"] = language
	}
	w := doJSON(t, router, http.MethodPost, "/api/rooms", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp RoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateRoomEndpoint(t *testing.T) {
	router := setupRouter()
	resp := createRoom(t, router, "Alice", "javascript")

	assert.Len(t, resp.Room.ID, 8)
	assert.Equal(t, domain.LanguageJavaScript, resp.Room.Language)
	assert.Equal(t, domain.LanguageJavaScript.Boilerplate(), resp.Room.Code)
	require.Len(t, resp.Room.Participants, 1)
	assert.True(t, resp.User.IsHost)
	assert.Equal(t, resp.User.ID, resp.Room.HostID)
}

func TestCreateRoomMissingHostName(t *testing.T) {
	router := setupRouter()
	w := doJSON(t, router, http.MethodPost, "/api/rooms", gin.H{"language": "python"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRoomInvalidLanguage(t *testing.T) {
	router := setupRouter()
	w := doJSON(t, router, http.MethodPost, "/api/rooms", gin.H{"hostName": "Alice", "language": "cobol"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinRoomEndpoint(t *testing.T) {
	router := setupRouter()
	created := createRoom(t, router, "Alice", "javascript")

	w := doJSON(t, router, http.MethodPost, "/api/rooms/"+created.Room.ID+"/join", gin.H{"userName": "Bob"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp RoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Room.Participants, 2)
	assert.False(t, resp.User.IsHost)
}

func TestJoinUnknownRoom(t *testing.T) {
	router := setupRouter()
	w := doJSON(t, router, http.MethodPost, "/api/rooms/missing1/join", gin.H{"userName": "Bob"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRoomEndpoint(t *testing.T) {
	router := setupRouter()
	created := createRoom(t, router, "Alice", "python")

	w := doJSON(t, router, http.MethodGet, "/api/rooms/"+created.Room.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var room domain.Room
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &room))
	assert.Equal(t, domain.LanguagePython, room.Language)
}

func TestGetUnknownRoom(t *testing.T) {
	router := setupRouter()
	w := doJSON(t, router, http.MethodGet, "/api/rooms/missing1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeaveRoomEndpoint(t *testing.T) {
	router := setupRouter()
	created := createRoom(t, router, "Alice", "javascript")

	path := fmt.Sprintf("/api/rooms/%s/participants/%s", created.Room.ID, created.User.ID)
	w := doJSON(t, router, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Last participant left, so the room is gone.
	w = doJSON(t, router, http.MethodGet, "/api/rooms/"+created.Room.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateCodeEndpoint(t *testing.T) {
	router := setupRouter()
	created := createRoom(t, router, "Alice", "javascript")

	w := doJSON(t, router, http.MethodPut, "/api/rooms/"+created.Room.ID+"/code", gin.H{"code": "x = 1"})
	require.Equal(t, http.StatusOK, w.Code)

	var room domain.Room
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &room))
	assert.Equal(t, "x = 1", room.Code)
}

func TestUpdateLanguageEndpoint(t *testing.T) {
	router := setupRouter()
	created := createRoom(t, router, "Alice", "javascript")

	w := doJSON(t, router, http.MethodPut, "/api/rooms/"+created.Room.ID+"/language", gin.H{"language": "python"})
	require.Equal(t, http.StatusOK, w.Code)

	var room domain.Room
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &room))
	assert.Equal(t, domain.LanguagePython, room.Language)
	assert.Equal(t, domain.LanguagePython.Boilerplate(), room.Code)
}

func TestUpdateLanguageInvalidBody(t *testing.T) {
	router := setupRouter()
	created := createRoom(t, router, "Alice", "javascript")

	w := doJSON(t, router, http.MethodPut, "/api/rooms/"+created.Room.ID+"/language", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
