package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Muchai14/code-collab-hub/internal/domain"
	"github.com/Muchai14/code-collab-hub/internal/service"
)

// RoomHandler exposes the room REST surface.
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// CreateRoomRequest is the POST /api/rooms body.
type CreateRoomRequest struct {
	HostName string          `json:"hostName" binding:"required"`
	Language domain.Language `json:"language"`
}

// RoomResponse pairs a room with the participant the request minted.
type RoomResponse struct {
	Room *domain.Room        `json:"room"`
	User *domain.Participant `json:"user"`
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateRoom: Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: hostName is required"})
		return
	}

	room, host, err := h.roomService.CreateRoom(c.Request.Context(), req.HostName, req.Language)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLanguage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logrus.WithError(err).Error("Handler.CreateRoom: Failed to create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}
	c.JSON(http.StatusCreated, RoomResponse{Room: room, User: host})
}

// JoinRoomRequest is the POST /api/rooms/:roomId/join body.
type JoinRoomRequest struct {
	UserName string `json:"userName" binding:"required"`
}

// JoinRoom handles POST /api/rooms/:roomId/join.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.JoinRoom: Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: userName is required"})
		return
	}

	room, user, err := h.roomService.JoinRoom(c.Request.Context(), roomID, req.UserName)
	if err != nil {
		h.writeServiceError(c, err, "Handler.JoinRoom", roomID)
		return
	}
	c.JSON(http.StatusOK, RoomResponse{Room: room, User: user})
}

// GetRoom handles GET /api/rooms/:roomId.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		h.writeServiceError(c, err, "Handler.GetRoom", roomID)
		return
	}
	c.JSON(http.StatusOK, room)
}

// LeaveRoom handles DELETE /api/rooms/:roomId/participants/:userId.
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	userID := c.Param("userId")
	if err := h.roomService.LeaveRoom(c.Request.Context(), roomID, userID); err != nil {
		h.writeServiceError(c, err, "Handler.LeaveRoom", roomID)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateCodeRequest is the PUT /api/rooms/:roomId/code body.
type UpdateCodeRequest struct {
	Code string `json:"code"`
}

// UpdateCode handles PUT /api/rooms/:roomId/code. The relay channel is the
// usual mutation path; this endpoint exists for clients that prefer
// request/response.
func (h *RoomHandler) UpdateCode(c *gin.Context) {
	roomID := c.Param("roomId")
	var req UpdateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	room, err := h.roomService.UpdateCode(c.Request.Context(), roomID, req.Code)
	if err != nil {
		h.writeServiceError(c, err, "Handler.UpdateCode", roomID)
		return
	}
	c.JSON(http.StatusOK, room)
}

// UpdateLanguageRequest is the PUT /api/rooms/:roomId/language body.
type UpdateLanguageRequest struct {
	Language domain.Language `json:"language" binding:"required"`
}

// UpdateLanguage handles PUT /api/rooms/:roomId/language.
func (h *RoomHandler) UpdateLanguage(c *gin.Context) {
	roomID := c.Param("roomId")
	var req UpdateLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: language is required"})
		return
	}
	room, err := h.roomService.UpdateLanguage(c.Request.Context(), roomID, req.Language)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLanguage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.writeServiceError(c, err, "Handler.UpdateLanguage", roomID)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) writeServiceError(c *gin.Context, err error, op, roomID string) {
	logCtx := logrus.WithError(err).WithField("room_id", roomID)
	if errors.Is(err, service.ErrRoomNotFound) {
		logCtx.Warnf("%s: Room not found", op)
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	logCtx.Errorf("%s: Internal error", op)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
