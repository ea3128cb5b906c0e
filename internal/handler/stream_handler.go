package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/classmate-app/homework-api/internal/live"
	"github.com/classmate-app/homework-api/internal/service"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
	"github.com/classmate-app/homework-api/pkg/response"
)

const streamHeartbeat = 25 * time.Second

// snapshotFunc builds the current state of a streamed resource.
type snapshotFunc func(ctx context.Context) ([]byte, error)

// StreamHandler serves live snapshot streams over SSE. The current
// snapshot is delivered immediately on connect, then every change
// delivers a full snapshot of the watched resource, so clients recover
// from any missed event by simply applying the next one.
type StreamHandler struct {
	hub           *live.Hub
	classes       *service.ClassService
	homework      *service.HomeworkService
	proofs        *service.ProofService
	notifications *service.NotificationService
	leaderboard   *service.LeaderboardService
}

// NewStreamHandler creates a new handler.
func NewStreamHandler(hub *live.Hub, classes *service.ClassService, homework *service.HomeworkService, proofs *service.ProofService, notifications *service.NotificationService, leaderboard *service.LeaderboardService) *StreamHandler {
	return &StreamHandler{
		hub:           hub,
		classes:       classes,
		homework:      homework,
		proofs:        proofs,
		notifications: notifications,
		leaderboard:   leaderboard,
	}
}

// ClassHomework godoc
// @Summary Homework stream
// @Description Stream homework snapshots of a class over SSE
// @Tags Streams
// @Produce text/event-stream
// @Param id path string true "Class ID"
// @Success 200 {string} string "event stream"
// @Security BearerAuth
// @Router /classes/{id}/homework/stream [get]
func (h *StreamHandler) ClassHomework(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classID := c.Param("id")
	if err := h.classes.RequireMember(c.Request.Context(), classID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	h.serve(c, live.HomeworkTopic(classID), func(ctx context.Context) ([]byte, error) {
		return h.homework.Snapshot(ctx, classID)
	})
}

// ClassLeaderboard godoc
// @Summary Leaderboard stream
// @Description Stream ranking snapshots of a class over SSE
// @Tags Streams
// @Produce text/event-stream
// @Param id path string true "Class ID"
// @Success 200 {string} string "event stream"
// @Security BearerAuth
// @Router /classes/{id}/leaderboard/stream [get]
func (h *StreamHandler) ClassLeaderboard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classID := c.Param("id")
	if err := h.classes.RequireMember(c.Request.Context(), classID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	h.serve(c, live.LeaderboardTopic(classID), func(ctx context.Context) ([]byte, error) {
		return h.leaderboard.Snapshot(ctx, classID)
	})
}

// HomeworkProofs godoc
// @Summary Proof stream
// @Description Stream proof snapshots of one assignment over SSE
// @Tags Streams
// @Produce text/event-stream
// @Param id path string true "Homework ID"
// @Success 200 {string} string "event stream"
// @Security BearerAuth
// @Router /homework/{id}/proofs/stream [get]
func (h *StreamHandler) HomeworkProofs(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	homeworkID := c.Param("id")
	if _, err := h.homework.Get(c.Request.Context(), homeworkID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	h.serve(c, live.ProofTopic(homeworkID), func(ctx context.Context) ([]byte, error) {
		return h.proofs.Snapshot(ctx, homeworkID)
	})
}

// Notifications godoc
// @Summary Notification stream
// @Description Stream the caller's notification feed over SSE
// @Tags Streams
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Security BearerAuth
// @Router /notifications/stream [get]
func (h *StreamHandler) Notifications(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	userID := claims.UserID
	h.serve(c, live.NotificationTopic(userID), func(ctx context.Context) ([]byte, error) {
		return h.notifications.Snapshot(ctx, userID)
	})
}

func (h *StreamHandler) serve(c *gin.Context, topic string, initial snapshotFunc) {
	clientID := uuid.NewString()
	events := h.hub.Subscribe(topic, clientID)
	defer h.hub.Unsubscribe(topic, clientID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	// Subscription is live at this point, so a change racing the
	// initial snapshot still reaches the client as a later event.
	if initial != nil {
		if data, err := initial(c.Request.Context()); err == nil {
			fmt.Fprintf(c.Writer, "event: snapshot\ndata: %s\n\n", data)
		}
	}
	c.Writer.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case payload, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: snapshot\ndata: %s\n\n", payload)
			c.Writer.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			c.Writer.Flush()
		}
	}
}
