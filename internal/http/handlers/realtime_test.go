package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
	"github.com/yungbote/studyforge-backend/internal/realtime"
)

func TestRealtimeStreamDeliversUserEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := realtime.NewHub(logger.NewNop())
	r := gin.New()
	r.GET("/api/events", NewRealtimeHandler(logger.NewNop(), hub).Stream)

	userID := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events?user_id="+userID.String(), nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(rec, req)
		close(done)
	}()

	// Wait for the subscription, then publish and disconnect.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !hubHasSubscriber(hub, userID) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Broadcast(realtime.Message{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.EventStudyGenerationState,
		Data:    map[string]any{"state": "planning"},
	})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "event: StudyGenerationState"), body)
	assert.True(t, strings.Contains(body, `"state":"planning"`), body)
}

func hubHasSubscriber(hub *realtime.Hub, userID uuid.UUID) bool {
	return hub.Subscribers(realtime.UserChannel(userID)) > 0
}

func TestRealtimeStreamRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/events", NewRealtimeHandler(logger.NewNop(), realtime.NewHub(logger.NewNop())).Stream)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
