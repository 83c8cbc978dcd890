package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vigil/internal/notification"
	"vigil/internal/notification/handler/mocks"
	"vigil/internal/notification/registry"
	"vigil/internal/platform/middleware"
	"vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/notification-mocks.go -package=mocks Service
type NotificationHandlerSuite struct {
	suite.Suite
}

func TestNotificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(NotificationHandlerSuite))
}

func newTestHandler(t *testing.T) (*Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(mockService, logger, nil, nil), mockService
}

func authenticated(req *http.Request, username string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUsername, username)
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func (s *NotificationHandlerSuite) TestHandleList() {
	handler, mockService := newTestHandler(s.T())
	createdAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	id := domain.NewNotificationID()
	mockService.EXPECT().List(gomock.Any(), "alice").Return([]*notification.Notification{{
		ID:        id,
		Recipient: "alice",
		Type:      notification.TypeStateChanged,
		Message:   "Kim's status changed from POSITIVE to DANGER (reason: missed check-in)",
		CreatedAt: createdAt,
	}}, nil)

	req := authenticated(httptest.NewRequest(http.MethodGet, "/api/notifications", nil), "alice")
	w := httptest.NewRecorder()
	handler.handleList(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp []map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(s.T(), resp, 1)
	assert.Equal(s.T(), id.String(), resp[0]["id"])
	assert.Equal(s.T(), "STATE_CHANGED", resp[0]["type"])
	assert.Equal(s.T(), false, resp[0]["read"])
}

func (s *NotificationHandlerSuite) TestHandleListEmpty() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().List(gomock.Any(), "alice").Return(nil, nil)

	req := authenticated(httptest.NewRequest(http.MethodGet, "/api/notifications", nil), "alice")
	w := httptest.NewRecorder()
	handler.handleList(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.JSONEq(s.T(), "[]", w.Body.String())
}

func (s *NotificationHandlerSuite) TestHandleMarkRead() {
	handler, mockService := newTestHandler(s.T())
	id := domain.NewNotificationID()
	mockService.EXPECT().MarkRead(gomock.Any(), id).Return(nil)

	req := authenticated(httptest.NewRequest(http.MethodPost, "/api/notifications/"+id.String()+"/read", nil), "alice")
	req = withURLParam(req, "id", id.String())
	w := httptest.NewRecorder()
	handler.handleMarkRead(w, req)

	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func (s *NotificationHandlerSuite) TestHandleMarkReadUnknownID() {
	handler, mockService := newTestHandler(s.T())
	id := domain.NewNotificationID()
	mockService.EXPECT().MarkRead(gomock.Any(), id).
		Return(dErrors.New(dErrors.CodeNotFound, "notification not found"))

	req := authenticated(httptest.NewRequest(http.MethodPost, "/api/notifications/"+id.String()+"/read", nil), "alice")
	req = withURLParam(req, "id", id.String())
	w := httptest.NewRecorder()
	handler.handleMarkRead(w, req)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *NotificationHandlerSuite) TestHandleMarkReadBadID() {
	handler, _ := newTestHandler(s.T())

	req := authenticated(httptest.NewRequest(http.MethodPost, "/api/notifications/not-a-uuid/read", nil), "alice")
	req = withURLParam(req, "id", "not-a-uuid")
	w := httptest.NewRecorder()
	handler.handleMarkRead(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *NotificationHandlerSuite) TestHandleMarkAllRead() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().MarkAllRead(gomock.Any(), "alice").Return(nil)

	req := authenticated(httptest.NewRequest(http.MethodPut, "/api/notifications/read-all", nil), "alice")
	w := httptest.NewRecorder()
	handler.handleMarkAllRead(w, req)

	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func (s *NotificationHandlerSuite) TestHandleDeleteAll() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().DeleteAll(gomock.Any(), "alice").Return(3, nil)

	req := authenticated(httptest.NewRequest(http.MethodDelete, "/api/notifications", nil), "alice")
	w := httptest.NewRecorder()
	handler.handleDeleteAll(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.JSONEq(s.T(), `{"deleted":3}`, w.Body.String())
}

func (s *NotificationHandlerSuite) TestHandleSubscribeStreams() {
	handler, mockService := newTestHandler(s.T())
	reg := registry.New(time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	conn := reg.Register("alice")
	mockService.EXPECT().Subscribe("alice").Return(conn)
	mockService.EXPECT().Drop(conn)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/notifications/subscribe", nil).WithContext(ctx)
	req = authenticated(req, "alice")
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.handleSubscribe(w, req)
		close(done)
	}()

	require.Eventually(s.T(), func() bool {
		return reg.Send("alice", registry.Message{Event: "notification", Data: []byte(`{"type":"STATE_CHANGED"}`)})
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.Equal(s.T(), "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(s.T(), body, "event: connect")
	assert.Contains(s.T(), body, `data: {"type":"STATE_CHANGED"}`)
}

func (s *NotificationHandlerSuite) TestHandleDeleteAllFailure() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().DeleteAll(gomock.Any(), "alice").
		Return(0, dErrors.Wrap(dErrors.CodeInternal, "delete notifications", errors.New("db down")))

	req := authenticated(httptest.NewRequest(http.MethodDelete, "/api/notifications", nil), "alice")
	w := httptest.NewRecorder()
	handler.handleDeleteAll(w, req)

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
}
