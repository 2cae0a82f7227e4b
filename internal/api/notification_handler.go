package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/taskboard/taskboard-api/internal/api/shared"
	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/platform/logger"
	"github.com/taskboard/taskboard-api/internal/service"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationService *service.NotificationService
	logger              *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for NotificationHandler")
	}

	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger.With(slog.String("component", "notification_handler")),
	}
}

// ListNotifications handles GET /notifications requests. The unread_only
// query parameter restricts the page to unread notifications.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	onlyUnread, _ := strconv.ParseBool(r.URL.Query().Get("unread_only"))

	page, err := h.notificationService.GetUserNotifications(r.Context(), userID, parsePagination(r), onlyUnread)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, page)
}

// MarkAsRead handles PATCH /notifications/{id}/read requests.
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	_, notificationID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.notificationService.MarkAsRead(r.Context(), notificationID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkAllAsRead handles PATCH /notifications/read-all requests and
// responds with the number of notifications flagged.
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	count, err := h.notificationService.MarkAllAsRead(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CountResponse{Count: count})
}
