package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Notification-specific validation errors
var (
	// ErrNotificationUserIDEmpty is returned when a notification's recipient is empty.
	ErrNotificationUserIDEmpty = errors.New("notification user ID cannot be empty")

	// ErrNotificationContentEmpty is returned when a notification has no content.
	ErrNotificationContentEmpty = errors.New("notification content cannot be empty")
)

// NotificationType identifies why a notification was produced.
type NotificationType string

// Possible notification type values
const (
	NotificationTaskAssigned     NotificationType = "task_assigned"
	NotificationTaskUpdated      NotificationType = "task_updated"
	NotificationCommentAdded     NotificationType = "comment_added"
	NotificationDeadlineReminder NotificationType = "deadline_reminder"
)

// IsValid reports whether t is one of the enumerated notification types.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTaskAssigned, NotificationTaskUpdated,
		NotificationCommentAdded, NotificationDeadlineReminder:
		return true
	}
	return false
}

// RelatedKind names the entity kind a notification points back at.
// A tagged variant instead of a loose model-name string, so code that
// branches on it gets compile-time exhaustiveness.
type RelatedKind string

// Possible related entity kinds
const (
	RelatedKindTask    RelatedKind = "Task"
	RelatedKindComment RelatedKind = "TaskComment"
)

// IsValid reports whether k is one of the enumerated kinds.
func (k RelatedKind) IsValid() bool {
	switch k {
	case RelatedKindTask, RelatedKindComment:
		return true
	}
	return false
}

// RelatedRef is a polymorphic reference from a notification to the entity
// it is about. Serialized as {model, id} for wire compatibility.
type RelatedRef struct {
	Kind RelatedKind `json:"model"`
	ID   uuid.UUID   `json:"id"`
}

// Validate checks if the RelatedRef has valid data.
func (r RelatedRef) Validate() error {
	if !r.Kind.IsValid() {
		return ErrInvalidRelatedKind
	}
	if r.ID == uuid.Nil {
		return ErrInvalidID
	}
	return nil
}

// Notification is a persisted message for a single recipient. Notifications
// are created exclusively by queue processors, never synchronously inside
// the request path.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Type      NotificationType `json:"type"`
	Content   string           `json:"content"`
	RelatedTo RelatedRef       `json:"related_to"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewNotification creates a new unread Notification for the given recipient.
// Returns an error if validation fails.
func NewNotification(
	userID uuid.UUID,
	notifType NotificationType,
	content string,
	relatedTo RelatedRef,
) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Content:   content,
		RelatedTo: relatedTo,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.UserID == uuid.Nil {
		return ErrNotificationUserIDEmpty
	}
	if !n.Type.IsValid() {
		return ErrInvalidNotificationType
	}
	if n.Content == "" {
		return ErrNotificationContentEmpty
	}
	return n.RelatedTo.Validate()
}
