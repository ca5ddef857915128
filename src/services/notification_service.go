package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/livefire2015/ez-society/src/store"
)

// NotificationService queues and reads member notifications.
// Delivery (email, push) is done elsewhere from the queued records.
type NotificationService struct {
	store store.Store
	now   func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(st store.Store) *NotificationService {
	return &NotificationService{store: st, now: time.Now}
}

// Enqueue stores a notification for a user. A nil user is skipped.
func (s *NotificationService) Enqueue(ctx context.Context, societyID, userID uuid.UUID, title, message string, kind models.NotificationType) error {
	return enqueueNotification(ctx, s.store, societyID, userID, title, message, kind, s.now())
}

func enqueueNotification(ctx context.Context, st store.NotificationStore, societyID, userID uuid.UUID, title, message string, kind models.NotificationType, at time.Time) error {
	if userID == uuid.Nil {
		return nil
	}
	notification := &models.Notification{
		ID:        uuid.New(),
		SocietyID: societyID,
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      kind,
		CreatedAt: at,
	}
	if err := st.CreateNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// List returns the actor's notifications in the society, newest first
func (s *NotificationService) List(ctx context.Context, actorID, societyID uuid.UUID) ([]*models.Notification, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return nil, err
	}
	notifications, err := s.store.ListNotifications(ctx, societyID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount returns how many of the actor's notifications are unread
func (s *NotificationService) UnreadCount(ctx context.Context, actorID, societyID uuid.UUID) (int, error) {
	notifications, err := s.List(ctx, actorID, societyID)
	if err != nil {
		return 0, err
	}
	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}
	return unread, nil
}

// MarkRead marks one of the actor's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, actorID, societyID, notificationID uuid.UUID) error {
	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return err
	}
	if err := s.store.MarkNotificationRead(ctx, societyID, actorID, notificationID); err != nil {
		return lookupError("MarkRead", "notification", err)
	}
	return nil
}

// MarkAllRead marks all of the actor's notifications as read and returns how many changed
func (s *NotificationService) MarkAllRead(ctx context.Context, actorID, societyID uuid.UUID) (int, error) {
	if _, err := requireMember(ctx, s.store, actorID, societyID); err != nil {
		return 0, err
	}
	marked, err := s.store.MarkAllNotificationsRead(ctx, societyID, actorID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return marked, nil
}
