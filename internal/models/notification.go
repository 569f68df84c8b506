package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType categorizes a notification payload.
type NotificationType string

const (
	NotifyPendingCollab  NotificationType = "PENDING_COLLAB"
	NotifyAdminBroadcast NotificationType = "ADMIN_BROADCAST"
)

// NotifyCollabSource points at one side of a collaboration invite.
type NotifyCollabSource struct {
	Server  string  `json:"server"`
	Project *string `json:"project,omitempty"`
}

// NotifyCollabData is the payload of a PENDING_COLLAB notification.
type NotifyCollabData struct {
	ID     uuid.UUID          `json:"id"`
	Code   string             `json:"code"`
	Source NotifyCollabSource `json:"source"`
	Target NotifyCollabSource `json:"target"`
}

// NotifyBroadcastData is the payload of an ADMIN_BROADCAST notification.
type NotifyBroadcastData struct {
	Message string  `json:"message"`
	Link    *string `json:"link,omitempty"`
}

// Notification is a persisted, per-target message. Exactly one of Collab
// or Broadcast is set, matching Type.
type Notification struct {
	ID        uuid.UUID            `json:"id"`
	Target    string               `json:"target"`
	Type      NotificationType     `json:"type"`
	Collab    *NotifyCollabData    `json:"collab,omitempty"`
	Broadcast *NotifyBroadcastData `json:"broadcast,omitempty"`
	Read      bool                 `json:"read"`
	CreatedAt time.Time            `json:"created_at"`
}
