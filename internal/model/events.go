package model

import "time"

// Lifecycle event topics published after state changes.
const (
	TopicProfileCreated             = "profile.created"
	TopicProfileUpdated             = "profile.updated"
	TopicProfileDeleted             = "profile.deleted"
	TopicProfileSubscriptionChanged = "profile.subscription_changed"
	TopicMessageStatusChanged       = "demo_message.status_changed"
)

type ProfileEvent struct {
	ClerkUserID        string             `json:"clerk_user_id"`
	ProfileID          string             `json:"profile_id,omitempty"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status,omitempty"`
	SubscriptionPlan   SubscriptionPlan   `json:"subscription_plan,omitempty"`
	OccurredAt         time.Time          `json:"occurred_at"`
}

type MessageEvent struct {
	MessageID  string        `json:"message_id"`
	UserID     string        `json:"user_id"`
	Status     MessageStatus `json:"status"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
