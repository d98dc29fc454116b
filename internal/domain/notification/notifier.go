package notification

import "context"

// Kind tags an outbound notification
type Kind string

const (
	KindExpirationReminder Kind = "expiration_reminder"
	KindAutoRenewalFailed  Kind = "auto_renewal_failed"
	KindSubscriptionActive Kind = "subscription_activated"
)

// Notifier is the fire-and-forget notification collaborator. Implementations
// must never block lifecycle operations on delivery; failures are logged and
// absorbed.
type Notifier interface {
	Notify(ctx context.Context, profileID string, kind Kind, payload map[string]interface{})
}
