package types

// SubscriptionStatus is the state of a subscription in its lifecycle.
// EXPIRED and CANCELLED are terminal; no transition ever leaves them.
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() bool {
	switch s {
	case SubscriptionStatusPending,
		SubscriptionStatusTrial,
		SubscriptionStatusActive,
		SubscriptionStatusExpired,
		SubscriptionStatusCancelled:
		return true
	}
	return false
}

// IsLive reports whether the status counts against the one-live-subscription
// invariant: at most one PENDING/TRIAL/ACTIVE record per profile.
func (s SubscriptionStatus) IsLive() bool {
	switch s {
	case SubscriptionStatusPending, SubscriptionStatusTrial, SubscriptionStatusActive:
		return true
	}
	return false
}

func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusExpired || s == SubscriptionStatusCancelled
}

// CanTransitionTo validates a state machine edge
func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case SubscriptionStatusPending:
		return target == SubscriptionStatusActive || target == SubscriptionStatusCancelled
	case SubscriptionStatusTrial:
		return target == SubscriptionStatusActive ||
			target == SubscriptionStatusExpired ||
			target == SubscriptionStatusCancelled
	case SubscriptionStatusActive:
		return target == SubscriptionStatusActive ||
			target == SubscriptionStatusExpired ||
			target == SubscriptionStatusCancelled
	}
	return false
}

// HistoryAction tags an append-only subscription history entry
type HistoryAction string

const (
	HistoryActionCreated            HistoryAction = "created"
	HistoryActionTrialStarted       HistoryAction = "trial_started"
	HistoryActionActivated          HistoryAction = "activated"
	HistoryActionRenewed            HistoryAction = "renewed"
	HistoryActionPlanChanged        HistoryAction = "plan_changed"
	HistoryActionCancelScheduled    HistoryAction = "cancel_scheduled"
	HistoryActionCancelled          HistoryAction = "cancelled"
	HistoryActionExpired            HistoryAction = "expired"
	HistoryActionAutoRenewalFailed  HistoryAction = "auto_renewal_failed"
	HistoryActionExpirationReminder HistoryAction = "expiration_reminder"
	HistoryActionAutoRenewEnabled   HistoryAction = "auto_renew_enabled"
	HistoryActionAutoRenewDisabled  HistoryAction = "auto_renew_disabled"
)

func (a HistoryAction) String() string {
	return string(a)
}
