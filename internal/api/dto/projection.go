package dto

// ProjectionSyncResponse reports what the reconciliation job touched
type ProjectionSyncResponse struct {
	Asserted int `json:"asserted"`
	Cleared  int `json:"cleared"`
	Failed   int `json:"failed"`
}

// MismatchKind classifies one projection drift finding
type MismatchKind string

const (
	MismatchFlaggedWithoutSubscription MismatchKind = "flagged_without_subscription"
	MismatchEntitledButNotFlagged      MismatchKind = "entitled_but_not_flagged"
	MismatchPremiumWindowElapsed       MismatchKind = "premium_window_elapsed"
	MismatchPlanOutOfSync              MismatchKind = "plan_out_of_sync"
)

// ProjectionMismatch is one detected inconsistency between a profile's premium
// projection and its subscription records
type ProjectionMismatch struct {
	ProfileID string       `json:"profile_id"`
	Kind      MismatchKind `json:"kind"`
	Detail    string       `json:"detail"`
}

type ValidateProjectionResponse struct {
	ProfileID  string               `json:"profile_id"`
	Consistent bool                 `json:"consistent"`
	Mismatches []ProjectionMismatch `json:"mismatches"`
}
