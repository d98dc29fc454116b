package testutil

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/spahub/billing/internal/domain/notification"
	"github.com/spahub/billing/internal/domain/payment"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
)

// FakeDBClient satisfies postgres.IClient for service tests backed by
// in-memory repositories. Transactions run the callback directly and advisory
// locks always succeed.
type FakeDBClient struct{}

func NewFakeDBClient() *FakeDBClient {
	return &FakeDBClient{}
}

func (c *FakeDBClient) Querier(ctx context.Context) *gorm.DB {
	return nil
}

func (c *FakeDBClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *FakeDBClient) LockKey(ctx context.Context, req types.LockRequest) error {
	return nil
}

func (c *FakeDBClient) TryLockKey(ctx context.Context, key string) (bool, error) {
	return true, nil
}

// ChargeRecord captures one call to the fake gateway
type ChargeRecord struct {
	SubscriptionID string
	Amount         decimal.Decimal
	Method         string
}

// FakePaymentGateway records charges and returns a scripted outcome
type FakePaymentGateway struct {
	mu sync.Mutex

	// Decline makes charges come back unsuccessful; Err makes the call fail
	Decline bool
	Err     error

	Charges []ChargeRecord
}

func NewFakePaymentGateway() *FakePaymentGateway {
	return &FakePaymentGateway{}
}

func (g *FakePaymentGateway) ChargeSavedMethod(ctx context.Context, subscriptionID string, amount decimal.Decimal, method string) (*payment.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Charges = append(g.Charges, ChargeRecord{
		SubscriptionID: subscriptionID,
		Amount:         amount,
		Method:         method,
	})

	if g.Err != nil {
		return nil, ierr.WithError(g.Err).Mark(ierr.ErrPaymentFailed)
	}
	if g.Decline {
		return &payment.ChargeResult{Success: false}, nil
	}
	return &payment.ChargeResult{
		Success:       true,
		TransactionID: types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
	}, nil
}

func (g *FakePaymentGateway) ChargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Charges)
}

// SentNotification captures one call to the recording notifier
type SentNotification struct {
	ProfileID string
	Kind      notification.Kind
	Payload   map[string]interface{}
}

// RecordingNotifier captures notifications synchronously for assertions
type RecordingNotifier struct {
	mu   sync.Mutex
	Sent []SentNotification
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Notify(ctx context.Context, profileID string, kind notification.Kind, payload map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, SentNotification{
		ProfileID: profileID,
		Kind:      kind,
		Payload:   payload,
	})
}

// CountByKind returns how many notifications of a kind were sent
func (n *RecordingNotifier) CountByKind(kind notification.Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, sent := range n.Sent {
		if sent.Kind == kind {
			count++
		}
	}
	return count
}
