// Package events defines the integration events published by the ledger, their JSON envelope
// and the routing keys they travel under.
//
// The set of events is closed: Decode only produces the kinds declared here and reports
// anything else as apperrors.ErrUnsupported.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/allisson/ledger/internal/errors"
)

// Kind is the event type name carried in the X-Event-Type header.
type Kind string

// Known event kinds.
const (
	KindAccountOpened     Kind = "AccountOpenedEvent"
	KindMoneyCredited     Kind = "MoneyCreditedEvent"
	KindMoneyDebited      Kind = "MoneyDebitedEvent"
	KindTransferCompleted Kind = "TransferCompletedEvent"
	KindInterestAccrued   Kind = "InterestAccruedEvent"
	KindClientBlocked     Kind = "ClientBlockedEvent"
	KindClientUnblocked   Kind = "ClientUnblockedEvent"
)

var routingKeys = map[Kind]string{
	KindAccountOpened:     "account.opened",
	KindMoneyCredited:     "money.credited",
	KindMoneyDebited:      "money.debited",
	KindTransferCompleted: "money.transfer.completed",
	KindInterestAccrued:   "money.interest.accrued",
	KindClientBlocked:     "client.blocked",
	KindClientUnblocked:   "client.unblocked",
}

// ErrUnknownKind is returned for event type names outside the known set.
var ErrUnknownKind = apperrors.Wrap(apperrors.ErrUnsupported, "unknown event type")

// RoutingKey returns the broker routing key for the kind.
func (k Kind) RoutingKey() (string, error) {
	key, ok := routingKeys[k]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
	}
	return key, nil
}

// Event is one of the payload types declared in this package.
type Event interface {
	Kind() Kind
	Identity() Base
	isEvent()
}

// Base holds the identity every payload carries.
type Base struct {
	EventID    uuid.UUID `json:"EventId"`
	OccurredAt time.Time `json:"OccurredAt"`
}

// NewBase mints a fresh event identity at the given instant.
func NewBase(at time.Time) Base {
	return Base{EventID: uuid.Must(uuid.NewV7()), OccurredAt: at.UTC()}
}

// Identity returns the event id and timestamp.
func (b Base) Identity() Base { return b }

func (Base) isEvent() {}

// AccountOpened is emitted when an account is created.
type AccountOpened struct {
	Base
	AccountID uuid.UUID `json:"AccountId"`
	OwnerID   uuid.UUID `json:"OwnerId"`
	Currency  string    `json:"Currency"`
	Type      string    `json:"Type"`
}

// MoneyCredited is emitted when funds flow into an account.
type MoneyCredited struct {
	Base
	AccountID   uuid.UUID       `json:"AccountId"`
	Amount      decimal.Decimal `json:"Amount"`
	Currency    string          `json:"Currency"`
	OperationID uuid.UUID       `json:"OperationId"`
}

// MoneyDebited is emitted when funds flow out of an account.
type MoneyDebited struct {
	Base
	AccountID   uuid.UUID       `json:"AccountId"`
	Amount      decimal.Decimal `json:"Amount"`
	Currency    string          `json:"Currency"`
	OperationID uuid.UUID       `json:"OperationId"`
	Reason      string          `json:"Reason"`
}

// TransferCompleted describes a whole transfer. The ledger publishes the two legs instead,
// but the kind stays routable and decodable for producers sharing this contract.
type TransferCompleted struct {
	Base
	SourceAccountID      uuid.UUID       `json:"SourceAccountId"`
	DestinationAccountID uuid.UUID       `json:"DestinationAccountId"`
	Amount               decimal.Decimal `json:"Amount"`
	Currency             string          `json:"Currency"`
	TransferID           uuid.UUID       `json:"TransferId"`
}

// InterestAccrued is emitted once per account by the interest accrual job.
type InterestAccrued struct {
	Base
	AccountID  uuid.UUID       `json:"AccountId"`
	PeriodFrom time.Time       `json:"PeriodFrom"`
	PeriodTo   time.Time       `json:"PeriodTo"`
	Amount     decimal.Decimal `json:"Amount"`
}

// ClientBlocked asks consumers to freeze every account of a client.
type ClientBlocked struct {
	Base
	ClientID uuid.UUID `json:"ClientId"`
}

// ClientUnblocked lifts a ClientBlocked.
type ClientUnblocked struct {
	Base
	ClientID uuid.UUID `json:"ClientId"`
}

func (AccountOpened) Kind() Kind     { return KindAccountOpened }
func (MoneyCredited) Kind() Kind     { return KindMoneyCredited }
func (MoneyDebited) Kind() Kind      { return KindMoneyDebited }
func (TransferCompleted) Kind() Kind { return KindTransferCompleted }
func (InterestAccrued) Kind() Kind   { return KindInterestAccrued }
func (ClientBlocked) Kind() Kind     { return KindClientBlocked }
func (ClientUnblocked) Kind() Kind   { return KindClientUnblocked }

// Decode turns a raw payload into the variant named by kind.
func Decode(kind string, payload json.RawMessage) (Event, error) {
	var (
		ev  Event
		err error
	)

	switch Kind(kind) {
	case KindAccountOpened:
		ev, err = decodeAs[AccountOpened](payload)
	case KindMoneyCredited:
		ev, err = decodeAs[MoneyCredited](payload)
	case KindMoneyDebited:
		ev, err = decodeAs[MoneyDebited](payload)
	case KindTransferCompleted:
		ev, err = decodeAs[TransferCompleted](payload)
	case KindInterestAccrued:
		ev, err = decodeAs[InterestAccrued](payload)
	case KindClientBlocked:
		ev, err = decodeAs[ClientBlocked](payload)
	case KindClientUnblocked:
		ev, err = decodeAs[ClientUnblocked](payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "malformed %s payload: %v", kind, err)
	}

	return ev, nil
}

func decodeAs[T Event](payload json.RawMessage) (Event, error) {
	var ev T
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}
