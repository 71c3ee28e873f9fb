package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/ledger/internal/errors"
)

func TestKind_RoutingKey(t *testing.T) {
	tests := map[Kind]string{
		KindAccountOpened:     "account.opened",
		KindMoneyCredited:     "money.credited",
		KindMoneyDebited:      "money.debited",
		KindTransferCompleted: "money.transfer.completed",
		KindInterestAccrued:   "money.interest.accrued",
		KindClientBlocked:     "client.blocked",
		KindClientUnblocked:   "client.unblocked",
	}

	for kind, want := range tests {
		got, err := kind.RoutingKey()
		require.NoError(t, err, kind)
		assert.Equal(t, want, got)
	}

	_, err := Kind("AccountRenamedEvent").RoutingKey()
	assert.ErrorIs(t, err, apperrors.ErrUnsupported)
}

func TestWrapAndDecode(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := MoneyDebited{
		Base:        NewBase(now),
		AccountID:   uuid.Must(uuid.NewV7()),
		Amount:      decimal.RequireFromString("300.00"),
		Currency:    "RUB",
		OperationID: uuid.Must(uuid.NewV7()),
		Reason:      "rent",
	}
	lineage := NewLineage()

	env, err := Wrap(ev, "account-service", lineage)
	require.NoError(t, err)

	body, err := json.Marshal(env)
	require.NoError(t, err)

	var shape map[string]any
	require.NoError(t, json.Unmarshal(body, &shape))
	assert.Equal(t, ev.EventID.String(), shape["EventId"])
	assert.Equal(t, "2026-03-01T12:00:00Z", shape["OccurredAt"])
	meta := shape["Meta"].(map[string]any)
	assert.Equal(t, "v1", meta["Version"])
	assert.Equal(t, "account-service", meta["Source"])
	assert.Equal(t, lineage.CorrelationID.String(), meta["CorrelationId"])
	assert.Equal(t, lineage.CausationID.String(), meta["CausationId"])
	payload := shape["Payload"].(map[string]any)
	assert.Equal(t, ev.AccountID.String(), payload["AccountId"])
	assert.Equal(t, "rent", payload["Reason"])

	parsed, err := ParseEnvelope(body)
	require.NoError(t, err)
	assert.Equal(t, lineage, parsed.Lineage())

	decoded, err := Decode(string(KindMoneyDebited), parsed.Payload)
	require.NoError(t, err)
	got, ok := decoded.(MoneyDebited)
	require.True(t, ok)
	assert.Equal(t, ev.AccountID, got.AccountID)
	assert.True(t, ev.Amount.Equal(got.Amount))
	assert.Equal(t, ev.EventID, got.Identity().EventID)
}

func TestEnvelope_Headers(t *testing.T) {
	lineage := NewLineage()
	env, err := Wrap(ClientBlocked{Base: NewBase(time.Now()), ClientID: uuid.New()}, "svc", lineage)
	require.NoError(t, err)

	headers := env.Headers(KindClientBlocked)
	assert.Equal(t, lineage.CorrelationID.String(), headers[HeaderCorrelationID])
	assert.Equal(t, lineage.CausationID.String(), headers[HeaderCausationID])
	assert.Equal(t, "ClientBlockedEvent", headers[HeaderEventType])
}

func TestLineage_Follow(t *testing.T) {
	first := NewLineage()
	prevEvent := uuid.Must(uuid.NewV7())

	next := first.Follow(prevEvent)

	assert.Equal(t, first.CorrelationID, next.CorrelationID)
	assert.Equal(t, prevEvent, next.CausationID)
}

func TestDecode_UnknownKind(t *testing.T) {
	_, err := Decode("AccountRenamedEvent", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.ErrorIs(t, err, apperrors.ErrUnsupported)
}

func TestDecode_MalformedPayload(t *testing.T) {
	_, err := Decode(string(KindClientBlocked), json.RawMessage(`{"ClientId": 42}`))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestParseEnvelope(t *testing.T) {
	t.Run("unsupported version", func(t *testing.T) {
		_, err := ParseEnvelope([]byte(`{"EventId":"` + uuid.NewString() + `","Meta":{"Version":"v2"},"Payload":{}}`))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
		assert.ErrorIs(t, err, apperrors.ErrUnsupported)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseEnvelope([]byte(`not-json`))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}
