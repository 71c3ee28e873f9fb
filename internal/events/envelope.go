package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/ledger/internal/errors"
)

// SchemaVersion is the only envelope version this service produces and accepts.
const SchemaVersion = "v1"

// Header names carried alongside every published message.
const (
	HeaderCorrelationID = "X-Correlation-Id"
	HeaderCausationID   = "X-Causation-Id"
	HeaderEventType     = "X-Event-Type"
	HeaderMessageID     = "X-Message-Id"
	HeaderRoutingKey    = "X-Routing-Key"
)

// ErrUnsupportedVersion is returned for envelopes whose Meta.Version is not SchemaVersion.
var ErrUnsupportedVersion = apperrors.Wrap(apperrors.ErrUnsupported, "unsupported event schema version")

// Meta carries provenance and lineage of an event.
type Meta struct {
	Version       string    `json:"Version"`
	Source        string    `json:"Source"`
	CorrelationID uuid.UUID `json:"CorrelationId"`
	CausationID   uuid.UUID `json:"CausationId"`
}

// Lineage links an event to the business process it belongs to.
type Lineage struct {
	CorrelationID uuid.UUID
	CausationID   uuid.UUID
}

// NewLineage starts a new process: both identifiers are fresh.
func NewLineage() Lineage {
	return Lineage{CorrelationID: uuid.Must(uuid.NewV7()), CausationID: uuid.Must(uuid.NewV7())}
}

// Follow returns the lineage of an event caused by the event identified by prevEventID
// within the process prev belongs to.
func (l Lineage) Follow(prevEventID uuid.UUID) Lineage {
	return Lineage{CorrelationID: l.CorrelationID, CausationID: prevEventID}
}

// Envelope is the wire shape of a published event.
type Envelope struct {
	EventID    uuid.UUID       `json:"EventId"`
	OccurredAt string          `json:"OccurredAt"`
	Meta       Meta            `json:"Meta"`
	Payload    json.RawMessage `json:"Payload"`
}

// Wrap builds the envelope of ev.
func Wrap(ev Event, source string, lineage Lineage) (*Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", ev.Kind(), err)
	}

	id := ev.Identity()
	return &Envelope{
		EventID:    id.EventID,
		OccurredAt: id.OccurredAt.UTC().Format(time.RFC3339Nano),
		Meta: Meta{
			Version:       SchemaVersion,
			Source:        source,
			CorrelationID: lineage.CorrelationID,
			CausationID:   lineage.CausationID,
		},
		Payload: payload,
	}, nil
}

// Lineage returns the correlation and causation ids of the envelope.
func (e *Envelope) Lineage() Lineage {
	return Lineage{CorrelationID: e.Meta.CorrelationID, CausationID: e.Meta.CausationID}
}

// Headers returns the message headers for the envelope of an event of the given kind.
func (e *Envelope) Headers(kind Kind) map[string]string {
	return map[string]string{
		HeaderCorrelationID: e.Meta.CorrelationID.String(),
		HeaderCausationID:   e.Meta.CausationID.String(),
		HeaderEventType:     string(kind),
	}
}

// ParseEnvelope decodes a raw envelope and checks its schema version.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "malformed envelope: %v", err)
	}
	if env.Meta.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, env.Meta.Version)
	}
	return &env, nil
}
