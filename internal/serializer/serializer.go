package serializer

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/RedHatInsights/identity-event-forwarder/internal/domain"

	"github.com/xeipuuv/gojsonschema"
)

const (
	EnvelopeVersion = "v1"
	timeLayout      = time.RFC3339Nano
)

var ErrSerialization = errors.New("identity event serialization failed")

//go:embed event_schema.json
var eventSchemaJSON []byte

var eventSchema = mustLoadSchema(eventSchemaJSON)

type SerializationError struct {
	Field  string
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrSerialization, e.Field, e.Reason)
}

func (e *SerializationError) Is(target error) bool {
	return target == ErrSerialization
}

type envelope struct {
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Data    envelopeData `json:"data"`
}

type envelopeData struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Time    string            `json:"time"`
	Subject string            `json:"subject"`
	Realm   string            `json:"realm"`
	Outcome string            `json:"outcome"`
	Details map[string]string `json:"details"`
}

// Encode renders the event as a JSON envelope.  encoding/json writes map keys in
// sorted order, so equal events always produce identical bytes.
func Encode(event domain.CanonicalEvent) ([]byte, error) {
	if err := checkEncodable(event); err != nil {
		return nil, err
	}

	env := envelope{
		Type:    event.Type().String(),
		Version: EnvelopeVersion,
		Data: envelopeData{
			ID:      event.ID().String(),
			Type:    event.Type().String(),
			Time:    event.Timestamp().UTC().Format(timeLayout),
			Subject: event.Subject().String(),
			Realm:   event.Realm().String(),
			Outcome: string(event.Outcome()),
			Details: event.Details(),
		},
	}

	b, err := json.Marshal(env)
	if err != nil {
		return nil, &SerializationError{Field: "event", Reason: err.Error()}
	}

	return b, nil
}

func Decode(b []byte) (domain.CanonicalEvent, error) {
	var env envelope

	if err := json.Unmarshal(b, &env); err != nil {
		return domain.CanonicalEvent{}, &SerializationError{Field: "envelope", Reason: err.Error()}
	}

	if env.Version != EnvelopeVersion {
		return domain.CanonicalEvent{}, &SerializationError{Field: "version", Reason: fmt.Sprintf("unsupported version %q", env.Version)}
	}

	if env.Data.Type == "" {
		return domain.CanonicalEvent{}, &SerializationError{Field: "data.type", Reason: "is empty"}
	}

	ts, err := time.Parse(timeLayout, env.Data.Time)
	if err != nil {
		return domain.CanonicalEvent{}, &SerializationError{Field: "data.time", Reason: err.Error()}
	}

	outcome := domain.Outcome(env.Data.Outcome)
	if !outcome.Valid() {
		return domain.CanonicalEvent{}, &SerializationError{Field: "data.outcome", Reason: fmt.Sprintf("unknown outcome %q", env.Data.Outcome)}
	}

	return domain.NewCanonicalEvent(
		domain.EventID(env.Data.ID),
		domain.EventType(env.Data.Type),
		ts,
		domain.SubjectID(env.Data.Subject),
		domain.RealmID(env.Data.Realm),
		outcome,
		env.Data.Details,
	), nil
}

// Validate checks that b is structurally a valid event envelope.
func Validate(b []byte) error {
	result, err := eventSchema.Validate(gojsonschema.NewBytesLoader(b))
	if err != nil {
		return &SerializationError{Field: "envelope", Reason: err.Error()}
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return &SerializationError{Field: "envelope", Reason: strings.Join(problems, "; ")}
	}

	return nil
}

// Key is the broker message key for an event.  Keying by subject keeps each
// user's events on one partition.
func Key(event domain.CanonicalEvent) []byte {
	if event.Subject() != "" {
		return []byte(event.Subject())
	}
	return []byte(event.Realm())
}

func checkEncodable(event domain.CanonicalEvent) error {
	if event.Type() == "" {
		return &SerializationError{Field: "type", Reason: "is empty"}
	}

	if event.Timestamp().IsZero() {
		return &SerializationError{Field: "time", Reason: "is zero"}
	}

	// RFC 3339 only has four digit years
	if year := event.Timestamp().UTC().Year(); year < 0 || year > 9999 {
		return &SerializationError{Field: "time", Reason: fmt.Sprintf("year %d is out of range", year)}
	}

	if !event.Outcome().Valid() {
		return &SerializationError{Field: "outcome", Reason: fmt.Sprintf("unknown outcome %q", event.Outcome())}
	}

	// encoding/json silently rewrites invalid UTF-8, which would break decode(encode(x)) == x
	fields := map[string]string{
		"id":      event.ID().String(),
		"type":    event.Type().String(),
		"subject": event.Subject().String(),
		"realm":   event.Realm().String(),
	}
	for name, value := range fields {
		if !utf8.ValidString(value) {
			return &SerializationError{Field: name, Reason: "is not valid UTF-8"}
		}
	}

	for k, v := range event.Details() {
		if !utf8.ValidString(k) {
			return &SerializationError{Field: "details", Reason: fmt.Sprintf("key %q is not valid UTF-8", k)}
		}
		if !utf8.ValidString(v) {
			return &SerializationError{Field: "details." + k, Reason: "is not valid UTF-8"}
		}
	}

	return nil
}

func mustLoadSchema(b []byte) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
	if err != nil {
		panic(fmt.Sprintf("unable to load identity event schema: %s", err))
	}
	return schema
}

// Schema returns the JSON schema that Validate checks envelopes against.
func Schema() []byte {
	return append([]byte(nil), eventSchemaJSON...)
}
