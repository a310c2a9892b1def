package domain

import (
	"time"
)

type EventID string

func (eid EventID) String() string {
	return string(eid)
}

type RealmID string

func (rid RealmID) String() string {
	return string(rid)
}

type SubjectID string

func (sid SubjectID) String() string {
	return string(sid)
}

// EventType names an identity-system occurrence.  The set of published types is
// driven by configuration, so this is an open string type rather than a closed enum.
type EventType string

func (et EventType) String() string {
	return string(et)
}

const (
	EventTypeLogin         EventType = "LOGIN"
	EventTypeLoginError    EventType = "LOGIN_ERROR"
	EventTypeLogout        EventType = "LOGOUT"
	EventTypeRegister      EventType = "REGISTER"
	EventTypeUpdateProfile EventType = "UPDATE_PROFILE"
	EventTypeUpdateEmail   EventType = "UPDATE_EMAIL"
	EventTypeDeleteAccount EventType = "DELETE_ACCOUNT"

	AdminEventTypePrefix = "ADMIN_"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

func (o Outcome) Valid() bool {
	return o == OutcomeSuccess || o == OutcomeFailure
}

// CanonicalEvent is immutable once constructed.  Details are copied on the way in
// and on the way out.
type CanonicalEvent struct {
	id        EventID
	eventType EventType
	timestamp time.Time
	subject   SubjectID
	realm     RealmID
	outcome   Outcome
	details   map[string]string
}

func NewCanonicalEvent(id EventID, eventType EventType, timestamp time.Time, subject SubjectID, realm RealmID, outcome Outcome, details map[string]string) CanonicalEvent {
	return CanonicalEvent{
		id:        id,
		eventType: eventType,
		timestamp: timestamp.UTC(),
		subject:   subject,
		realm:     realm,
		outcome:   outcome,
		details:   copyDetails(details),
	}
}

func (e CanonicalEvent) ID() EventID          { return e.id }
func (e CanonicalEvent) Type() EventType      { return e.eventType }
func (e CanonicalEvent) Timestamp() time.Time { return e.timestamp }
func (e CanonicalEvent) Subject() SubjectID   { return e.subject }
func (e CanonicalEvent) Realm() RealmID       { return e.realm }
func (e CanonicalEvent) Outcome() Outcome     { return e.outcome }

func (e CanonicalEvent) Details() map[string]string {
	return copyDetails(e.details)
}

func (e CanonicalEvent) Detail(key string) (string, bool) {
	v, found := e.details[key]
	return v, found
}

// Equal reports whether two events carry the same data.  Timestamps are compared
// with time.Time.Equal so monotonic clock readings and locations do not matter.
func (e CanonicalEvent) Equal(other CanonicalEvent) bool {
	if e.id != other.id ||
		e.eventType != other.eventType ||
		!e.timestamp.Equal(other.timestamp) ||
		e.subject != other.subject ||
		e.realm != other.realm ||
		e.outcome != other.outcome ||
		len(e.details) != len(other.details) {
		return false
	}

	for k, v := range e.details {
		if ov, found := other.details[k]; !found || ov != v {
			return false
		}
	}

	return true
}

func copyDetails(details map[string]string) map[string]string {
	if len(details) == 0 {
		return map[string]string{}
	}

	c := make(map[string]string, len(details))
	for k, v := range details {
		c[k] = v
	}
	return c
}
