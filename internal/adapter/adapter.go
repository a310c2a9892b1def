package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/config"
	"github.com/RedHatInsights/identity-event-forwarder/internal/domain"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IncludeAllEventTypes in the include list forwards every user event type.
const IncludeAllEventTypes = "*"

// maxEventTime is 9999-12-31T23:59:59.999Z in epoch millis, the last instant
// the serializer can write.
const maxEventTime = 253402300799999

type Options struct {
	IncludedTypes      []string
	TypeMapping        map[string]string
	IncludeAdminEvents bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		IncludedTypes:      cfg.IncludedEventTypes,
		TypeMapping:        cfg.EventTypeMapping,
		IncludeAdminEvents: cfg.IncludeAdminEvents,
	}
}

// Adapter converts identity server events into canonical events.  It holds no
// per-event state and is safe for concurrent use.
type Adapter struct {
	included     map[string]bool
	includeAll   bool
	mapping      map[string]string
	includeAdmin bool
	users        UserDirectory

	now   func() time.Time
	newID func() string
}

func NewAdapter(opts Options, users UserDirectory) *Adapter {
	a := &Adapter{
		included:     make(map[string]bool, len(opts.IncludedTypes)),
		mapping:      make(map[string]string, len(opts.TypeMapping)),
		includeAdmin: opts.IncludeAdminEvents,
		users:        users,
		now:          time.Now,
		newID:        uuid.NewString,
	}

	for _, t := range opts.IncludedTypes {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == IncludeAllEventTypes {
			a.includeAll = true
		}
		a.included[t] = true
	}

	// viper lower-cases map keys
	for from, to := range opts.TypeMapping {
		a.mapping[strings.ToUpper(from)] = to
	}

	return a
}

// OnHostEvent converts a user event.  Filtered types return ErrEventFiltered,
// malformed events an AdapterError.  A failed user lookup never fails the event.
func (a *Adapter) OnHostEvent(ctx context.Context, ev HostEvent) (domain.CanonicalEvent, error) {
	hostType := strings.ToUpper(strings.TrimSpace(ev.Type))

	if hostType == "" {
		return domain.CanonicalEvent{}, &AdapterError{Field: "type", Reason: "is missing"}
	}

	if ev.RealmID == "" {
		return domain.CanonicalEvent{}, &AdapterError{Field: "realmId", Reason: "is missing"}
	}

	if ev.Time < 0 {
		return domain.CanonicalEvent{}, &AdapterError{Field: "time", Reason: "is negative"}
	}

	if ev.Time > maxEventTime {
		return domain.CanonicalEvent{}, &AdapterError{Field: "time", Reason: "is after year 9999"}
	}

	if !a.includeAll && !a.included[hostType] {
		return domain.CanonicalEvent{}, filtered(hostType)
	}

	details := make(map[string]string, len(ev.Details)+6)
	for k, v := range ev.Details {
		details[k] = v
	}
	setIfPresent(details, DetailClientID, ev.ClientID)
	setIfPresent(details, DetailSessionID, ev.SessionID)
	setIfPresent(details, DetailIPAddress, ev.IPAddress)
	setIfPresent(details, DetailError, ev.Error)

	if needsEnrichment(domain.EventType(hostType)) && ev.UserID != "" {
		a.enrich(ctx, domain.RealmID(ev.RealmID), domain.SubjectID(ev.UserID), details)
	}

	return domain.NewCanonicalEvent(
		a.eventID(ev.ID),
		a.publishedType(hostType),
		a.timestamp(ev.Time),
		domain.SubjectID(ev.UserID),
		domain.RealmID(ev.RealmID),
		outcome(ev.Error),
		details,
	), nil
}

// OnAdminEvent converts an admin event into an ADMIN_<OPERATION> event.  The
// resource representation is only carried when includeRepresentation is set.
func (a *Adapter) OnAdminEvent(ctx context.Context, ev AdminEvent, includeRepresentation bool) (domain.CanonicalEvent, error) {
	operation := strings.ToUpper(strings.TrimSpace(ev.OperationType))

	if operation == "" {
		return domain.CanonicalEvent{}, &AdapterError{Field: "operationType", Reason: "is missing"}
	}

	if ev.RealmID == "" {
		return domain.CanonicalEvent{}, &AdapterError{Field: "realmId", Reason: "is missing"}
	}

	if ev.Time < 0 {
		return domain.CanonicalEvent{}, &AdapterError{Field: "time", Reason: "is negative"}
	}

	if ev.Time > maxEventTime {
		return domain.CanonicalEvent{}, &AdapterError{Field: "time", Reason: "is after year 9999"}
	}

	hostType := domain.AdminEventTypePrefix + operation

	if !a.includeAdmin {
		return domain.CanonicalEvent{}, filtered(hostType)
	}

	details := make(map[string]string, 8)
	setIfPresent(details, DetailResourceType, ev.ResourceType)
	setIfPresent(details, DetailResourcePath, ev.ResourcePath)
	setIfPresent(details, DetailError, ev.Error)

	if includeRepresentation {
		setIfPresent(details, DetailRepresentation, ev.Representation)
	}

	var subject domain.SubjectID
	if ev.AuthDetails != nil {
		subject = domain.SubjectID(ev.AuthDetails.UserID)
		setIfPresent(details, DetailAuthRealmID, ev.AuthDetails.RealmID)
		setIfPresent(details, DetailAuthClientID, ev.AuthDetails.ClientID)
		setIfPresent(details, DetailAuthIPAddress, ev.AuthDetails.IPAddress)
	}

	return domain.NewCanonicalEvent(
		a.eventID(ev.ID),
		a.publishedType(hostType),
		a.timestamp(ev.Time),
		subject,
		domain.RealmID(ev.RealmID),
		outcome(ev.Error),
		details,
	), nil
}

func (a *Adapter) enrich(ctx context.Context, realm domain.RealmID, userID domain.SubjectID, details map[string]string) {
	if a.users == nil {
		return
	}

	user, err := a.users.Lookup(ctx, realm, userID)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"realm": realm, "user_id": userID, "error": err}).Warn("Unable to enrich identity event with user details")
		return
	}

	setIfPresent(details, DetailEmail, user.Email)
	setIfPresent(details, DetailFirstName, user.GivenName())
	setIfPresent(details, DetailLastName, user.FamilyName())
}

func (a *Adapter) publishedType(hostType string) domain.EventType {
	if mapped, found := a.mapping[hostType]; found && mapped != "" {
		return domain.EventType(mapped)
	}
	return domain.EventType(hostType)
}

func (a *Adapter) eventID(hostID string) domain.EventID {
	if hostID != "" {
		return domain.EventID(hostID)
	}
	return domain.EventID(a.newID())
}

func (a *Adapter) timestamp(epochMillis int64) time.Time {
	if epochMillis == 0 {
		return a.now()
	}
	return time.UnixMilli(epochMillis)
}

func needsEnrichment(t domain.EventType) bool {
	return t == domain.EventTypeRegister || t == domain.EventTypeUpdateProfile
}

func outcome(hostError string) domain.Outcome {
	if hostError != "" {
		return domain.OutcomeFailure
	}
	return domain.OutcomeSuccess
}

func setIfPresent(details map[string]string, key string, value string) {
	if value != "" {
		details[key] = value
	}
}
