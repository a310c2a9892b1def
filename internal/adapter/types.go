package adapter

// HostEvent is a user event as emitted by the identity server's event listener
// surface.  Time is in epoch milliseconds.
type HostEvent struct {
	ID        string            `json:"id,omitempty"`
	Type      string            `json:"type" validate:"required"`
	RealmID   string            `json:"realmId" validate:"required"`
	ClientID  string            `json:"clientId,omitempty"`
	UserID    string            `json:"userId,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
	IPAddress string            `json:"ipAddress,omitempty"`
	Error     string            `json:"error,omitempty"`
	Time      int64             `json:"time" validate:"gte=0"`
	Details   map[string]string `json:"details,omitempty"`
}

type AuthDetails struct {
	RealmID   string `json:"realmId,omitempty"`
	ClientID  string `json:"clientId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
}

// AdminEvent is an administrative change made through the identity server's
// admin API or console.
type AdminEvent struct {
	ID             string       `json:"id,omitempty"`
	Time           int64        `json:"time" validate:"gte=0"`
	RealmID        string       `json:"realmId" validate:"required"`
	AuthDetails    *AuthDetails `json:"authDetails,omitempty"`
	OperationType  string       `json:"operationType" validate:"required"`
	ResourceType   string       `json:"resourceType,omitempty"`
	ResourcePath   string       `json:"resourcePath,omitempty"`
	Representation string       `json:"representation,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// Detail keys added to canonical events.
const (
	DetailClientID       = "client_id"
	DetailSessionID      = "session_id"
	DetailIPAddress      = "ip_address"
	DetailError          = "error"
	DetailEmail          = "email"
	DetailFirstName      = "first_name"
	DetailLastName       = "last_name"
	DetailResourceType   = "resource_type"
	DetailResourcePath   = "resource_path"
	DetailRepresentation = "representation"
	DetailAuthRealmID    = "auth_realm_id"
	DetailAuthClientID   = "auth_client_id"
	DetailAuthIPAddress  = "auth_ip_address"
)
