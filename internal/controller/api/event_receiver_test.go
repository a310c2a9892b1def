package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/adapter"
	"github.com/RedHatInsights/identity-event-forwarder/internal/config"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	URL_BASE_PATH         = "/api/identity-event-forwarder/v1"
	EVENTS_ENDPOINT       = URL_BASE_PATH + "/events"
	ADMIN_EVENTS_ENDPOINT = URL_BASE_PATH + "/admin-events"
	RECEIVER_SECRET       = "s3cr3t"
)

type recordingListener struct {
	mu                     sync.Mutex
	events                 []adapter.HostEvent
	adminEvents            []adapter.AdminEvent
	includeRepresentations []bool
}

func (l *recordingListener) OnEvent(ev adapter.HostEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *recordingListener) OnAdminEvent(ev adapter.AdminEvent, includeRepresentation bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.adminEvents = append(l.adminEvents, ev)
	l.includeRepresentations = append(l.includeRepresentations, includeRepresentation)
}

func receiverToken(secret string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.StandardClaims{
		Subject:   "keycloak",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	Expect(err).ToNot(HaveOccurred())
	return signed
}

var _ = Describe("EventReceiver", func() {

	var (
		listener *recordingListener
		router   *mux.Router
		cfg      *config.Config
	)

	BeforeEach(func() {
		listener = &recordingListener{}
		router = mux.NewRouter()
		cfg = &config.Config{ReceiverJwtSecret: RECEIVER_SECRET}

		receiver := NewEventReceiver(listener, router, URL_BASE_PATH, cfg)
		receiver.Routes()
	})

	post := func(endpoint string, body string, token string) *httptest.ResponseRecorder {
		req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())

		if token != "" {
			req.Header.Add("Authorization", "Bearer "+token)
		}

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	Describe("Posting a user event", func() {
		It("Should hand the event to the listener and return 202", func() {
			body := `{"id":"evt-1","type":"REGISTER","realmId":"redhat-external","userId":"user-1","time":1709294400000,"details":{"username":"jdoe"}}`

			rr := post(EVENTS_ENDPOINT, body, receiverToken(RECEIVER_SECRET))

			Expect(rr.Code).To(Equal(http.StatusAccepted))
			Expect(listener.events).To(HaveLen(1))
			Expect(listener.events[0]).To(Equal(adapter.HostEvent{
				ID:      "evt-1",
				Type:    "REGISTER",
				RealmID: "redhat-external",
				UserID:  "user-1",
				Time:    1709294400000,
				Details: map[string]string{"username": "jdoe"},
			}))
		})

		It("Should return 400 for malformed json", func() {
			rr := post(EVENTS_ENDPOINT, `{"type":`, receiverToken(RECEIVER_SECRET))

			Expect(rr.Code).To(Equal(http.StatusBadRequest))
			Expect(listener.events).To(BeEmpty())
		})

		It("Should return 400 when required fields are missing", func() {
			rr := post(EVENTS_ENDPOINT, `{"type":"LOGIN"}`, receiverToken(RECEIVER_SECRET))

			Expect(rr.Code).To(Equal(http.StatusBadRequest))
			Expect(listener.events).To(BeEmpty())
		})

		It("Should return 400 when the body holds more than one object", func() {
			rr := post(EVENTS_ENDPOINT, `{"type":"LOGIN","realmId":"r"}{"type":"LOGIN","realmId":"r"}`, receiverToken(RECEIVER_SECRET))

			Expect(rr.Code).To(Equal(http.StatusBadRequest))
		})

		It("Should return 401 without a valid token", func() {
			rr := post(EVENTS_ENDPOINT, `{"type":"LOGIN","realmId":"r"}`, "")
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))

			rr = post(EVENTS_ENDPOINT, `{"type":"LOGIN","realmId":"r"}`, receiverToken("wrong"))
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))

			Expect(listener.events).To(BeEmpty())
		})

		It("Should only accept POST", func() {
			req, err := http.NewRequest(http.MethodGet, EVENTS_ENDPOINT, nil)
			Expect(err).NotTo(HaveOccurred())

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusMethodNotAllowed))
			Expect(listener.events).To(BeEmpty())

			req, err = http.NewRequest(http.MethodPut, ADMIN_EVENTS_ENDPOINT, nil)
			Expect(err).NotTo(HaveOccurred())

			rr = httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusMethodNotAllowed))
		})
	})

	Describe("Posting an admin event", func() {
		body := `{"id":"admin-1","time":1709294400000,"realmId":"r","operationType":"CREATE","resourceType":"USER","resourcePath":"users/1","representation":"{}","authDetails":{"userId":"admin"}}`

		It("Should not include the representation by default", func() {
			rr := post(ADMIN_EVENTS_ENDPOINT, body, receiverToken(RECEIVER_SECRET))

			Expect(rr.Code).To(Equal(http.StatusAccepted))
			Expect(listener.adminEvents).To(HaveLen(1))
			Expect(listener.adminEvents[0].OperationType).To(Equal("CREATE"))
			Expect(listener.adminEvents[0].AuthDetails.UserID).To(Equal("admin"))
			Expect(listener.includeRepresentations).To(Equal([]bool{false}))
		})

		It("Should pass includeRepresentation through", func() {
			rr := post(ADMIN_EVENTS_ENDPOINT+"?includeRepresentation=true", body, receiverToken(RECEIVER_SECRET))

			Expect(rr.Code).To(Equal(http.StatusAccepted))
			Expect(listener.includeRepresentations).To(Equal([]bool{true}))
		})

		It("Should return 400 for an invalid includeRepresentation value", func() {
			rr := post(ADMIN_EVENTS_ENDPOINT+"?includeRepresentation=maybe", body, receiverToken(RECEIVER_SECRET))

			Expect(rr.Code).To(Equal(http.StatusBadRequest))
			Expect(listener.adminEvents).To(BeEmpty())
		})
	})

	Describe("Without a configured secret", func() {
		It("Should accept unauthenticated events", func() {
			router = mux.NewRouter()
			receiver := NewEventReceiver(listener, router, URL_BASE_PATH, &config.Config{})
			receiver.Routes()

			rr := post(EVENTS_ENDPOINT, `{"type":"LOGIN","realmId":"r"}`, "")

			Expect(rr.Code).To(Equal(http.StatusAccepted))
			Expect(listener.events).To(HaveLen(1))
		})
	})
})
