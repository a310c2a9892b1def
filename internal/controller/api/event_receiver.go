package api

import (
	"net/http"
	"strconv"

	"github.com/RedHatInsights/identity-event-forwarder/internal/adapter"
	"github.com/RedHatInsights/identity-event-forwarder/internal/config"
	"github.com/RedHatInsights/identity-event-forwarder/internal/middlewares"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	"github.com/gorilla/mux"
	"github.com/redhatinsights/platform-go-middlewares/v2/request_id"
	"github.com/sirupsen/logrus"
)

const (
	DECODE_ERROR = "Unable to process json input"

	includeRepresentationParam = "includeRepresentation"
)

// EventListener is the host callback surface the receiver feeds.
type EventListener interface {
	OnEvent(ev adapter.HostEvent)
	OnAdminEvent(ev adapter.AdminEvent, includeRepresentation bool)
}

// EventReceiver accepts identity server events posted over HTTP and hands them
// to the listener, the same way an in-process identity server would.
type EventReceiver struct {
	listener  EventListener
	router    *mux.Router
	config    *config.Config
	urlPrefix string
}

func NewEventReceiver(listener EventListener, r *mux.Router, urlPrefix string, cfg *config.Config) *EventReceiver {
	return &EventReceiver{
		listener:  listener,
		router:    r,
		config:    cfg,
		urlPrefix: urlPrefix,
	}
}

func (er *EventReceiver) Routes() {
	mmw := &middlewares.MetricsMiddleware{}
	amw := &middlewares.AuthMiddleware{Secret: []byte(er.config.ReceiverJwtSecret)}

	securedSubRouter := er.router.PathPrefix(er.urlPrefix).Subrouter()
	securedSubRouter.Use(logger.AccessLoggerMiddleware,
		mmw.RecordHTTPMetrics,
		amw.Authenticate)

	securedSubRouter.HandleFunc("/events", er.handleEvent()).Methods(http.MethodPost)
	securedSubRouter.HandleFunc("/admin-events", er.handleAdminEvent()).Methods(http.MethodPost)

	// without this a method mismatch falls through to the parent router's 404
	securedSubRouter.MethodNotAllowedHandler = methodNotAllowedHandler()
}

func (er *EventReceiver) handleEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		log := requestLogger(req)

		var event adapter.HostEvent

		body := http.MaxBytesReader(w, req.Body, maxRequestBodySize)

		if err := decodeJSON(body, &event); err != nil {
			writeDecodeFailureResponse(log, w, err)
			return
		}

		log.WithFields(logrus.Fields{"host_event_type": event.Type, "realm": event.RealmID}).Debug("Received identity event")

		er.listener.OnEvent(event)

		writeJSONResponse(w, http.StatusAccepted, nil)
	}
}

func (er *EventReceiver) handleAdminEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		log := requestLogger(req)

		includeRepresentation := false
		if param := req.URL.Query().Get(includeRepresentationParam); param != "" {
			parsed, err := strconv.ParseBool(param)
			if err != nil {
				writeDecodeFailureResponse(log, w, err)
				return
			}
			includeRepresentation = parsed
		}

		var event adapter.AdminEvent

		body := http.MaxBytesReader(w, req.Body, maxRequestBodySize)

		if err := decodeJSON(body, &event); err != nil {
			writeDecodeFailureResponse(log, w, err)
			return
		}

		log.WithFields(logrus.Fields{"operation_type": event.OperationType, "realm": event.RealmID}).Debug("Received identity admin event")

		er.listener.OnAdminEvent(event, includeRepresentation)

		writeJSONResponse(w, http.StatusAccepted, nil)
	}
}

func requestLogger(req *http.Request) *logrus.Entry {
	fields := logrus.Fields{"request_id": request_id.GetReqID(req.Context())}

	if principal, ok := middlewares.GetPrincipal(req.Context()); ok {
		fields["subject"] = principal.GetSubject()
	}

	return logger.Log.WithFields(fields)
}

func methodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		errorResponse := errorResponse{Title: "Method not allowed",
			Status: http.StatusMethodNotAllowed,
			Detail: req.Method + " is not supported on " + req.URL.Path}
		writeJSONResponse(w, errorResponse.Status, errorResponse)
	}
}

func writeDecodeFailureResponse(log *logrus.Entry, w http.ResponseWriter, err error) {
	log.WithFields(logrus.Fields{"error": err}).Debug(DECODE_ERROR)
	errorResponse := errorResponse{Title: DECODE_ERROR,
		Status: http.StatusBadRequest,
		Detail: err.Error()}
	writeJSONResponse(w, errorResponse.Status, errorResponse)
}
