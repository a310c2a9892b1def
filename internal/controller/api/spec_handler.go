package api

import (
	"net/http"

	"github.com/RedHatInsights/identity-event-forwarder/internal/serializer"

	"github.com/gorilla/mux"
)

// EventSchemaServer publishes the JSON schema of the event envelope written to
// the broker so consumers can validate what they read.
type EventSchemaServer struct {
	router    *mux.Router
	urlPrefix string
}

func NewEventSchemaServer(r *mux.Router, urlPrefix string) *EventSchemaServer {
	return &EventSchemaServer{
		router:    r,
		urlPrefix: urlPrefix,
	}
}

func (s *EventSchemaServer) Routes() {
	s.router.HandleFunc(s.urlPrefix+"/event-schema.json", s.handleEventSchema()).Methods(http.MethodGet)
}

func (s *EventSchemaServer) handleEventSchema() http.HandlerFunc {
	schema := serializer.Schema()

	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/schema+json")
		w.WriteHeader(http.StatusOK)
		w.Write(schema)
	}
}
