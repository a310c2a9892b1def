package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const maxRequestBodySize = 1048576

var validate = validator.New()

type errorResponse struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func writeJSONResponse(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)

	if payload == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.LogError("Unable to encode payload", err)
	}
}

func decodeJSON(body io.ReadCloser, data interface{}) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(data); err != nil {
		return errors.New("Request body includes malformed json")
	}

	if err := validate.Struct(data); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, e := range validationErrors {
				logger.Log.WithFields(logrus.Fields{"field": e.Namespace(), "tag": e.Tag()}).Debug("Request body failed validation")
			}
		}
		return errors.New("Request body is missing required fields")
	} else if dec.More() {
		return errors.New("Request body must only contain one json object")
	}

	return nil
}
