package pkg

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

var ContentType = struct {
	JSON string
}{
	JSON: "application/json",
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteResponseBytes(w http.ResponseWriter, contentType string, message []byte, statusCode int) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(statusCode)

	if _, err := w.Write(message); err != nil {
		log.Errorf("failed to write response [%s]: %s", message, err)
	}
}

// WriteJSONResponse marshals v and writes it with the given status code.
// Marshalling failures are answered with 500.
func WriteJSONResponse(w http.ResponseWriter, v any, statusCode int) {
	respJson, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		WriteErrorResponse(w, "internal server error", http.StatusInternalServerError)
		return
	}
	WriteResponseBytes(w, ContentType.JSON, respJson, statusCode)
}

func WriteErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	errJson, err := json.Marshal(ErrorResponse{Error: message})
	if err != nil {
		// a struct with a single string field always marshals
		errJson = []byte(`{"error":"internal server error"}`)
	}
	WriteResponseBytes(w, ContentType.JSON, errJson, statusCode)
}

// WriteNoContent writes a bare 204, without a body and without a content type.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
