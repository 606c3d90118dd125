package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/jrsteele09/narrate-web/authapi"
	"github.com/rs/zerolog/log"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to write json response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorCode string) {
	u := url.URL{Path: path, RawQuery: url.Values{"error": {errorCode}}.Encode()}
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// backendMessage prefers the backend's own detail text over our wrapping.
func backendMessage(err error, fallback string) string {
	var se *authapi.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}
