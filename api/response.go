// Package api is the HTTP facade: a single server multiplexing the
// WebSocket endpoint and the REST surface over the channel runtime, macro
// executor, and persistent stores.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/Shoaibashk/serialmonitor/internal/channel"
)

// envelope is the {success, data?, error?} shape every REST response uses.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeCreated(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: data})
}

// writeErr maps err to an HTTP status per the Kind taxonomy and writes the
// failure envelope. A nil or untagged error falls back to 500.
func writeErr(w http.ResponseWriter, err error) {
	status := statusForKind(channel.KindOf(err))
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func statusForKind(kind channel.Kind) int {
	switch kind {
	case channel.KindDeviceUnavailable:
		return http.StatusServiceUnavailable
	case channel.KindInvalidConfig, channel.KindInvalidEncoding:
		return http.StatusBadRequest
	case channel.KindNotConnected:
		return http.StatusConflict
	case channel.KindNotFound:
		return http.StatusNotFound
	case channel.KindMacroAborted:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: msg})
}
