package api

import (
	"encoding/json"
	"net/http"

	"github.com/Shoaibashk/serialmonitor/internal/channel"
)

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func (s *Server) handleListPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := s.scanner.List()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, ports)
}

type connectRequest struct {
	ChannelID string                   `json:"channelId"`
	Config    *channel.PortConfigInput `json:"config"`
	ProfileID string                   `json:"profileId"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	var input *channel.PortConfigInput
	switch {
	case req.Config != nil:
		input = req.Config
	case req.ProfileID != "":
		profile, err := s.profileStore.Get(req.ProfileID)
		if err != nil {
			writeErr(w, err)
			return
		}
		input = portConfigInputFrom(profile.Config)
	}

	cfg, err := buildPortConfig(s.manager, input)
	if err != nil {
		writeErr(w, err)
		return
	}

	if err := s.manager.Connect(req.ChannelID, cfg); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, s.manager.GetStatus(req.ChannelID))
}

type channelRequest struct {
	ChannelID string `json:"channelId"`
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.manager.Disconnect(req.ChannelID); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Query().Get("channelId")
	writeOK(w, statusesFor(s.manager, channelID))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	s.manager.ClearBuffer(req.ChannelID)
	writeOK(w, nil)
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	writeOK(w, s.registry.Plugins())
}

// handleShutdown triggers graceful shutdown: it replies first, then signals
// the process entry point via ShutdownRequested so the HTTP response
// actually reaches the caller before the listener closes.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeOK(w, nil)
	go func() {
		select {
		case s.shutdownCh <- struct{}{}:
		default:
		}
	}()
}
