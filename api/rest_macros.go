package api

import (
	"net/http"

	"github.com/Shoaibashk/serialmonitor/internal/macro"
	"github.com/gorilla/mux"
)

func (s *Server) handleMacrosList(w http.ResponseWriter, r *http.Request) {
	writeOK(w, s.macroStore.List())
}

type macroRequest struct {
	Name        string          `json:"name"`
	Commands    []macro.Command `json:"commands"`
	RepeatCount int             `json:"repeatCount"`
	Params      []string        `json:"params"`
}

func (s *Server) handleMacroCreate(w http.ResponseWriter, r *http.Request) {
	var req macroRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	m, err := s.macroStore.Create(req.Name, req.Commands, req.RepeatCount, req.Params)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeCreated(w, m)
}

func (s *Server) handleMacroGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, err := s.macroStore.Get(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, m)
}

func (s *Server) handleMacroUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req macroRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	m, err := s.macroStore.Update(id, req.Name, req.Commands, req.RepeatCount, req.Params)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, m)
}

func (s *Server) handleMacroDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.macroStore.Delete(id); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

type macroRunRequest struct {
	ChannelID string            `json:"channelId"`
	Params    map[string]string `json:"params"`
}

func (s *Server) handleMacroRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req macroRunRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	m, err := s.macroStore.Get(id)
	if err != nil {
		writeErr(w, err)
		return
	}

	if err := s.executor.Run(r.Context(), m, req.ChannelID, req.Params); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}
