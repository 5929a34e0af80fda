package api

import (
	"net/http"

	"github.com/Shoaibashk/serialmonitor/internal/channel"
	"github.com/gorilla/mux"
)

func (s *Server) handleProfilesList(w http.ResponseWriter, r *http.Request) {
	writeOK(w, s.profileStore.List())
}

type profileRequest struct {
	Name   string                   `json:"name"`
	Config *channel.PortConfigInput `json:"config"`
}

func (s *Server) handleProfileCreate(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	cfg, err := buildPortConfig(s.manager, req.Config)
	if err != nil {
		writeErr(w, err)
		return
	}
	p, err := s.profileStore.Create(req.Name, cfg)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeCreated(w, p)
}

func (s *Server) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.profileStore.Get(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, p)
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req profileRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	cfg, err := buildPortConfig(s.manager, req.Config)
	if err != nil {
		writeErr(w, err)
		return
	}
	p, err := s.profileStore.Update(id, req.Name, cfg)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, p)
}

func (s *Server) handleProfileDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.profileStore.Delete(id); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}
