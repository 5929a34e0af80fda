package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Shoaibashk/serialmonitor/internal/macro"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMuxVar(t *testing.T, target, key, value string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return mux.SetURLVars(req, map[string]string{key: value})
}

func TestHandleMacroCreateAndList(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.handleMacroCreate, http.MethodPost, "/macros", macroRequest{
		Name:     "greet",
		Commands: []macro.Command{{Data: "hi"}},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s.handleMacrosList, http.MethodGet, "/macros", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	list, ok := env.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestHandleMacroGetUpdateDelete(t *testing.T) {
	s := newTestServer(t)
	m, err := s.macroStore.Create("greet", nil, 1, nil)
	require.NoError(t, err)

	req := withMuxVar(t, fmt.Sprintf("/macros/%s", m.ID), "id", m.ID)
	rec := httptest.NewRecorder()
	s.handleMacroGet(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPut, fmt.Sprintf("/macros/%s", m.ID), nil)
	req = mux.SetURLVars(req, map[string]string{"id": m.ID})
	rec = doJSONReq(t, s.handleMacroUpdate, req, macroRequest{Name: "greet2", RepeatCount: 2})
	assert.Equal(t, http.StatusOK, rec.Code)

	req = withMuxVar(t, fmt.Sprintf("/macros/%s", m.ID), "id", m.ID)
	rec = httptest.NewRecorder()
	s.handleMacroDelete(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = withMuxVar(t, fmt.Sprintf("/macros/%s", m.ID), "id", m.ID)
	rec = httptest.NewRecorder()
	s.handleMacroGet(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleMacroRun(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s.handleConnect, http.MethodPost, "/connect", connectRequest{ChannelID: "a"})

	m, err := s.macroStore.Create("greet", []macro.Command{{Data: "hi {{name}}"}}, 1, []string{"name"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/macros/%s/run", m.ID), nil)
	req = mux.SetURLVars(req, map[string]string{"id": m.ID})
	rec := doJSONReq(t, s.handleMacroRun, req, macroRunRequest{ChannelID: "a", Params: map[string]string{"name": "world"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	entries := s.manager.GetBuffer("a", 0, 0)
	require.Len(t, entries, 1)
	assert.Equal(t, "hi world", entries[0].Data)
}

func TestHandleMacroRunUnknownMacro(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/macros/missing/run", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "missing"})
	rec := doJSONReq(t, s.handleMacroRun, req, macroRunRequest{ChannelID: "a"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// doJSONReq marshals body into an existing request (preserving its mux
// vars) rather than building a fresh one, for handlers keyed by path id.
func doJSONReq(t *testing.T, handler http.HandlerFunc, req *http.Request, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	bodyReq := withJSONBody(t, req, body)
	rec := httptest.NewRecorder()
	handler(rec, bodyReq)
	return rec
}
