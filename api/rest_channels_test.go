package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHandleListPorts(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.handleListPorts, http.MethodGet, "/ports", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestHandleConnectAndStatus(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s.handleConnect, http.MethodPost, "/connect", connectRequest{ChannelID: "a"})
	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	rec = doJSON(t, s.handleStatus, http.MethodGet, "/status?channelId=a", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleConnectBadBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/connect", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.handleConnect(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleConnectUnknownProfile(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.handleConnect, http.MethodPost, "/connect", connectRequest{ChannelID: "a", ProfileID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDisconnect(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s.handleConnect, http.MethodPost, "/connect", connectRequest{ChannelID: "a"})

	rec := doJSON(t, s.handleDisconnect, http.MethodPost, "/disconnect", channelRequest{ChannelID: "a"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleStatusWithoutChannelIDReturnsAll(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s.handleConnect, http.MethodPost, "/connect", connectRequest{ChannelID: "a"})
	doJSON(t, s.handleConnect, http.MethodPost, "/connect", connectRequest{ChannelID: "b"})

	rec := doJSON(t, s.handleStatus, http.MethodGet, "/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	statuses, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, statuses, 2)
}

func TestHandleClear(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s.handleConnect, http.MethodPost, "/connect", connectRequest{ChannelID: "a"})

	rec := doJSON(t, s.handleClear, http.MethodPost, "/clear", channelRequest{ChannelID: "a"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlePlugins(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.handlePlugins, http.MethodGet, "/plugins", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	plugins, ok := env.Data.([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, plugins)
}

func TestHandleShutdownSignalsRequested(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.handleShutdown, http.MethodPost, "/shutdown", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-s.ShutdownRequested():
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be requested")
	}
}
