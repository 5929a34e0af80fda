package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// withJSONBody rebuilds req with body as its JSON payload, preserving the
// original request's context (and therefore any mux vars already set on
// it) so handlers keyed by path id can be exercised without a live router.
func withJSONBody(t *testing.T, req *http.Request, body interface{}) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(b))
	return out
}
