package cluster

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplicateHandlerRequiresSrcAndDst(t *testing.T) {
	m := newTestManager(t)
	h := ReplicateHandler(m)

	req := httptest.NewRequest(http.MethodPost, "/replicate", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplicateHandlerSelfSourceIsNoop(t *testing.T) {
	m := newTestManager(t)
	h := ReplicateHandler(m)

	req := httptest.NewRequest(http.MethodPost, "/replicate?src=xapiand://127.0.0.1:8890/idx&dst=xapiand://127.0.0.1:8890/idx", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestReplicateHandlerUnownedSourceReturnsClientError(t *testing.T) {
	m := newTestManager(t)
	h := ReplicateHandler(m)

	req := httptest.NewRequest(http.MethodPost, "/replicate?src=xapiand://10.0.0.9:8890/idx&dst=xapiand://127.0.0.1:8890/idx", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}
