package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersWithoutPanicking(t *testing.T) {
	require.NotPanics(t, func() {
		New()
	})
}

func TestObserveVerification_ServesMetrics(t *testing.T) {
	m := New()
	m.ObserveVerification("verified", 15*time.Millisecond)
	m.ObserveSignature("valid")
	m.ObserveMPTProof("account", "included")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "safe_verify_verifications_total")
	assert.Contains(t, body, "safe_verify_signatures_checked_total")
	assert.Contains(t, body, "safe_verify_mpt_proofs_total")
}
