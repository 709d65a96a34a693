package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err, "duplicate registration must fail")
}

func TestRecorders(t *testing.T) {
	m := NewNop()

	m.RecordVerification("full", "verified", "low", 5*time.Millisecond)
	m.RecordVerification("full", "verified", "low", 5*time.Millisecond)
	m.RecordGeofenceCheck(true)
	m.RecordGeofenceCheck(false)
	m.SetRoutesLoaded(3)
	m.RecordAuditWrite("written")
	m.RecordStoreOperation("find_herder", time.Millisecond, errors.New("boom"))
	m.RecordLogin("success")

	assert.InDelta(t, 2, testutil.ToFloat64(m.verificationsTotal.WithLabelValues("full", "verified", "low")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.geofenceChecksTotal.WithLabelValues("true")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.geofenceRoutesLoaded), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.storeOperationsTotal.WithLabelValues("find_herder", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.loginAttemptsTotal.WithLabelValues("success")), 0)
}
