package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/metrics"
)

func TestDisabledReturnsNil(t *testing.T) {
	metrics.Reset()
	assert.Nil(t, NewAuthMetrics())
	assert.Nil(t, NewSessionMetrics())
	assert.Nil(t, metrics.NewAuthMetrics())
	assert.Nil(t, metrics.NewSessionMetrics())
}

func TestAuthMetrics(t *testing.T) {
	reg := metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	m := metrics.NewAuthMetrics()
	require.NotNil(t, m)

	m.RecordAttempt("basic", auth.ResultSuccess)
	m.RecordAttempt("basic", auth.ResultFailure)
	m.RecordAttempt("basic", auth.ResultFailure)
	m.RecordOwnerMismatch()
	m.ObserveBackend("ldap", 20*time.Millisecond, nil)
	m.ObserveBackend("ldap", 5*time.Second, errors.New("timeout"))

	am := m.(*authMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(am.attempts.WithLabelValues("basic", auth.ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(am.attempts.WithLabelValues("basic", auth.ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(am.ownerMismatches))
	assert.Equal(t, 1.0, testutil.ToFloat64(am.backendErrors.WithLabelValues("ldap")))
	assert.Equal(t, 1, testutil.CollectAndCount(am.backendDuration))

	// A second constructor on the same registry shares the collectors.
	again := NewAuthMetrics().(*authMetrics)
	again.RecordOwnerMismatch()
	assert.Equal(t, 2.0, testutil.ToFloat64(am.ownerMismatches))

	n, err := testutil.GatherAndCount(reg, "httpgate_auth_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSessionMetrics(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	m := metrics.NewSessionMetrics()
	require.NotNil(t, m)

	m.RecordCreated()
	m.RecordExpired(3)
	m.RecordExpired(0)

	sm := m.(*sessionMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(sm.created))
	assert.Equal(t, 3.0, testutil.ToFloat64(sm.expired))
}

func TestNilReceiversAreSafe(t *testing.T) {
	var am *authMetrics
	am.RecordAttempt("basic", auth.ResultSuccess)
	am.ObserveBackend("ldap", time.Second, nil)
	am.RecordOwnerMismatch()

	var sm *sessionMetrics
	sm.RecordCreated()
	sm.RecordExpired(1)
}
