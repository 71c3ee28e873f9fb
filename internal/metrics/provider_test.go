package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_ExportsRuntimeAndOTelMetrics(t *testing.T) {
	provider, err := NewProvider("ledger")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	counter, err := provider.MeterProvider().Meter("ledger").Int64Counter("ledger_transfers_probe_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
	assert.Contains(t, w.Body.String(), "ledger_transfers_probe_total")
}

func TestProvider_SeparateRegistries(t *testing.T) {
	first, err := NewProvider("ledger")
	require.NoError(t, err)
	second, err := NewProvider("ledger")
	require.NoError(t, err, "a second provider must not collide with the first one's collectors")

	assert.NotSame(t, first.registry, second.registry)
}

func TestProvider_ShutdownWithoutMeterProvider(t *testing.T) {
	assert.NoError(t, (&Provider{}).Shutdown(context.Background()))
}
