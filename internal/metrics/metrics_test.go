package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			matched := true
			for _, lp := range metric.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					matched = false
				}
			}
			if matched {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestWalletOperationCounter(t *testing.T) {
	m := New()
	m.WalletOperation("payment", "rejected")
	m.WalletOperation("payment", "rejected")
	m.WalletOperation("deposit", "successful")

	assert.Equal(t, 2.0, counterValue(t, m, "lunchwallet_wallet_operations_total",
		map[string]string{"operation": "payment", "status": "rejected"}))
	assert.Equal(t, 1.0, counterValue(t, m, "lunchwallet_wallet_operations_total",
		map[string]string{"operation": "deposit", "status": "successful"}))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.GatewayRequest("create_order", "ok")
	m.ObserveHTTPRequest("POST", "/api/v1/wallets/:walletId/debit", 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `lunchwallet_lunch_gateway_requests_total{method="create_order",outcome="ok"} 1`))
	assert.True(t, strings.Contains(text, "lunchwallet_http_request_duration_seconds_bucket"))
}
