package postgres

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/sitebeam/notify-service/pkg/metrics"
)

func TestTrackCountsOperations(t *testing.T) {
	m := metrics.NewWith("test", prometheus.NewRegistry())
	base := NewBaseRepository(nil, m)

	assert.NoError(t, base.track("delivery_claim", nil))
	assert.NoError(t, base.track("delivery_claim", nil))

	wantErr := errors.New("connection reset")
	assert.Equal(t, wantErr, base.track("delivery_claim", wantErr))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DatabaseOperations.WithLabelValues("delivery_claim", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatabaseOperations.WithLabelValues("delivery_claim", "error")))
}

func TestTrackWithoutMetrics(t *testing.T) {
	base := NewBaseRepository(nil, nil)

	assert.NoError(t, base.track("delivery_claim", nil))
	assert.Error(t, base.track("delivery_claim", errors.New("connection reset")))
}
