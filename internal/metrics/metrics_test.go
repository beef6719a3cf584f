package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New("")

	m.RecordPrediction("Abnormal", 0.8, 3*time.Millisecond)
	m.RecordPrediction("Abnormal", 0.7, 2*time.Millisecond)
	m.RecordRejection("wrong_length")
	m.RecordHTTP("/api/predict", 200, time.Millisecond)
	m.RecordAPIKeyCheck("invalid")
	m.SetModel(3, time.Unix(1700000000, 0))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PredictionsTotal.WithLabelValues("Abnormal")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PredictionsTotal.WithLabelValues("Normal Sinus Rhythm")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectionsTotal.WithLabelValues("wrong_length")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/predict", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIKeyChecks.WithLabelValues("invalid")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ModelVersion))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.ModelLoadedAt))
}

func TestInstancesAreIndependent(t *testing.T) {
	a := New("")
	b := New("")

	a.RecordRejection("out_of_range")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.RejectionsTotal.WithLabelValues("out_of_range")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RejectionsTotal.WithLabelValues("out_of_range")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPrediction("Abnormal", 0.9, time.Millisecond)
		m.RecordRejection("wrong_length")
		m.RecordStage("extract", time.Millisecond)
		m.RecordHTTP("/", 200, time.Millisecond)
		m.RecordAPIKeyCheck("ok")
		m.SetModel(1, time.Now())
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New("")
	m.RecordStage("classify", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `cardiodna_pipeline_stage_duration_seconds_count{stage="classify"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
