package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()
	r.ObserveInference("ok", time.Second)
	r.ObserveInference("ok", time.Second)
	r.ObserveInference("error", time.Second)
	r.ObserveCompaction()
	r.ObserveProject("ok")
	r.ObserveSkip("extract")
	r.ObserveMerged(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.questions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.questions.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.compactions))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.projects.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.skipped.WithLabelValues("extract")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.merged))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.ObserveInference("ok", 300*time.Millisecond)
	path := filepath.Join(t.TempDir(), "grantalign.prom")

	require.NoError(t, r.WriteTextfile(path, time.Unix(1700000000, 0)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `grantalign_questions_total{outcome="ok"} 1`)
	assert.Contains(t, out, "grantalign_last_run_timestamp_seconds 1.7e+09")
	assert.Contains(t, out, "grantalign_inference_duration_seconds_count 1")
}
