package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordBuild(t *testing.T) {
	before := testutil.ToFloat64(filesSkipped)
	RecordBuild(1500*time.Millisecond, 42, 2)
	if got := testutil.ToFloat64(chunksIndexed); got != 42 {
		t.Errorf("chunks gauge = %v", got)
	}
	if got := testutil.ToFloat64(buildDuration); got != 1.5 {
		t.Errorf("build duration = %v", got)
	}
	if got := testutil.ToFloat64(filesSkipped) - before; got != 2 {
		t.Errorf("skipped delta = %v", got)
	}
}

func TestRecordRetrieval(t *testing.T) {
	before := testutil.ToFloat64(retrievalsTotal.WithLabelValues(OutcomeNoContext))
	RecordRetrieval(OutcomeNoContext, 3*time.Millisecond)
	if got := testutil.ToFloat64(retrievalsTotal.WithLabelValues(OutcomeNoContext)) - before; got != 1 {
		t.Errorf("counter delta = %v", got)
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &StatusRecorder{ResponseWriter: rec, Status: http.StatusOK}
	sr.WriteHeader(http.StatusTeapot)
	if sr.Status != http.StatusTeapot || rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, recorder = %d", sr.Status, rec.Code)
	}
}
