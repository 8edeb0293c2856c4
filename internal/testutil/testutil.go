// Package testutil provides shared test helpers: HTTP assertion shorthands
// and scan-frame fixtures used across the monitor test suites.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/safety.monitor/internal/scan"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// UniformFrame builds a frame whose beams all read r, spanning
// [angleMin, angleMax] with the given beam count.
func UniformFrame(beams int, angleMin, angleMax, r float64) *scan.Frame {
	ranges := make([]float64, beams)
	for i := range ranges {
		ranges[i] = r
	}
	return &scan.Frame{
		Ranges:         ranges,
		AngleMin:       angleMin,
		AngleMax:       angleMax,
		AngleIncrement: (angleMax - angleMin) / float64(beams-1),
	}
}
