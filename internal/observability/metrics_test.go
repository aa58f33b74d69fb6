package observability

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCounts(t *testing.T) {
	m := NewMetrics()
	m.RecordEvent("button", "ok")
	m.RecordEvent("button", "ok")
	m.RecordEvent("command", "error")
	m.RecordError("command", "CONFIGURATION_ERROR")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Events["button|ok"])
	assert.Equal(t, int64(1), snap.Events["command|error"])
	assert.Equal(t, int64(1), snap.Errors["command|CONFIGURATION_ERROR"])
	assert.Equal(t, []string{"button|ok", "command|error"}, Keys(snap.Events))
}

func TestMetricsSnapshotIsACopy(t *testing.T) {
	m := NewMetrics()
	m.RecordEvent("message", "ok")
	snap := m.Snapshot()
	snap.Events["message|ok"] = 100

	assert.Equal(t, int64(1), m.Snapshot().Events["message|ok"])
}

func TestMetricsConcurrentUse(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordEvent("voice", "ok")
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), m.Snapshot().Events["voice|ok"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordEvent("button", "ok")
	m.RecordError("button", "X")
	assert.Empty(t, m.Snapshot().Events)
}
