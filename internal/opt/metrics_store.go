package opt

import "sync"

var (
	mu    sync.Mutex
	store = map[string]Metrics{}
)

// RecordMetrics keeps the metrics of a finished grouping run by run id.
func RecordMetrics(runID string, m Metrics) {
	mu.Lock()
	store[runID] = m
	mu.Unlock()
}

func GetMetrics(runID string) (Metrics, bool) {
	mu.Lock()
	defer mu.Unlock()
	m, ok := store[runID]
	return m, ok
}

func ListMetrics() map[string]Metrics {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]Metrics, len(store))
	for k, v := range store {
		out[k] = v
	}
	return out
}

// ForgetMetrics drops the metrics of an evicted run.
func ForgetMetrics(runID string) {
	mu.Lock()
	delete(store, runID)
	mu.Unlock()
}
