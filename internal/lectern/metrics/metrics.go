// Package metrics collects business metrics for the course assistant.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// AssistantMetrics counts assistant activity. All counters are safe for
// concurrent use.
type AssistantMetrics struct {
	// query metrics
	queriesTotal     uint64
	queriesCacheHits uint64
	queriesErrors    uint64

	// generation metrics
	generationsTotal    uint64
	generationsErrors   uint64
	toolCallsTotal      uint64
	tokensPromptTotal   uint64
	tokensCompletionTotal uint64

	// ingestion metrics
	coursesIngested uint64
	chunksIngested  uint64
	ingestErrors    uint64

	generationDuration float64 // seconds
	durationMu         sync.Mutex

	startTime time.Time
}

var (
	globalMetrics *AssistantMetrics
	metricsOnce   sync.Once
)

// GetAssistantMetrics returns the process-wide metrics instance.
func GetAssistantMetrics() *AssistantMetrics {
	metricsOnce.Do(func() {
		globalMetrics = &AssistantMetrics{startTime: time.Now()}
	})
	return globalMetrics
}

// NewAssistantMetrics returns a fresh instance, used in tests.
func NewAssistantMetrics() *AssistantMetrics {
	return &AssistantMetrics{startTime: time.Now()}
}

// RecordQuery records one query outcome.
func (m *AssistantMetrics) RecordQuery(cacheHit bool, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.queriesCacheHits, 1)
	}
}

// RecordGeneration records one generation run with its tool call count
// and token usage.
func (m *AssistantMetrics) RecordGeneration(duration time.Duration, toolCalls, promptTokens, completionTokens int, err error) {
	atomic.AddUint64(&m.generationsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.generationsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.generationDuration += duration.Seconds()
	m.durationMu.Unlock()

	if toolCalls > 0 {
		atomic.AddUint64(&m.toolCallsTotal, uint64(toolCalls))
	}
	if promptTokens > 0 {
		atomic.AddUint64(&m.tokensPromptTotal, uint64(promptTokens))
	}
	if completionTokens > 0 {
		atomic.AddUint64(&m.tokensCompletionTotal, uint64(completionTokens))
	}
}

// RecordIngest records one course ingestion outcome.
func (m *AssistantMetrics) RecordIngest(courses, chunks int, err error) {
	if err != nil {
		atomic.AddUint64(&m.ingestErrors, 1)
		return
	}
	atomic.AddUint64(&m.coursesIngested, uint64(courses))
	atomic.AddUint64(&m.chunksIngested, uint64(chunks))
}

// Stats returns the current counters for the stats API.
func (m *AssistantMetrics) Stats() map[string]any {
	m.durationMu.Lock()
	generationDuration := m.generationDuration
	m.durationMu.Unlock()

	generations := atomic.LoadUint64(&m.generationsTotal)
	avgGeneration := 0.0
	if generations > 0 {
		avgGeneration = generationDuration / float64(generations)
	}

	return map[string]any{
		"queries": map[string]any{
			"total":      atomic.LoadUint64(&m.queriesTotal),
			"cache_hits": atomic.LoadUint64(&m.queriesCacheHits),
			"errors":     atomic.LoadUint64(&m.queriesErrors),
		},
		"generation": map[string]any{
			"total":             generations,
			"errors":            atomic.LoadUint64(&m.generationsErrors),
			"tool_calls":        atomic.LoadUint64(&m.toolCallsTotal),
			"avg_duration_secs": avgGeneration,
			"prompt_tokens":     atomic.LoadUint64(&m.tokensPromptTotal),
			"completion_tokens": atomic.LoadUint64(&m.tokensCompletionTotal),
		},
		"ingestion": map[string]any{
			"courses": atomic.LoadUint64(&m.coursesIngested),
			"chunks":  atomic.LoadUint64(&m.chunksIngested),
			"errors":  atomic.LoadUint64(&m.ingestErrors),
		},
		"uptime_secs": time.Since(m.startTime).Seconds(),
	}
}

// Export renders the counters in Prometheus text exposition format.
func (m *AssistantMetrics) Export(namespace, subsystem string) string {
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	m.durationMu.Lock()
	generationDuration := m.generationDuration
	m.durationMu.Unlock()

	var sb strings.Builder
	counter := func(name, help string, value uint64) {
		fmt.Fprintf(&sb, "# HELP %s_%s %s\n", prefix, name, help)
		fmt.Fprintf(&sb, "# TYPE %s_%s counter\n", prefix, name)
		fmt.Fprintf(&sb, "%s_%s %d\n\n", prefix, name, value)
	}

	counter("queries_total", "Total number of assistant queries.", atomic.LoadUint64(&m.queriesTotal))
	counter("queries_cache_hits_total", "Number of answer cache hits.", atomic.LoadUint64(&m.queriesCacheHits))
	counter("queries_errors_total", "Number of failed queries.", atomic.LoadUint64(&m.queriesErrors))
	counter("generations_total", "Total number of generation runs.", atomic.LoadUint64(&m.generationsTotal))
	counter("generations_errors_total", "Number of failed generation runs.", atomic.LoadUint64(&m.generationsErrors))
	counter("tool_calls_total", "Total number of tool invocations.", atomic.LoadUint64(&m.toolCallsTotal))
	counter("tokens_prompt_total", "Total prompt tokens consumed.", atomic.LoadUint64(&m.tokensPromptTotal))
	counter("tokens_completion_total", "Total completion tokens consumed.", atomic.LoadUint64(&m.tokensCompletionTotal))
	counter("courses_ingested_total", "Total courses ingested.", atomic.LoadUint64(&m.coursesIngested))
	counter("chunks_ingested_total", "Total chunks ingested.", atomic.LoadUint64(&m.chunksIngested))
	counter("ingest_errors_total", "Number of ingestion errors.", atomic.LoadUint64(&m.ingestErrors))

	fmt.Fprintf(&sb, "# HELP %s_generation_duration_seconds_total Total generation duration.\n", prefix)
	fmt.Fprintf(&sb, "# TYPE %s_generation_duration_seconds_total counter\n", prefix)
	fmt.Fprintf(&sb, "%s_generation_duration_seconds_total %.6f\n\n", prefix, generationDuration)

	fmt.Fprintf(&sb, "# HELP %s_uptime_seconds Service uptime in seconds.\n", prefix)
	fmt.Fprintf(&sb, "# TYPE %s_uptime_seconds gauge\n", prefix)
	fmt.Fprintf(&sb, "%s_uptime_seconds %.2f\n", prefix, time.Since(m.startTime).Seconds())

	return sb.String()
}
