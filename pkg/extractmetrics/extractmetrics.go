package extractmetrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/paulschiretz/pgl-wp-restore/pkg/plog"
)

// Metrics defines the interface for collecting and reporting extraction statistics.
type Metrics interface {
	AddEntriesExtracted(n int64)
	AddEntriesSkipped(n int64)
	AddUncompressedBytes(n int64)
	LogSummary(msg string)
	StartProgress(msg string, interval time.Duration)
	StopProgress()
}

// ExtractionMetrics holds the atomic counters for tracking the extraction's progress.
// It is the concrete implementation of the Metrics interface.
type ExtractionMetrics struct {
	EntriesExtracted  atomic.Int64
	EntriesSkipped    atomic.Int64
	UncompressedBytes atomic.Int64

	stopChan chan struct{}
}

func (m *ExtractionMetrics) AddEntriesExtracted(n int64)  { m.EntriesExtracted.Add(n) }
func (m *ExtractionMetrics) AddEntriesSkipped(n int64)    { m.EntriesSkipped.Add(n) }
func (m *ExtractionMetrics) AddUncompressedBytes(n int64) { m.UncompressedBytes.Add(n) }

func (m *ExtractionMetrics) StartProgress(msg string, interval time.Duration) {
	m.stopChan = make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.LogSummary(msg)
			case <-m.stopChan:
				return
			}
		}
	}()
}

func (m *ExtractionMetrics) StopProgress() {
	if m.stopChan != nil {
		close(m.stopChan)
	}
}

// LogSummary logs the current state of the metrics.
// This can be called by a background ticker or at the end of the run.
func (m *ExtractionMetrics) LogSummary(msg string) {
	plog.Info(msg,
		"entries_extracted", m.EntriesExtracted.Load(),
		"entries_skipped", m.EntriesSkipped.Load(),
		"uncompressed_bytes", fmt.Sprintf("%d", m.UncompressedBytes.Load()),
	)
}

// NoopMetrics is an implementation of the Metrics interface that performs no operations.
// It can be used to disable metrics collection without changing the calling code.
type NoopMetrics struct{}

func (m *NoopMetrics) AddEntriesExtracted(n int64)                      {}
func (m *NoopMetrics) AddEntriesSkipped(n int64)                        {}
func (m *NoopMetrics) AddUncompressedBytes(n int64)                     {}
func (m *NoopMetrics) LogSummary(msg string)                            {}
func (m *NoopMetrics) StartProgress(msg string, interval time.Duration) {}
func (m *NoopMetrics) StopProgress()                                    {}

// Statically assert that our types implement the interface.
var _ Metrics = (*ExtractionMetrics)(nil)
var _ Metrics = (*NoopMetrics)(nil)
