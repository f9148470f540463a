package idea

import (
	"errors"
	"time"

	"go.uber.org/atomic"
)

// Metrics tracks protocol traffic and failure counts for one Client.
type Metrics struct {
	// Commands
	CommandsSent   atomic.Int64 // Lines fully written
	BytesWritten   atomic.Int64 // Total bytes written, terminators included
	WriteErrors    atomic.Int64 // Failed or short writes
	EncodingErrors atomic.Int64 // Commands rejected before transmission
	LastCommandAt  atomic.Int64 // Unix nanoseconds of the last command sent

	// Replies
	Replies        atomic.Int64 // Framed reads that completed
	BytesRead      atomic.Int64 // Reply bytes, terminators excluded
	TimeoutReplies atomic.Int64 // Replies ended by an empty read instead of \r
	EmptyReplies   atomic.Int64 // Replies with no bytes at all
	ReadErrors     atomic.Int64 // Genuine read failures
	Overflows      atomic.Int64 // Replies over the length bound
	TotalReplyTime atomic.Int64 // Time spent framing replies (ns)
	MaxReplyTime   atomic.Int64 // Slowest framed read (ns)

	// Health Indicators
	ConsecutiveFailures atomic.Int64 // Consecutive transport failures
	LastErrorAt         atomic.Int64 // Unix nanoseconds of the last failure
}

// HealthStatus represents the overall health of the drive link
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDown      HealthStatus = "down"
)

// MetricsSnapshot is a point-in-time copy of Metrics with derived rates.
type MetricsSnapshot struct {
	Timestamp time.Time

	CommandsSent   int64
	BytesWritten   int64
	WriteErrors    int64
	EncodingErrors int64
	Replies        int64
	BytesRead      int64
	TimeoutReplies int64
	EmptyReplies   int64
	ReadErrors     int64
	Overflows      int64

	LastCommand         time.Time
	AverageReplyLatency time.Duration
	MaxReplyLatency     time.Duration

	WriteSuccessRate    float64 // percent
	ErrorRate           float64 // percent of transport operations that failed
	EmptyReplyRate      float64 // percent of replies with no data
	ConsecutiveFailures int64

	HealthStatus HealthStatus
	HealthScore  float64
}

// Snapshot returns the current counters and the derived health assessment.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Timestamp:           time.Now(),
		CommandsSent:        m.CommandsSent.Load(),
		BytesWritten:        m.BytesWritten.Load(),
		WriteErrors:         m.WriteErrors.Load(),
		EncodingErrors:      m.EncodingErrors.Load(),
		Replies:             m.Replies.Load(),
		BytesRead:           m.BytesRead.Load(),
		TimeoutReplies:      m.TimeoutReplies.Load(),
		EmptyReplies:        m.EmptyReplies.Load(),
		ReadErrors:          m.ReadErrors.Load(),
		Overflows:           m.Overflows.Load(),
		MaxReplyLatency:     time.Duration(m.MaxReplyTime.Load()),
		ConsecutiveFailures: m.ConsecutiveFailures.Load(),
	}
	if last := m.LastCommandAt.Load(); last > 0 {
		s.LastCommand = time.Unix(0, last)
	}

	s.AverageReplyLatency = m.calculateAverageReplyLatency()
	s.WriteSuccessRate = m.calculateWriteSuccessRate()
	s.ErrorRate = m.calculateErrorRate()
	s.EmptyReplyRate = m.calculateEmptyReplyRate()

	s.HealthStatus = assessHealthStatus(&s)
	s.HealthScore = calculateHealthScore(&s)
	return s
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	for _, c := range []*atomic.Int64{
		&m.CommandsSent, &m.BytesWritten, &m.WriteErrors, &m.EncodingErrors, &m.LastCommandAt,
		&m.Replies, &m.BytesRead, &m.TimeoutReplies, &m.EmptyReplies, &m.ReadErrors,
		&m.Overflows, &m.TotalReplyTime, &m.MaxReplyTime,
		&m.ConsecutiveFailures, &m.LastErrorAt,
	} {
		c.Store(0)
	}
}

// Internal metrics recording methods

func (m *Metrics) recordWrite(bytesWritten int, err error) {
	m.BytesWritten.Add(int64(bytesWritten))
	if err != nil {
		m.WriteErrors.Add(1)
		m.recordFailure()
		return
	}
	m.CommandsSent.Add(1)
	m.LastCommandAt.Store(time.Now().UnixNano())
	m.ConsecutiveFailures.Store(0)
}

func (m *Metrics) recordEncodingError() {
	m.EncodingErrors.Add(1)
}

func (m *Metrics) recordReply(reply string, end frameEnd, err error, duration time.Duration) {
	m.TotalReplyTime.Add(duration.Nanoseconds())

	// Update max reply time
	for {
		current := m.MaxReplyTime.Load()
		if duration.Nanoseconds() <= current {
			break
		}
		if m.MaxReplyTime.CompareAndSwap(current, duration.Nanoseconds()) {
			break
		}
	}

	if err != nil {
		var readErr *ReadError
		switch {
		case errors.Is(err, ErrReplyTooLong):
			m.Overflows.Add(1)
			m.recordFailure()
		case errors.As(err, &readErr):
			m.ReadErrors.Add(1)
			m.recordFailure()
		}
		// Context cancellation is not a link failure
		return
	}

	m.Replies.Add(1)
	m.BytesRead.Add(int64(len(reply)))
	if end == endTimeout {
		m.TimeoutReplies.Add(1)
	}
	if reply == "" {
		m.EmptyReplies.Add(1)
	}
	m.ConsecutiveFailures.Store(0)
}

func (m *Metrics) recordFailure() {
	m.ConsecutiveFailures.Add(1)
	m.LastErrorAt.Store(time.Now().UnixNano())
}

// Metrics calculation methods

func (m *Metrics) calculateAverageReplyLatency() time.Duration {
	reads := m.Replies.Load() + m.ReadErrors.Load() + m.Overflows.Load()
	if reads == 0 {
		return 0
	}
	return time.Duration(m.TotalReplyTime.Load() / reads)
}

func (m *Metrics) calculateWriteSuccessRate() float64 {
	writes := m.CommandsSent.Load() + m.WriteErrors.Load()
	if writes == 0 {
		return 100.0
	}
	return float64(m.CommandsSent.Load()) / float64(writes) * 100
}

func (m *Metrics) calculateErrorRate() float64 {
	failures := m.WriteErrors.Load() + m.ReadErrors.Load() + m.Overflows.Load()
	totalOps := m.CommandsSent.Load() + m.Replies.Load() + failures
	if totalOps == 0 {
		return 0.0
	}
	return float64(failures) / float64(totalOps) * 100
}

func (m *Metrics) calculateEmptyReplyRate() float64 {
	replies := m.Replies.Load()
	if replies == 0 {
		return 0.0
	}
	return float64(m.EmptyReplies.Load()) / float64(replies) * 100
}

func assessHealthStatus(s *MetricsSnapshot) HealthStatus {
	if s.ConsecutiveFailures >= 10 {
		return HealthStatusDown
	}

	// Check for critical issues
	if s.ErrorRate > 50.0 || s.ConsecutiveFailures > 5 {
		return HealthStatusUnhealthy
	}

	// A drive that keeps answering with nothing is probably not listening.
	if s.ErrorRate > 10.0 || s.EmptyReplyRate > 50.0 || s.ConsecutiveFailures > 3 {
		return HealthStatusDegraded
	}

	return HealthStatusHealthy
}

func calculateHealthScore(s *MetricsSnapshot) float64 {
	if s.HealthStatus == HealthStatusDown {
		return 0.0
	}

	score := 100.0

	// Deduct for errors
	score -= s.ErrorRate * 2

	// Deduct for silent replies
	score -= s.EmptyReplyRate / 2

	// Deduct for consecutive failures (more severe penalty)
	score -= float64(s.ConsecutiveFailures) * 10

	if score < 0 {
		score = 0
	}
	return score
}
