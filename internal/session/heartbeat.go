package session

import (
	"time"

	"github.com/questdeck/questdeck/internal/domain"
)

// Heartbeat defaults. The monitor pings the GM connection every interval
// and expects the matching pong within the timeout; three consecutive
// misses put the session into queuing mode.
const (
	DefaultHeartbeatInterval   = 5 * time.Second
	DefaultPingTimeout         = 3 * time.Second
	DefaultMissedPingThreshold = 3
)

// PingMessage is sent to the GM connection on every heartbeat tick.
type PingMessage struct {
	SessionID string    `json:"sessionId"`
	PingID    int64     `json:"pingId"`
	Timestamp time.Time `json:"timestamp"`
	TimeoutMs int64     `json:"timeoutMs"`
	Sequence  int64     `json:"sequence"`
}

// PongMessage is the GM client's reply, carrying the ping id it answers.
type PongMessage struct {
	SessionID    string    `json:"sessionId"`
	PingID       int64     `json:"pingId"`
	Timestamp    time.Time `json:"timestamp"`
	ClientStatus string    `json:"clientStatus,omitempty"`
}

// heartbeatMonitor tracks GM connection liveness for one session. It is
// driven entirely from the session actor's event loop: NextPing on each
// tick, RecordTimeout when a ping's deadline passes unanswered, RecordPong
// when a reply arrives. It only ever declares the GM's connection late,
// never the session dead.
type heartbeatMonitor struct {
	interval  time.Duration
	timeout   time.Duration
	threshold int

	seq      int64
	pending  map[int64]time.Time
	misses   int
	mode     domain.SessionMode
	lastPong time.Time
	rtt      time.Duration
}

func newHeartbeatMonitor(interval, timeout time.Duration, threshold int) *heartbeatMonitor {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	if threshold <= 0 {
		threshold = DefaultMissedPingThreshold
	}
	return &heartbeatMonitor{
		interval:  interval,
		timeout:   timeout,
		threshold: threshold,
		pending:   make(map[int64]time.Time),
		mode:      domain.ModeLive,
	}
}

// Mode returns the current session mode.
func (m *heartbeatMonitor) Mode() domain.SessionMode { return m.mode }

// LastPong returns the time of the last successful heartbeat.
func (m *heartbeatMonitor) LastPong() time.Time { return m.lastPong }

// RTT returns the most recently measured round-trip time.
func (m *heartbeatMonitor) RTT() time.Duration { return m.rtt }

// Misses returns the consecutive-miss counter.
func (m *heartbeatMonitor) Misses() int { return m.misses }

// NextPing allocates the next ping sequence and records it as outstanding.
func (m *heartbeatMonitor) NextPing(sessionID string, now time.Time) PingMessage {
	m.seq++
	m.pending[m.seq] = now
	return PingMessage{
		SessionID: sessionID,
		PingID:    m.seq,
		Timestamp: now,
		TimeoutMs: m.timeout.Milliseconds(),
		Sequence:  m.seq,
	}
}

// RecordTimeout marks a ping as missed if it is still outstanding. It
// returns true when this miss crosses the threshold and flips the session
// from live to queuing.
func (m *heartbeatMonitor) RecordTimeout(pingID int64) bool {
	if _, outstanding := m.pending[pingID]; !outstanding {
		return false
	}
	delete(m.pending, pingID)
	m.misses++
	if m.misses >= m.threshold && m.mode == domain.ModeLive {
		m.mode = domain.ModeQueuing
		return true
	}
	return false
}

// RecordPong processes a reply. Any successful pong resets the miss counter;
// a pong received while queuing flips the session back to live, reported by
// the return value so the caller can start draining.
func (m *heartbeatMonitor) RecordPong(pingID int64, now time.Time) bool {
	if sentAt, outstanding := m.pending[pingID]; outstanding {
		m.rtt = now.Sub(sentAt)
		delete(m.pending, pingID)
	}
	m.lastPong = now
	m.misses = 0
	if m.mode == domain.ModeQueuing {
		m.mode = domain.ModeLive
		return true
	}
	return false
}
