package xfer

import (
	"sync/atomic"
)

// SessionMetrics contains atomic counters for one transfer session.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type SessionMetrics struct {
	// LineRecvCount indicates the number of response lines received.
	LineRecvCount atomic.Uint64
	// LineTimeoutCount indicates the number of line reads that timed out.
	LineTimeoutCount atomic.Uint64
	// BytesRecvCount indicates the number of payload bytes received.
	BytesRecvCount atomic.Uint64

	// FileReqCount indicates the number of file downloads requested.
	FileReqCount atomic.Uint64
	// FileOKCount indicates the number of downloads that completed with a
	// matching byte count and a valid footer.
	FileOKCount atomic.Uint64
	// FileFailCount indicates the number of failed downloads.
	FileFailCount atomic.Uint64

	// DeviceErrCount indicates the number of explicit ERR: lines received.
	DeviceErrCount atomic.Uint64
	// ProtocolErrCount indicates the number of protocol violations observed
	// (malformed list entries, bad headers, bad footers).
	ProtocolErrCount atomic.Uint64
}

func (m *SessionMetrics) incLineRecvCount() {
	m.LineRecvCount.Add(1)
}

func (m *SessionMetrics) incLineTimeoutCount() {
	m.LineTimeoutCount.Add(1)
}

func (m *SessionMetrics) addBytesRecvCount(n int64) {
	if n > 0 {
		m.BytesRecvCount.Add(uint64(n))
	}
}

func (m *SessionMetrics) incFileReqCount() {
	m.FileReqCount.Add(1)
}

func (m *SessionMetrics) incFileOKCount() {
	m.FileOKCount.Add(1)
}

func (m *SessionMetrics) incFileFailCount() {
	m.FileFailCount.Add(1)
}

func (m *SessionMetrics) incDeviceErrCount() {
	m.DeviceErrCount.Add(1)
}

func (m *SessionMetrics) incProtocolErrCount() {
	m.ProtocolErrCount.Add(1)
}
