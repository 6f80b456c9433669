package nflog

import "sync/atomic"

// Stats are the counters kept by a Queue. They can be read concurrently with
// the receive loop.
type Stats struct {
	Datagrams          atomic.Uint64
	Bytes              atomic.Uint64
	Records            atomic.Uint64
	HandlerFailures    atomic.Uint64
	ProtocolViolations atomic.Uint64
	BatchErrors        atomic.Uint64
}

type StatsSnapshot struct {
	Datagrams          uint64 `json:"datagrams"`
	Bytes              uint64 `json:"bytes"`
	Records            uint64 `json:"records"`
	HandlerFailures    uint64 `json:"handlerFailures"`
	ProtocolViolations uint64 `json:"protocolViolations"`
	BatchErrors        uint64 `json:"batchErrors"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Datagrams:          s.Datagrams.Load(),
		Bytes:              s.Bytes.Load(),
		Records:            s.Records.Load(),
		HandlerFailures:    s.HandlerFailures.Load(),
		ProtocolViolations: s.ProtocolViolations.Load(),
		BatchErrors:        s.BatchErrors.Load(),
	}
}
