package core

import "sync/atomic"

// Telemetry holds the two monotone counters named in the external
// interface: occurrences of a 16-byte split and of a split that additionally
// crosses a cacheline. Both are plain atomic counters — a lost increment
// under racing faults is an acceptable loss, and neither needs a lock the
// signal handler couldn't safely take anyway.
type Telemetry struct {
	Split16Byte          atomic.Int64
	SplitAcrossCacheline atomic.Int64
}

// Snapshot returns the current counter values without resetting them.
type Snapshot struct {
	Split16Byte          int64 `json:"split_16byte"`
	SplitAcrossCacheline int64 `json:"split_lock_across_cacheline"`
}

func (t *Telemetry) Snapshot() Snapshot {
	return Snapshot{
		Split16Byte:          t.Split16Byte.Load(),
		SplitAcrossCacheline: t.SplitAcrossCacheline.Load(),
	}
}
