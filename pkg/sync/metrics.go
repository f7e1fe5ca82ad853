package sync

import (
	"github.com/vnykmshr/goloop/pkg/metrics"
)

// instrument carries the optional Prometheus wiring for one primitive.
// A nil instrument disables collection entirely.
type instrument struct {
	reg  *metrics.Registry
	typ  string
	name string
}

func newInstrument(typ, name string, cfg metrics.Config) *instrument {
	reg := cfg.Resolve()
	if reg == nil {
		return nil
	}
	return &instrument{reg: reg, typ: typ, name: name}
}

func (in *instrument) waiters(n int) {
	if in == nil {
		return
	}
	in.reg.PrimitiveWaiters.WithLabelValues(in.typ, in.name).Set(float64(n))
}

func (in *instrument) wakeup() {
	if in == nil {
		return
	}
	in.reg.PrimitiveWakeups.WithLabelValues(in.typ, in.name).Inc()
}
