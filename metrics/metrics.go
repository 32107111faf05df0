// Package metrics records checkout counters and latencies.
package metrics

import "time"

// Label keys understood by the recorders.
const (
	LabelChain = "chain"
	LabelToken = "token"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
