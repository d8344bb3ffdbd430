package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	totalDurationMs uint64
	ledgerDebits    uint64
	ledgerCredits   uint64
	payrollRuns     uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordLedgerDebit() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.ledgerDebits, 1)
}

func (c *Collector) RecordLedgerCredit() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.ledgerCredits, 1)
}

func (c *Collector) RecordPayrollRun() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.payrollRuns, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":      total,
		"errorsTotal":        errs,
		"avgDurationMs":      avg,
		"ledgerDebitsTotal":  atomic.LoadUint64(&c.ledgerDebits),
		"ledgerCreditsTotal": atomic.LoadUint64(&c.ledgerCredits),
		"payrollRunsTotal":   atomic.LoadUint64(&c.payrollRuns),
	}
}
