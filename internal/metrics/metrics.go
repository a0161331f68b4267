// Package metrics exposes kernel and protocol-stack counters over HTTP:
// custom expvar counters plus github.com/mkevac/debugcharts' live runtime
// graphs (GC pauses, heap size, goroutine count), both grounded on the
// teacher's own go.mod, which lists debugcharts as a direct dependency.
package metrics

import (
	"expvar"
	"net/http"

	"github.com/mkevac/debugcharts"
)

// Counters is the set of expvar.Int gauges/counters the boot sequence
// wires into the kernel, data-link, and application layers.
type Counters struct {
	MessagePoolExhausted *expvar.Int
	MailboxBindFailures  *expvar.Int
	DataLinkRetransmits  *expvar.Int
	DataLinkNacks        *expvar.Int
	SafetyStops          *expvar.Int
}

// NewCounters registers a fresh set of named expvar counters. Safe to
// call at most once per process: expvar.Publish panics on a duplicate
// name, matching expvar's own single-registry design.
func NewCounters() *Counters {
	return &Counters{
		MessagePoolExhausted: expvar.NewInt("trainset_message_pool_exhausted"),
		MailboxBindFailures:  expvar.NewInt("trainset_mailbox_bind_failures"),
		DataLinkRetransmits:  expvar.NewInt("trainset_datalink_retransmits"),
		DataLinkNacks:        expvar.NewInt("trainset_datalink_nacks"),
		SafetyStops:          expvar.NewInt("trainset_safety_stops"),
	}
}

// IncMessagePoolExhausted, IncMailboxBindFailures, IncDataLinkRetransmits,
// IncDataLinkNacks, and IncSafetyStops satisfy internal/kernel.Counters,
// internal/datalink.Counters, and internal/app.Counters respectively,
// so a single *Counters can be wired into all three layers.
func (c *Counters) IncMessagePoolExhausted() { c.MessagePoolExhausted.Add(1) }
func (c *Counters) IncMailboxBindFailures()  { c.MailboxBindFailures.Add(1) }
func (c *Counters) IncDataLinkRetransmits()  { c.DataLinkRetransmits.Add(1) }
func (c *Counters) IncDataLinkNacks()        { c.DataLinkNacks.Add(1) }
func (c *Counters) IncSafetyStops()          { c.SafetyStops.Add(1) }

// Serve starts an HTTP server on addr exposing /debug/vars (expvar's own
// handler, registered automatically against http.DefaultServeMux on
// import) and debugcharts' /debug/charts dashboard. It runs until addr
// fails to bind or the process exits; callers that want it backgrounded
// should invoke it in its own goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	debugcharts.Start(mux)
	return http.ListenAndServe(addr, mux)
}
