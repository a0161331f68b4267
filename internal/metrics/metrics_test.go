package metrics

import "testing"

func TestCountersSatisfyDownstreamInterfaces(t *testing.T) {
	c := NewCounters()
	c.IncMessagePoolExhausted()
	c.IncMailboxBindFailures()
	c.IncDataLinkRetransmits()
	c.IncDataLinkNacks()
	c.IncSafetyStops()

	if got := c.MessagePoolExhausted.Value(); got != 1 {
		t.Errorf("MessagePoolExhausted = %d, want 1", got)
	}
	if got := c.SafetyStops.Value(); got != 1 {
		t.Errorf("SafetyStops = %d, want 1", got)
	}
}
