/*
Copyright © 2025 Denis Khalturin
All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are met:

1. Redistributions of source code must retain the above copyright notice,
   this list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright notice,
   this list of conditions and the following disclaimer in the documentation
   and/or other materials provided with the distribution.

3. Neither the name of the copyright holder nor the names of its contributors
   may be used to endorse or promote products derived from this software
   without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
POSSIBILITY OF SUCH DAMAGE.
*/
// prettier-ignore-end
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PinEventItem is a composite key for pin-store events, identifying a
// (tool_id, domain) pair and the TOFU outcome observed for it.
type PinEventItem struct {
	ToolID string
	Domain string
	Status string
}

// Collector is a Prometheus collector that tracks SchemaPin verification
// outcomes. It counts verification failures by error_code and pin-store
// events by (tool_id, domain, status), both cleared after each scrape since
// they represent counts since the last collection rather than a gauge of
// current state.
type Collector struct {
	errors sync.Map
	pins   sync.Map
}

// NewCollector creates and registers a new Collector instance with
// Prometheus. Panics if registration with Prometheus fails.
func NewCollector() *Collector {
	c := new(Collector)
	prometheus.MustRegister(c)
	return c
}

// Describe implements prometheus.Collector interface.
// Returns an empty description as metrics are dynamically generated during collection.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector interface.
// Gathers and sends all SchemaPin metrics to Prometheus:
// - schemapin_verification_errors: verification failures per error_code (counter, cleared after collection)
// - schemapin_pin_events: pin-store events per tool_id/domain/status (counter, cleared after collection)
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.errors.Range(func(k, v any) bool {
		code := k.(string)
		val := v.(float64)

		ch <- prometheus.MustNewConstMetric(
			prometheus.NewDesc(
				"schemapin_verification_errors",
				"Number of verification failures per error_code",
				[]string{"error_code"},
				nil,
			),
			prometheus.CounterValue,
			val,
			code,
		)

		c.ClearError(code)
		return true
	})

	c.pins.Range(func(k, v any) bool {
		item := k.(PinEventItem)
		val := v.(float64)

		ch <- prometheus.MustNewConstMetric(
			prometheus.NewDesc(
				"schemapin_pin_events",
				"Number of pin-store events per tool_id/domain/status",
				[]string{"tool_id", "domain", "status"},
				nil,
			),
			prometheus.CounterValue,
			val,
			item.ToolID,
			item.Domain,
			item.Status,
		)

		c.ClearPinEvent(item.ToolID, item.Domain, item.Status)
		return true
	})
}

// IncError increments the verification-failure counter for errorCode.
func (c *Collector) IncError(errorCode string) {
	val, _ := c.errors.LoadOrStore(errorCode, 0.0)
	c.errors.Store(errorCode, val.(float64)+1)
}

// ClearError resets the verification-failure counter for errorCode to zero.
// Automatically called after metrics collection to prevent error accumulation.
func (c *Collector) ClearError(errorCode string) {
	c.errors.Store(errorCode, 0.0)
}

// IncPinEvent increments the pin-event counter for (toolID, domain, status).
func (c *Collector) IncPinEvent(toolID, domain, status string) {
	item := PinEventItem{ToolID: toolID, Domain: domain, Status: status}
	val, _ := c.pins.LoadOrStore(item, 0.0)
	c.pins.Store(item, val.(float64)+1)
}

// ClearPinEvent resets the pin-event counter for (toolID, domain, status) to zero.
func (c *Collector) ClearPinEvent(toolID, domain, status string) {
	c.pins.Store(PinEventItem{ToolID: toolID, Domain: domain, Status: status}, 0.0)
}
