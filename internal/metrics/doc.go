// Package metrics exposes the appliance's Prometheus metrics.
//
// Every Metrics value owns its registry, so tests and multiple daemons in one
// process do not collide. All methods are safe on a nil receiver, which turns
// instrumentation off.
package metrics
