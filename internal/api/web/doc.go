// Package web exposes the device over HTTP: health, status, Prometheus
// metrics and the same control commands the broker accepts.
package web
