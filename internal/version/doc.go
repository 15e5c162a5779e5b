// Package version exposes build metadata for air-alarm and air-alarm-ctl.
//
// Version, Commit and BuildTime are injected via ldflags.
package version
