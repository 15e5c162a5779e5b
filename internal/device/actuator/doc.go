// Package actuator implements device.Sink on top of an Output backend.
//
// The driver owns the mute flag and the continuous buzzer state. Forced output
// (critical alarms) ignores mute; a short pulse is skipped while the buzzer is
// continuously on or muted. The servo wave swings between two angles and
// returns to its rest position.
package actuator
