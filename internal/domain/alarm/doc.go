// Package alarm contains the two-tier alarm escalation state machine.
//
// Engine evaluates one Reading per tick against a Thresholds set and returns a
// Decision describing buzzer, servo and display side effects. The engine never
// drives hardware itself; callers apply the Decision. Engine is not safe for
// concurrent use, callers serialize access.
package alarm
