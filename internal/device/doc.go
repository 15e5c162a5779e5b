// Package device declares the peripheral capabilities consumed and driven by
// the monitor: a sensor source, an actuator sink and a presenter.
//
// Implementations live in the sensor, actuator and presenter subpackages.
package device
