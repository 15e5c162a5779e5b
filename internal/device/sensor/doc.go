// Package sensor implements device.Source.
//
// Serial reads a line protocol emitted by a microcontroller bridge wired to
// the temperature/humidity and CO2/VOC sensors, for example:
//
//	T=23.4 H=41.0 CO2=812 VOC=95
//
// Temperature and humidity outside the sensor range are reported as sentinels.
// CO2 and VOC keep their last plausible values. Simulated produces readings
// in-process for development and tests.
package sensor
