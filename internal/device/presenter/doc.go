// Package presenter implements device.Presenter as a line-oriented console.
//
// The console mirrors the appliance display: one line per quantity with its
// threshold, an alarm marker, and a status line for the network and MQTT
// links. Only changed lines are redrawn. The backlight switches off after an
// idle timeout; while it is off nothing is drawn and the next wake redraws
// everything.
package presenter
