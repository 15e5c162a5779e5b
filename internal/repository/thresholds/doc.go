// Package thresholds persists remotely updated alarm thresholds.
//
// The file uses the same JSON object as the MQTT thresholds topic, so a saved
// file can be replayed to a broker as is. Alarm state is never persisted.
package thresholds
