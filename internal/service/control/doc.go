// Package control implements the air-alarm-ctl commands.
//
// Every command dials the device control API, attaches the local actor for the
// device's audit log and prints the response as JSON.
package control
