// Package transport declares the links supervised by the connectivity loop:
// the network link and the MQTT messenger.
package transport
