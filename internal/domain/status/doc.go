// Package status defines the device status snapshot shared by the published
// sensor payload, the local control API and the HTTP status endpoint.
package status
