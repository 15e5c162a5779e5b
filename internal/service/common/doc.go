// Package common holds helpers shared by several services.
//
// It provides a gRPC client for the device control API with per-call timeouts
// and a helper that detects the current system actor (hostname/username) sent
// along with every call for the device's audit log.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
