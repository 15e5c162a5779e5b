// Package netlink implements transport.NetworkLink by watching the host's
// network interfaces. The link is up when the configured interface (or, when
// none is configured, any non-loopback interface) is up and has an address.
package netlink
