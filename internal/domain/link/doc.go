// Package link implements the connectivity supervisor: a deadline-driven state
// machine that decides when the network and messaging transports should be
// (re)connected and when inbound messages may be drained.
//
// The supervisor performs no I/O. Callers ask Poll what to do next, execute the
// action against the real transport and report the outcome with ReportResult.
package link
