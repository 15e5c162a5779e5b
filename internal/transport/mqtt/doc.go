// Package mqtt implements transport.Messenger on the Eclipse Paho client.
//
// Automatic reconnects are disabled: the connectivity supervisor decides when
// to retry. Every successful Connect re-subscribes the inbound topics. Inbound
// messages are buffered in a bounded queue drained by PollInbound; when the
// queue is full new messages are dropped.
package mqtt
