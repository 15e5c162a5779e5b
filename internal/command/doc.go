// Package command decodes inbound remote commands.
//
// Payloads arrive either as raw JSON from the broker or as structpb.Struct from
// the local gRPC API; both paths share the same validation. Threshold updates
// are validated field by field and bad fields are dropped without aborting the
// rest of the update.
package command
