// Package air holds the data types shared by the alarm core: sensor readings,
// threshold sets, per-field alarm flags and the error taxonomy used to classify
// sensor, transport, decoding and validation failures.
package air
