// Package config defines the device settings shared by air-alarm and
// air-alarm-ctl and provides helpers to load, validate and save them in YAML.
//
// Validate fills in defaults for every optional field, so a minimal file only
// needs the broker URL.
package config
