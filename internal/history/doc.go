// Package history keeps a local journal of WiFi operations performed on robots.
//
// Each configure, disconnect or key upload outcome is stored as an Event in a
// BoltDB file, keyed by a big-endian sequence number so events iterate in the
// order they happened.
package history
