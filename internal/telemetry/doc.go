// Package telemetry holds the in-process request telemetry pipeline: a bounded
// ring buffer of request samples and the read-only views computed from it
// (rolling system metrics, hourly buckets and threshold alerts).
//
// All compute operations take an explicit "now" so results are deterministic
// for a given buffer state. None of them mutate shared state.
package telemetry
