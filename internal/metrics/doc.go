// Package metrics records build metrics behind a small Recorder interface.
//
// Components default to NoopRecorder so no nil checks are needed. The CLI
// swaps in a PrometheusRecorder bound to a registry when metrics are wanted:
// `build --metrics-file` writes the registry in the text exposition format,
// and `serve` exposes it on /metrics.
package metrics
