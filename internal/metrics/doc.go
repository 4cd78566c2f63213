// Package metrics holds the Prometheus instruments for pipeline runs.
//
// Metrics register on the default registry via promauto. tacreview is a
// short-lived CLI, so nothing is served over HTTP; WriteTextfile dumps the
// registry at the end of a run for the node_exporter textfile collector when
// metrics.textfile is configured.
package metrics
