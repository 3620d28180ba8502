// Package metrics holds the Prometheus registry that every request and job
// reports into. A Registry is constructed explicitly and injected into the
// HTTP layer; nothing here registers with the global default registerer.
package metrics
