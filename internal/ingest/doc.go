// Package ingest accepts client-submitted log entries, routes them to a
// severity-tagged logrus sink and fans them out to live subscribers.
// Entries are never persisted.
package ingest
