// Package thriftdb is a convenience layer over a cloud data-lake stack:
// object storage, a managed metadata catalog, a schema crawler, a SQL
// query engine, and a log-delivery pipeline. A Database pairs one
// storage bucket with one catalog namespace; Tables map storage
// prefixes to catalog entries; Streams ingest records into prefixes
// through a managed delivery pipeline.
//
// The package implements no protocol of its own. Every operation
// threads identifiers between managed services, polls asynchronous jobs
// until they settle, and applies an exists-or-create pattern so
// provisioning is idempotent.
package thriftdb
