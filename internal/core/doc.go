// Package core runs order imports on behalf of the HTTP server and the CLI.
//
// It sits between transport and the importer:
//
//   - [Service.RunImport] resolves a request path inside the import directory,
//     builds importer options from environment configuration, an optional
//     YAML profile and per-request overrides, and runs the import.
//   - [ImportLimiter] serializes runs (one slot by default) and never lets
//     two runs read the same file.
//   - [RunHistory] keeps recent results for inspection.
//   - [MapError] turns technical errors into coded user messages.
//   - [OpenStore] connects the configured order store.
//
// The importer itself lives in package ingest and has no knowledge of any
// of this.
package core
