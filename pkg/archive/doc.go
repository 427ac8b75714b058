// ABOUTME: Package documentation for the archive client
// ABOUTME: Describes search, recording URLs and the browser view model

// Package archive talks to the relay server's broadcast archive.
//
// Client wraps the HTTP endpoints (search and recording download) behind
// a circuit breaker so a dead archive does not stall the UI. Browser keeps
// the current filter, sort and result list, and is refreshed by the
// session controller when a broadcast ends.
//
//	client, _ := archive.NewClient(archive.Config{BaseURL: "http://relay:5000"})
//	records, err := client.Search(ctx, "pagi", archive.SortDateDesc)
package archive
