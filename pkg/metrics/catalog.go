package metrics

import "time"

// CatalogMetrics provides observability for catalog reloads and the size
// of the live snapshot. Pass nil to disable collection.
type CatalogMetrics interface {
	// RecordReload records one reload attempt with its total duration and
	// outcome. Failed reloads leave the previous snapshot in place.
	RecordReload(duration time.Duration, err error)

	// SetEntries updates the entry gauges for one content type after a
	// successful reload.
	//
	// Parameters:
	//   - contentType: type folder name (e.g. "newgrf")
	//   - active: entries offered in listings
	//   - archived: superseded versions kept for md5 lookups
	SetEntries(contentType string, active, archived int)
}
