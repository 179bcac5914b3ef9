package metrics

// ContentMetrics provides observability for the TCP content adapter and
// the request handlers behind it.
//
// Implementations collect connection lifecycle counts, per-type packet
// counts, and download volume. This interface is optional - pass nil to
// disable metrics collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics := prometheus.NewContentMetrics()
//	adapter := content.New(config, app, metrics)
//
//	// Without metrics (pass nil for zero overhead)
//	adapter := content.New(config, app, nil)
type ContentMetrics interface {
	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed increments the force-closed connections counter.
	// Called when connections are forcibly closed after the shutdown timeout.
	RecordConnectionForceClosed()

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordPacket records a decoded client packet by its type name
	// (e.g. "CLIENT_INFO_LIST", "CLIENT_CONTENT").
	RecordPacket(packetType string)

	// RecordInvalidPacket records a packet that failed framing or decoding
	// and caused the connection to be dropped.
	//
	// Parameters:
	//   - reason: short failure class (e.g. "size", "type", "data")
	RecordInvalidPacket(reason string)

	// RecordDownload records one completed content transfer.
	//
	// Parameters:
	//   - contentType: type folder name (e.g. "newgrf", "base-graphics")
	//   - bytes: archive payload bytes sent to the client
	RecordDownload(contentType string, bytes uint64)

	// RecordClientVersion counts a distinct client by the game version it
	// announced. Callers deduplicate per peer address before recording.
	RecordClientVersion(version string)
}
