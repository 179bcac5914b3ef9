package metrics

// WebMetrics provides observability for the HTTP surface: CDN health
// probing and the websocket tunnel. Pass nil to disable collection.
type WebMetrics interface {
	// SetHealthyCDNs updates the count of mirrors that passed the last
	// health check round.
	SetHealthyCDNs(count int)

	// RecordCDNProbe records one health check attempt against a mirror.
	RecordCDNProbe(healthy bool)

	// RecordTunnelOpened increments the active tunnel gauge and the total
	// tunnels counter when a websocket client attaches.
	RecordTunnelOpened()

	// RecordTunnelClosed decrements the active tunnel gauge.
	RecordTunnelClosed()
}
