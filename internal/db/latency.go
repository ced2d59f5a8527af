package db

// QueryLatencyStats returns per-query latency samples for ledger queries,
// slowest p95 first.
func (c *Database) QueryLatencyStats() []queryLatencyStats {
	if c == nil || c.tracker == nil {
		return nil
	}
	return c.tracker.snapshot()
}
