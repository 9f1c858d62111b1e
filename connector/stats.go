package connector

// ConnectionStats represents database connection pool statistics.
type ConnectionStats struct {
	OpenConnections int
	InUse           int
	Idle            int
	// Opened and Evicted count physical connections over the pool lifetime.
	Opened             uint64
	Evicted            uint64
	PreparedStatements int
}
