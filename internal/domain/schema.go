package domain

// Schema is the routing problem description a solution is computed for.
// ID is the cache key for solutions. A Schema is treated as immutable
// for the lifetime of a request.
type Schema struct {
	UserID         int64
	ID             int64
	Stations       []Station
	TransportCosts []TransportCost
	Fleet          FleetParameters
}
