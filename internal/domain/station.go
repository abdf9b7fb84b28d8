package domain

// Represents a delivery/pickup location of a schema.
// Name is the station identity and is unique within a schema.
type Station struct {
	Name          string
	Demand        float64
	DepotDistance float64
	X             float64
	Y             float64
}

// Directed travel cost between two stations, referenced by name.
// A reverse edge exists only if the schema carries its own entry for it.
type TransportCost struct {
	From string
	To   string
	Cost float64
}

// Vehicle fleet available to serve a schema.
type FleetParameters struct {
	Quantity int
	Capacity float64
}
