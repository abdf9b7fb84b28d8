package dto

import (
	"errors"
	"fmt"

	"vrp-solution-service/internal/domain"
)

// Pointer fields are required on the wire; a nil pointer means the field was absent.

type StationRequest struct {
	Name          *string  `json:"name"`
	Demand        *float64 `json:"demand"`
	DepotDistance *float64 `json:"depot_distance"`
	X             *float64 `json:"x"`
	Y             *float64 `json:"y"`
}

type TransportCostRequest struct {
	FromStation *StationRequest `json:"from_station"`
	ToStation   *StationRequest `json:"to_station"`
	Cost        *float64        `json:"cost"`
}

type FleetRequest struct {
	Quantity *int     `json:"quantity"`
	Capacity *float64 `json:"capacity"`
}

type SchemaRequest struct {
	UserID              *int64                 `json:"user_id"`
	ID                  *int64                 `json:"id"`
	Workstations        []StationRequest       `json:"workstations"`
	TransportationCosts []TransportCostRequest `json:"transportation_costs"`
	AMRParameters       *FleetRequest          `json:"amr_parameters"`
}

func (s StationRequest) toDomain() (domain.Station, error) {
	switch {
	case s.Name == nil:
		return domain.Station{}, errors.New("name is required")
	case s.Demand == nil:
		return domain.Station{}, fmt.Errorf("station %q: demand is required", *s.Name)
	case s.DepotDistance == nil:
		return domain.Station{}, fmt.Errorf("station %q: depot_distance is required", *s.Name)
	case s.X == nil || s.Y == nil:
		return domain.Station{}, fmt.Errorf("station %q: x and y are required", *s.Name)
	}

	return domain.Station{
		Name:          *s.Name,
		Demand:        *s.Demand,
		DepotDistance: *s.DepotDistance,
		X:             *s.X,
		Y:             *s.Y,
	}, nil
}

// ToDomain checks field presence and converts the request. It does not check
// that transport costs reference known stations.
func (r SchemaRequest) ToDomain() (domain.Schema, error) {
	if r.ID == nil {
		return domain.Schema{}, errors.New("id is required")
	}
	if r.UserID == nil {
		return domain.Schema{}, errors.New("user_id is required")
	}

	out := domain.Schema{
		UserID:         *r.UserID,
		ID:             *r.ID,
		Stations:       make([]domain.Station, 0, len(r.Workstations)),
		TransportCosts: make([]domain.TransportCost, 0, len(r.TransportationCosts)),
	}

	for i, ws := range r.Workstations {
		st, err := ws.toDomain()
		if err != nil {
			return domain.Schema{}, fmt.Errorf("workstations[%d]: %w", i, err)
		}
		out.Stations = append(out.Stations, st)
	}

	for i, tc := range r.TransportationCosts {
		if tc.FromStation == nil || tc.ToStation == nil {
			return domain.Schema{}, fmt.Errorf("transportation_costs[%d]: from_station and to_station are required", i)
		}
		if tc.Cost == nil {
			return domain.Schema{}, fmt.Errorf("transportation_costs[%d]: cost is required", i)
		}
		from, err := tc.FromStation.toDomain()
		if err != nil {
			return domain.Schema{}, fmt.Errorf("transportation_costs[%d].from_station: %w", i, err)
		}
		to, err := tc.ToStation.toDomain()
		if err != nil {
			return domain.Schema{}, fmt.Errorf("transportation_costs[%d].to_station: %w", i, err)
		}
		out.TransportCosts = append(out.TransportCosts, domain.TransportCost{
			From: from.Name,
			To:   to.Name,
			Cost: *tc.Cost,
		})
	}

	if p := r.AMRParameters; p != nil {
		if p.Quantity == nil || p.Capacity == nil {
			return domain.Schema{}, errors.New("amr_parameters: quantity and capacity are required")
		}
		out.Fleet = domain.FleetParameters{Quantity: *p.Quantity, Capacity: *p.Capacity}
	}

	return out, nil
}
