// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/transitwatch/internal/models"
)

// SeedDemoData loads a small city with two routes, three stops and three
// vehicles so a fresh instance has something to track. It is idempotent.
func (db *DB) SeedDemoData(ctx context.Context) error {
	city := &models.City{ID: "nyc", Name: "New York", Country: "US", Timezone: "America/New_York"}
	if err := db.UpsertCity(ctx, city); err != nil {
		return err
	}

	routes := []models.Route{
		{ID: "45A", CityID: "nyc", RouteNumber: "45A", RouteName: "Downtown Express", IsActive: true},
		{ID: "12B", CityID: "nyc", RouteNumber: "12B", RouteName: "Crosstown Local", IsActive: true},
	}
	for i := range routes {
		if err := db.UpsertRoute(ctx, &routes[i]); err != nil {
			return err
		}
	}

	stops := []models.Stop{
		{ID: "stop_001", CityID: "nyc", StopName: "Central Station", StopCode: "CS1", Latitude: 40.7527, Longitude: -73.9772, IsAccessible: true},
		{ID: "stop_002", CityID: "nyc", StopName: "Union Square", StopCode: "US2", Latitude: 40.7359, Longitude: -73.9911, IsAccessible: true},
		{ID: "stop_003", CityID: "nyc", StopName: "Battery Park", StopCode: "BP3", Latitude: 40.7033, Longitude: -74.0170},
	}
	for i := range stops {
		if err := db.UpsertStop(ctx, &stops[i]); err != nil {
			return err
		}
	}

	vehicles := []models.Vehicle{
		{ID: "V1", CityID: "nyc", VehicleNumber: "BUS-001", VehicleType: "bus", Capacity: 60},
		{ID: "V2", CityID: "nyc", VehicleNumber: "BUS-002", VehicleType: "bus", Capacity: 60},
		{ID: "V3", CityID: "nyc", VehicleNumber: "BUS-003", VehicleType: "bus", Capacity: 40},
	}
	for i := range vehicles {
		if err := db.UpsertVehicle(ctx, &vehicles[i]); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	for vehicleID, routeID := range map[string]string{"V1": "45A", "V2": "12B"} {
		current, err := db.LookupActiveAssignment(ctx, vehicleID)
		if err != nil {
			return err
		}
		if current != nil && current.RouteID == routeID {
			continue
		}
		if err := db.AssignVehicle(ctx, vehicleID, routeID, now); err != nil {
			return fmt.Errorf("seed assignment %s: %w", vehicleID, err)
		}
	}
	return nil
}
