/*
Copyright © 2026 the mbmflex authors.
This file is part of mbmflex.

mbmflex is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

mbmflex is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with mbmflex.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package config loads a building document (§6 External Interfaces) — the
// rooms, apertures, wind series, global settings, and initial-condition
// handles that drive a multiroom.Scheduler — from any structured format
// viper supports (JSON today; YAML and TOML come along for free). This
// package is outside the simulation core: it is the one place environment
// variables are expanded and raw documents are turned into multiroom
// types, the way inmaputil/config.go builds InMAP's VarGridConfig from a
// cfg *viper.Viper.
package config

import (
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"

	"github.com/rs028/mbmflex"
)

// Document is the parsed building document: every input §6 lists,
// resolved into the core package's types.
type Document struct {
	Graph          *multiroom.Graph
	Wind           *multiroom.WindState
	Settings       multiroom.GlobalSettings
	InitialHandles map[string]string // room ID -> initial-conditions text handle
}

// Load reads a building document from path (JSON, YAML, or TOML,
// auto-detected by viper from the file extension) and resolves it into a
// Document.
func Load(path string) (*Document, error) {
	cfg := viper.New()
	cfg.SetConfigFile(path)
	if err := cfg.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("mbmflex/config: reading %s: %w", path, err)
	}
	return FromViper(cfg)
}

// FromViper resolves an already-loaded viper configuration into a
// Document. Light and glass types, side names, aperture destinations
// that are not room IDs, city, date, and initial-condition handles are
// environment-expanded the way inmaputil.checkOutputVars expands
// OutputVariables; room IDs (including aperture origins) are not.
func FromViper(cfg *viper.Viper) (*Document, error) {
	rooms, err := parseRooms(cfg)
	if err != nil {
		return nil, err
	}
	apertures, err := parseApertures(cfg, rooms)
	if err != nil {
		return nil, err
	}
	graph, err := multiroom.NewGraph(rooms, apertures)
	if err != nil {
		return nil, err
	}
	wind, err := parseWind(cfg)
	if err != nil {
		return nil, err
	}
	settings, err := parseGlobalSettings(cfg)
	if err != nil {
		return nil, err
	}
	initial := parseInitialConditions(cfg)

	return &Document{
		Graph: graph, Wind: wind, Settings: settings, InitialHandles: initial,
	}, nil
}

func expand(s string) string { return os.ExpandEnv(s) }

func parseRooms(cfg *viper.Viper) ([]*multiroom.Room, error) {
	roomIDs := sortedKeys(cfg.GetStringMap("rooms"))
	rooms := make([]*multiroom.Room, 0, len(roomIDs))
	for _, id := range roomIDs {
		prefix := "rooms." + id + "."
		comp, err := parseComposition(cfg, prefix+"composition.")
		if err != nil {
			return nil, fmt.Errorf("mbmflex/config: room %q: %w", id, err)
		}

		room := &multiroom.Room{
			ID:            id,
			VolumeM3:      cfg.GetFloat64(prefix + "volume_in_m3"),
			SurfaceAreaM2: cfg.GetFloat64(prefix + "surf_area_in_m2"),
			Composition:   comp,
			LightType:     expand(cfg.GetString(prefix + "light_type")),
			GlassType:     expand(cfg.GetString(prefix + "glass_type")),
		}

		var err2 error
		room.Temperature, err2 = parseLinearSeries(cfg, prefix+"temp_in_kelvin")
		if err2 != nil {
			return nil, fmt.Errorf("mbmflex/config: room %q temperature: %w", id, err2)
		}
		room.RelHumidity, err2 = parseLinearSeries(cfg, prefix+"rh_in_percent")
		if err2 != nil {
			return nil, fmt.Errorf("mbmflex/config: room %q humidity: %w", id, err2)
		}
		room.AirChangeRate, err2 = parseLinearSeries(cfg, prefix+"airchange_in_per_second")
		if err2 != nil {
			return nil, fmt.Errorf("mbmflex/config: room %q air-change rate: %w", id, err2)
		}
		room.LightSwitch, err2 = parseStepSeries(cfg, prefix+"light_switch")
		if err2 != nil {
			return nil, fmt.Errorf("mbmflex/config: room %q light switch: %w", id, err2)
		}
		room.AdultCount, err2 = parseStepSeries(cfg, prefix+"n_adults")
		if err2 != nil {
			return nil, fmt.Errorf("mbmflex/config: room %q adult count: %w", id, err2)
		}
		room.ChildCount, err2 = parseStepSeries(cfg, prefix+"n_children")
		if err2 != nil {
			return nil, fmt.Errorf("mbmflex/config: room %q child count: %w", id, err2)
		}

		room.Emissions, err2 = parseEmissions(cfg, prefix+"emissions.")
		if err2 != nil {
			return nil, fmt.Errorf("mbmflex/config: room %q emissions: %w", id, err2)
		}

		rooms = append(rooms, room)
	}
	return rooms, nil
}

// parseComposition reads the eleven material percentages, deriving
// `other` when it's absent so the composition sums to 100 (§6).
func parseComposition(cfg *viper.Viper, prefix string) (multiroom.Composition, error) {
	c := multiroom.Composition{
		Soft:     cfg.GetFloat64(prefix + "soft"),
		Paint:    cfg.GetFloat64(prefix + "paint"),
		Wood:     cfg.GetFloat64(prefix + "wood"),
		Metal:    cfg.GetFloat64(prefix + "metal"),
		Concrete: cfg.GetFloat64(prefix + "concrete"),
		Paper:    cfg.GetFloat64(prefix + "paper"),
		Lino:     cfg.GetFloat64(prefix + "lino"),
		Plastic:  cfg.GetFloat64(prefix + "plastic"),
		Glass:    cfg.GetFloat64(prefix + "glass"),
		Human:    cfg.GetFloat64(prefix + "human"),
	}
	if !cfg.IsSet(prefix + "other") {
		c.Other = 100 - (c.Soft + c.Paint + c.Wood + c.Metal + c.Concrete + c.Paper + c.Lino + c.Plastic + c.Glass + c.Human)
	} else {
		c.Other = cfg.GetFloat64(prefix + "other")
	}
	return c, nil
}

func parseLinearSeries(cfg *viper.Viper, key string) (*multiroom.TimeSeries, error) {
	return parseSeries(cfg, key, multiroom.Linear)
}

func parseStepSeries(cfg *viper.Viper, key string) (*multiroom.TimeSeries, error) {
	return parseSeries(cfg, key, multiroom.Step)
}

// parseSeries reads a [[time, value], ...] list into a TimeSeries. Missing
// keys yield a constant-zero single-sample series so optional room fields
// don't force every document to specify every time series.
func parseSeries(cfg *viper.Viper, key string, kind multiroom.SeriesKind) (*multiroom.TimeSeries, error) {
	raw := cfg.Get(key)
	if raw == nil {
		return multiroom.NewTimeSeries(kind, []float64{0}, []float64{0})
	}
	pairs, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: expected a list of [time, value] pairs", key)
	}
	times := make([]float64, 0, len(pairs))
	values := make([]float64, 0, len(pairs))
	for i, p := range pairs {
		pair, ok := p.([]interface{})
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%s[%d]: expected a [time, value] pair", key, i)
		}
		t, err := cast.ToFloat64E(pair[0])
		if err != nil {
			return nil, fmt.Errorf("%s[%d].time: %w", key, i, err)
		}
		v, err := cast.ToFloat64E(pair[1])
		if err != nil {
			return nil, fmt.Errorf("%s[%d].value: %w", key, i, err)
		}
		times = append(times, t)
		values = append(values, v)
	}
	return multiroom.NewTimeSeries(kind, times, values)
}

// parseEmissions reads a species -> [[t0, t1, value], ...] map into
// bracketed emission schedules.
func parseEmissions(cfg *viper.Viper, prefix string) (map[string]*multiroom.TimeBracketedValue, error) {
	speciesMap := cfg.GetStringMap(prefix[:len(prefix)-1])
	if len(speciesMap) == 0 {
		return nil, nil
	}
	out := make(map[string]*multiroom.TimeBracketedValue, len(speciesMap))
	for species := range speciesMap {
		raw := cfg.Get(prefix + species)
		triples, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s%s: expected a list of [t0, t1, value] triples", prefix, species)
		}
		intervals := make([]multiroom.Interval, 0, len(triples))
		for i, t := range triples {
			triple, ok := t.([]interface{})
			if !ok || len(triple) != 3 {
				return nil, fmt.Errorf("%s%s[%d]: expected a [t0, t1, value] triple", prefix, species, i)
			}
			t0, err := cast.ToFloat64E(triple[0])
			if err != nil {
				return nil, err
			}
			t1, err := cast.ToFloat64E(triple[1])
			if err != nil {
				return nil, err
			}
			v, err := cast.ToFloat64E(triple[2])
			if err != nil {
				return nil, err
			}
			intervals = append(intervals, multiroom.Interval{T0: t0, T1: t1, V: v})
		}
		bracketed, err := multiroom.NewTimeBracketedValue(intervals)
		if err != nil {
			return nil, fmt.Errorf("%s%s: %w", prefix, species, err)
		}
		out[species] = bracketed
	}
	return out, nil
}

func parseApertures(cfg *viper.Viper, rooms []*multiroom.Room) ([]*multiroom.Aperture, error) {
	indexOf := make(map[string]int, len(rooms))
	for i, r := range rooms {
		indexOf[r.ID] = i
	}

	raw := cfg.Get("apertures")
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("mbmflex/config: apertures: expected a list")
	}
	apertures := make([]*multiroom.Aperture, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("mbmflex/config: apertures[%d]: expected an object", i)
		}
		originID, _ := entry["origin"].(string)
		originIdx, ok := indexOf[originID]
		if !ok {
			return nil, fmt.Errorf("%w: apertures[%d] origin %q unknown", multiroom.ErrBadAperture, i, originID)
		}
		destStr, _ := entry["destination"].(string)
		area, err := cast.ToFloat64E(entry["area"])
		if err != nil {
			return nil, fmt.Errorf("mbmflex/config: apertures[%d].area: %w", i, err)
		}
		sideOfRoomStr, _ := entry["side_of_room_1"].(string)
		sideOfRoom, err := multiroom.ParseSide(expand(sideOfRoomStr))
		if err != nil {
			return nil, fmt.Errorf("mbmflex/config: apertures[%d]: %w", i, err)
		}

		a := &multiroom.Aperture{
			OriginRoomIndex: originIdx,
			DestRoomIndex:   -1,
			AreaM2:          area,
			SideOfRoom:      sideOfRoom,
		}
		if destIdx, ok := indexOf[destStr]; ok {
			a.DestRoomIndex = destIdx
		} else {
			side, err := multiroom.ParseSide(expand(destStr))
			if err != nil {
				return nil, fmt.Errorf("mbmflex/config: apertures[%d] destination %q: %w", i, destStr, err)
			}
			a.DestSide = side
		}
		apertures = append(apertures, a)
	}
	return apertures, nil
}

func parseWind(cfg *viper.Viper) (*multiroom.WindState, error) {
	raw := cfg.Get("wind")
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("mbmflex/config: wind: expected a list of (time, speed, direction) triples")
	}
	times := make([]float64, 0, len(list))
	speeds := make([]float64, 0, len(list))
	directions := make([]float64, 0, len(list))
	inRadians := cfg.GetBool("wind_in_radians")
	for i, item := range list {
		triple, ok := item.([]interface{})
		if !ok || len(triple) != 3 {
			return nil, fmt.Errorf("mbmflex/config: wind[%d]: expected a [time, speed, direction] triple", i)
		}
		t, err := cast.ToFloat64E(triple[0])
		if err != nil {
			return nil, err
		}
		speed, err := cast.ToFloat64E(triple[1])
		if err != nil {
			return nil, err
		}
		direction, err := cast.ToFloat64E(triple[2])
		if err != nil {
			return nil, err
		}
		if !inRadians {
			direction = direction * (3.141592653589793 / 180)
		}
		times = append(times, t)
		speeds = append(speeds, speed)
		directions = append(directions, direction)
	}
	speedSeries, err := multiroom.NewTimeSeries(multiroom.Linear, times, speeds)
	if err != nil {
		return nil, fmt.Errorf("mbmflex/config: wind speed: %w", err)
	}
	directionSeries, err := multiroom.NewTimeSeries(multiroom.Linear, times, directions)
	if err != nil {
		return nil, fmt.Errorf("mbmflex/config: wind direction: %w", err)
	}
	return &multiroom.WindState{
		Speed:               speedSeries,
		Direction:           directionSeries,
		BuildingOrientation: cfg.GetFloat64("global_settings.building_direction_in_radians"),
	}, nil
}

func parseGlobalSettings(cfg *viper.Viper) (multiroom.GlobalSettings, error) {
	physics := multiroom.PhysicsConstants{
		AirDensity:            cfg.GetFloat64("global_settings.air_density"),
		UpwindPressureCoeff:   cfg.GetFloat64("global_settings.upwind_pressure_coefficient"),
		DownwindPressureCoeff: cfg.GetFloat64("global_settings.downwind_pressure_coefficient"),
		BuildingOrientation:   cfg.GetFloat64("global_settings.building_direction_in_radians"),
	}
	if err := physics.Validate(); err != nil {
		return multiroom.GlobalSettings{}, err
	}
	settings := multiroom.GlobalSettings{
		DtChem:   cfg.GetFloat64("global_settings.dt"),
		Diurnal:  cfg.GetBool("global_settings.diurnal"),
		City:     expand(cfg.GetString("global_settings.city")),
		Date:     expand(cfg.GetString("global_settings.date")),
		Latitude: cfg.GetFloat64("global_settings.lat"),
		Physics:  physics,
	}
	return settings, nil
}

func parseInitialConditions(cfg *viper.Viper) map[string]string {
	raw := cfg.GetStringMapString("initial_conditions")
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = expand(v)
	}
	return out
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic order matters: Room.Index is assigned from this
	// order, and it must be stable across runs of the same document.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
