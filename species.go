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

package multiroom

import "regexp"

// SpeciesLabel classifies a concentration-vector label by transport
// eligibility (§4.6).
type SpeciesLabel int

const (
	// Indoor species participate fully in inter-room transport.
	Indoor SpeciesLabel = iota
	// OutdoorSidecar species ("XOUT") feed indoor-from-outdoor flux for
	// their paired indoor species "X".
	OutdoorSidecar
	// Reserved species never transport: constants, rate coefficients,
	// surface concentrations, meta-variables.
	Reserved
)

func (l SpeciesLabel) String() string {
	switch l {
	case OutdoorSidecar:
		return "OUTDOOR_SIDECAR"
	case Reserved:
		return "RESERVED"
	default:
		return "INDOOR"
	}
}

// reservedPatterns are regex patterns matching reserved species names
// (§4.6): surface concentrations, photolysis rates, material yields,
// surface/volume ratios, deposition velocities, and reaction rates.
var reservedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`.+SURF$`),
	regexp.MustCompile(`^J\d+`),
	regexp.MustCompile(`^YIELD.+`),
	regexp.MustCompile(`^AV.+`),
	regexp.MustCompile(`^vd.+`),
	regexp.MustCompile(`^r\d+`),
}

// outdoorSidecarPattern matches outdoor-boundary sidecar species.
var outdoorSidecarPattern = regexp.MustCompile(`.*OUT$`)

// reservedExactNames is the literal reserved-species list carried over
// verbatim from the original implementation's mechanism-constant/
// rate-coefficient table (aperture_flow_calculations.py's reserved_list;
// see SPEC_FULL.md §4): meta-variables, physical constants, and the MCM
// mechanism's named rate and fall-off coefficients, none of which the
// regex patterns above catch.
var reservedExactNames = map[string]bool{
	"ACRate": true, "cosx": true, "secx": true, "M": true, "temp": true, "H2O": true,
	"PI": true, "AV": true, "adults": true, "children": true, "O2": true, "N2": true,
	"H2": true, "saero": true, "OH_reactivity": true, "OH_production": true, "KDI": true, "K8I": true,
	"FC9": true, "NC13": true, "NCD": true, "FC12": true, "KMT14": true, "CNO3": true,
	"KMT05": true, "F17": true, "K140": true, "KFPAN": true, "KPPNI": true, "K20": true,
	"KMT06": true, "KCH3O2": true, "K7I": true, "NC14": true, "NCPPN": true, "F3": true,
	"K10I": true, "KRD": true, "KR10": true, "NC1": true, "K3I": true, "NC17": true,
	"K12I": true, "NC4": true, "K14I": true, "K150": true, "K200": true, "F20": true,
	"KMT16": true, "K160": true, "F19": true, "KR7": true, "FC2": true, "F16": true,
	"N19": true, "KR3": true, "KMT20": true, "KHOCL": true, "F13": true, "KC0": true,
	"KMT04": true, "KRPPN": true, "F9": true, "K130": true, "KMT10": true, "KR19": true,
	"KMT02": true, "K4I": true, "KMT01": true, "FC14": true, "KR14": true, "NC7": true,
	"K170": true, "KBPPN": true, "K190": true, "NC3": true, "K15I": true, "KR15": true,
	"KCI": true, "FCPPN": true, "F15": true, "FC4": true, "KR12": true, "KMT17": true,
	"KR13": true, "K298CH3O2": true, "K80": true, "KMT19": true, "FC15": true, "K90": true,
	"K17I": true, "NC": true, "K20I": true, "F4": true, "K4": true, "N20": true,
	"KNO3AL": true, "KROSEC": true, "KNO3": true, "CCLNO3": true, "K70": true, "F8": true,
	"KRO2HO2": true, "FC20": true, "K14ISOM1": true, "KMT09": true, "FC16": true, "FPPN": true,
	"KROPRIM": true, "F12": true, "K19I": true, "NC8": true, "FCD": true, "KRO2NO3": true,
	"KMT18": true, "NC12": true, "KMT07": true, "FC3": true, "KRC": true, "F1": true,
	"FCC": true, "KR16": true, "CCLHO": true, "KMT13": true, "F10": true, "K100": true,
	"K40": true, "KCLNO3": true, "FC7": true, "F7": true, "FC": true, "NC10": true,
	"KR2": true, "FC17": true, "CN2O5": true, "KR4": true, "FC8": true, "KMT11": true,
	"KMT15": true, "KAPNO": true, "K1I": true, "KBPAN": true, "NC9": true, "FC19": true,
	"KMT03": true, "K3": true, "K16I": true, "KR20": true, "KPPN0": true, "F2": true,
	"K10": true, "FC1": true, "KR1": true, "KMT08": true, "KAPHO2": true, "KMT12": true,
	"F14": true, "KR17": true, "FC13": true, "KR8": true, "K2I": true, "K2": true,
	"FC10": true, "KDEC": true, "KD0": true, "NC16": true, "K13I": true, "KR9": true,
	"KN2O5": true, "K30": true, "K1": true, "K9I": true, "KRO2NO": true, "K120": true,
	"FD": true, "NC2": true, "NC15": true,
}

// ClassifyLabel classifies a single species label (§4.6). Exactly one of
// Indoor, OutdoorSidecar, Reserved applies.
func ClassifyLabel(name string) SpeciesLabel {
	if reservedExactNames[name] {
		return Reserved
	}
	for _, p := range reservedPatterns {
		if p.MatchString(name) {
			return Reserved
		}
	}
	if outdoorSidecarPattern.MatchString(name) {
		return OutdoorSidecar
	}
	return Indoor
}

// SpeciesClassifier partitions a fixed set of species labels once, at
// setup, into Indoor/OutdoorSidecar/Reserved index arrays so that runtime
// transport loops only ever walk the Indoor set (spec.md §9, "dynamic
// heterogeneous species tables").
type SpeciesClassifier struct {
	labels       []string
	classOf      []SpeciesLabel
	indoorIdx    []int
	sidecarIdx   []int
	reservedIdx  []int
	// sidecarToIndoor maps an OutdoorSidecar label's index (within
	// labels) to its paired Indoor label's index, or -1 if unpaired.
	sidecarToIndoor map[int]int
}

// NewSpeciesClassifier classifies every label in a fixed order and
// precomputes the outdoor-sidecar -> indoor index pairing.
func NewSpeciesClassifier(labels []string) *SpeciesClassifier {
	c := &SpeciesClassifier{
		labels:          append([]string(nil), labels...),
		classOf:         make([]SpeciesLabel, len(labels)),
		sidecarToIndoor: make(map[int]int),
	}
	indoorIndexOf := make(map[string]int, len(labels))
	for i, name := range labels {
		class := ClassifyLabel(name)
		c.classOf[i] = class
		switch class {
		case Indoor:
			c.indoorIdx = append(c.indoorIdx, i)
			indoorIndexOf[name] = i
		case OutdoorSidecar:
			c.sidecarIdx = append(c.sidecarIdx, i)
		case Reserved:
			c.reservedIdx = append(c.reservedIdx, i)
		}
	}
	for _, si := range c.sidecarIdx {
		paired := c.labels[si][:len(c.labels[si])-3] // strip trailing "OUT"
		if ii, ok := indoorIndexOf[paired]; ok {
			c.sidecarToIndoor[si] = ii
		} else {
			c.sidecarToIndoor[si] = -1
		}
	}
	return c
}

// Labels returns the classified label set, in the order first given.
func (c *SpeciesClassifier) Labels() []string { return c.labels }

// ClassOf returns the classification of the label at index i.
func (c *SpeciesClassifier) ClassOf(i int) SpeciesLabel { return c.classOf[i] }

// IndoorIndices returns the indices (into Labels) of Indoor species.
func (c *SpeciesClassifier) IndoorIndices() []int { return c.indoorIdx }

// OutdoorSidecarIndices returns the indices of OutdoorSidecar species.
func (c *SpeciesClassifier) OutdoorSidecarIndices() []int { return c.sidecarIdx }

// ReservedIndices returns the indices of Reserved species.
func (c *SpeciesClassifier) ReservedIndices() []int { return c.reservedIdx }

// PairedIndoorIndex returns the Indoor-species index paired with the
// OutdoorSidecar species at index sidecarIdx, or -1 if that sidecar has
// no paired Indoor label present in this classifier.
func (c *SpeciesClassifier) PairedIndoorIndex(sidecarIdx int) int {
	if idx, ok := c.sidecarToIndoor[sidecarIdx]; ok {
		return idx
	}
	return -1
}
