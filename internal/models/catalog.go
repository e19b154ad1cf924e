package models

import (
	"fmt"
	"strings"
)

// CityUnit lists the zones of one City unit and the cells inside each zone.
type CityUnit struct {
	Zones      []string
	ZoneToCell map[string][]string
}

// CityCatalog is the known City unit → zone → cell taxonomy.
var CityCatalog = map[string]CityUnit{
	"PP-110": {
		Zones: []string{"Zone-01", "Zone-02", "ZONE-03", "Zone-04", "Zone-05", "Road Wing"},
		ZoneToCell: map[string][]string{
			"Zone-01":   {"CC-136", "CC-137", "CC-144", "CC-145"},
			"Zone-02":   {"CC-134", "CC-143", "CC-146", "CC-147"},
			"ZONE-03":   {"CC-133", "CC-135", "CC-148", "CC-149"},
			"Zone-04":   {"CC-006", "CC-138", "CC-139", "CC-140"},
			"Zone-05":   {"CC-141", "CC-142", "CC-152", "CC-150"},
			"Road Wing": {"RW-1"},
		},
	},
	"PP-111": {
		Zones: []string{"Zone-06", "Zone-07", "Night", "Zone-08", "Zone-09", "Zone-10", "Zone-11", "Road Wing"},
		ZoneToCell: map[string][]string{
			"Zone-06":   {"CC-151", "CC-153", "CC-154", "CC-156"},
			"Zone-07":   {"CC-001A", "CC-001B", "CC-003", "CC-157"},
			"Night":     {"CC-001 (Night)"},
			"Zone-08":   {"CC-002", "CC-020", "CC-021", "CC-029"},
			"Zone-09":   {"CC-024", "CC-025", "CC-026", "CC-027"},
			"Zone-10":   {"CC-022", "CC-030", "CC-051", "CC-052"},
			"Zone-11":   {"CC-121", "CC-122", "CC-123", "CC-124", "CC-155"},
			"Road Wing": {"RW-02", "RW-03"},
		},
	},
	"PP-112": {
		Zones: []string{"Zone-12", "Zone-13", "Zone-14", "Zone-15", "Road Wing"},
		ZoneToCell: map[string][]string{
			"Zone-12":   {"CC-126", "CC-130", "CC-131", "CC-132"},
			"Zone-13":   {"CC-125", "CC-127", "CC-128", "CC-129"},
			"Zone-14":   {"CC-117", "CC-118", "CC-119", "CC-120"},
			"Zone-15":   {"CC-112", "CC-113", "CC-114", "CC-115", "CC-116"},
			"Road Wing": {"RW-4", "RW-5"},
		},
	},
	"PP-113": {
		Zones: []string{"Zone-16", "Zone-17", "Zone-18", "Zone-19", "Zone-20", "Zone-21", "Road Wing"},
		ZoneToCell: map[string][]string{
			"Zone-16":   {"CC-108", "CC-109", "CC-110", "CC-111"},
			"Zone-17":   {"CC-104", "CC-105", "CC-106", "CC-107"},
			"Zone-18":   {"CC-101", "CC-102", "CC-103"},
			"Zone-19":   {"CC-095", "CC-096", "CC-097", "CC-100", "CC-098"},
			"Zone-20":   {"CC-079", "CC-092", "CC-093", "CC-094"},
			"Zone-21":   {"CC-072", "CC-073", "CC-074", "CC-078"},
			"Road Wing": {"RW-6", "RW-7"},
		},
	},
	"PP-114": {
		Zones: []string{"Zone-22", "Zone-23", "Zone-24", "Zone-25", "Zone-26", "Zone-27", "Road Wing"},
		ZoneToCell: map[string][]string{
			"Zone-22":   {"CC-075", "CC-076", "CC-077", "CC-081"},
			"Zone-23":   {"CC-082", "CC-083", "CC-087", "CC-088"},
			"Zone-24":   {"CC-080", "CC-089", "CC-090", "CC-091"},
			"Zone-25":   {"CC-099", "CC-084", "CC-085", "CC-086"},
			"Zone-26":   {"CC-066", "CC-067", "CC-068", "CC-069"},
			"Zone-27":   {"CC-053", "CC-054", "CC-070", "CC-071"},
			"Road Wing": {"RW-8", "RW-9"},
		},
	},
	"PP-115": {
		Zones: []string{"Zone-28", "Zone-29", "Zone-30", "Zone-31", "Road Wing"},
		ZoneToCell: map[string][]string{
			"Zone-28":   {"CC-058", "CC-063", "CC-064", "CC-065"},
			"Zone-29":   {"CC-055", "CC-056", "CC-057", "CC-060"},
			"Zone-30":   {"CC-046", "CC-059", "CC-061", "CC-062"},
			"Zone-31":   {"CC-047", "CC-048", "CC-049", "CC-050"},
			"Road Wing": {"RW-10", "RW-11"},
		},
	},
	"PP-116": {
		Zones: []string{"Zone-32", "Zone-33", "Zone-35", "Zone-34", "Road Wing"},
		ZoneToCell: map[string][]string{
			"Zone-32":   {"CC-040", "CC-041", "CC-042", "CC-043"},
			"Zone-33":   {"CC-038", "CC-039", "CC-044", "CC-045"},
			"Zone-35":   {"CC-028", "CC-031", "CC-032", "CC-033"},
			"Zone-34":   {"CC-034", "CC-035", "CC-036", "CC-037"},
			"Road Wing": {"RW-12", "RW-13A", "RW-13B"},
		},
	},
	"PP-117": {
		Zones: []string{"Zone-36", "Zone-37", "Zone-38", "Zone-39", "Road Wing"},
		ZoneToCell: map[string][]string{
			"Zone-36":   {"CC-017", "CC-018", "CC-019", "CC-023"},
			"Zone-37":   {"CC-013", "CC-014", "CC-015", "CC-016"},
			"Zone-38":   {"CC-008", "CC-009", "CC-011", "CC-012"},
			"Zone-39":   {"CC-004", "CC-005", "CC-007", "CC-010"},
			"Road Wing": {"RW-14", "RW-15", "RW-16"},
		},
	},
}

// SadarUnits lists SZ-01 through SZ-11.
func SadarUnits() []string {
	units := make([]string, 0, 11)
	for i := 1; i <= 11; i++ {
		units = append(units, fmt.Sprintf("SZ-%02d", i))
	}
	return units
}

// SadarCells lists UC-131 through UC-189.
func SadarCells() []string {
	cells := make([]string, 0, 59)
	for i := 131; i < 190; i++ {
		cells = append(cells, fmt.Sprintf("UC-%03d", i))
	}
	return cells
}

// CheckPlacement verifies a placement against the catalog. Zones are only
// checked for City since the Sadar zones are free text.
func CheckPlacement(area, unit, zone, cell string) error {
	switch area {
	case AreaCity:
		u, ok := CityCatalog[unit]
		if !ok {
			return fmt.Errorf("unit %s is not in the City catalog", unit)
		}
		if zone != "" {
			cells, ok := u.ZoneToCell[zone]
			if !ok {
				return fmt.Errorf("zone %s does not belong to %s", zone, unit)
			}
			if !containsFold(cells, cell) {
				return fmt.Errorf("cell %s does not belong to %s/%s", cell, unit, zone)
			}
			return nil
		}
		for _, cells := range u.ZoneToCell {
			if containsFold(cells, cell) {
				return nil
			}
		}
		return fmt.Errorf("cell %s does not belong to %s", cell, unit)
	case AreaSadar:
		if !containsFold(SadarUnits(), unit) {
			return fmt.Errorf("unit %s is not a Sadar unit", unit)
		}
		if !containsFold(SadarCells(), cell) {
			return fmt.Errorf("cell %s is not a Sadar cell", cell)
		}
		return nil
	default:
		return fmt.Errorf("unknown area %s", area)
	}
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
