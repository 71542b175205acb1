package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default is the built-in reference data set the hub starts with when no
// catalog file or database is configured.
func Default() Catalog {
	return Catalog{
		EscalationLevels: []EscalationLevel{
			{ID: "esc-1", Name: "Level 1"},
			{ID: "esc-2", Name: "Level 2"},
		},
		Skills: []Skill{
			{ID: "skill-elec", Name: "Electrical"},
			{ID: "skill-mech", Name: "Cooling"},
			{ID: "skill-scada", Name: "Controls"},
			{ID: "skill-ops", Name: "Facilities"},
		},
		Sites: []Site{
			{ID: "site-1", Name: "North Campus Plant"},
			{ID: "site-2", Name: "Harbor District Facility"},
		},
		Assets: []Asset{
			{ID: "asset-1", SiteID: "site-1", DisplayName: "Chiller CH-11", Model: "Trane RTAC 250", RegionName: "Mechanical Room 3"},
			{ID: "asset-2", SiteID: "site-1", DisplayName: "AHU AH-19", Model: "Carrier 39HQ", RegionName: "Roof Zone 2"},
			{ID: "asset-3", SiteID: "site-2", DisplayName: "Boiler BL-03", Model: "Cleaver-Brooks CB-500", RegionName: "Basement Plant 5"},
			{ID: "asset-4", SiteID: "site-2", DisplayName: "Cooling Tower CT-21", Model: "BAC FXV", RegionName: "South Yard 1"},
		},
		Alarms: []Alarm{
			{AlarmID: "alarm-100", Code: "HV-100", Description: "High condenser pressure", LegacyID: "100"},
			{AlarmID: "alarm-220", Code: "HV-220", Description: "Supply air temp deviation", LegacyID: "220"},
			{AlarmID: "alarm-310", Code: "HV-310", Description: "Boiler flame failure", LegacyID: "310"},
			{AlarmID: "alarm-420", Code: "HV-420", Description: "BAS comms loss", LegacyID: "420"},
		},
	}
}

// LoadFile reads a catalog from a YAML document shaped like the wire form:
//
//	escalationLevels: [{id: esc-1, name: Level 1}]
//	skills: [...]
//	sites: [...]
//	assets: [...]
//	alarms: [...]
func LoadFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}
