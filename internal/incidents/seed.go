package incidents

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Seed returns the built-in starting collection, newest first, with creation
// times relative to now.
func Seed(now time.Time) []Incident {
	now = now.UTC()
	updated := now.Add(-30 * time.Minute)
	return []Incident{
		{
			IncidentID:        "inc-1001",
			SiteID:            "site-1",
			AssetID:           "asset-1",
			AlarmID:           "alarm-100",
			Priority:          1,
			Occurrences:       2,
			CreatedAt:         now.Add(-12 * time.Minute),
			StateID:           StateOpen,
			EscalationLevelID: "esc-1",
			Lvl1SkillID:       "skill-elec",
		},
		{
			IncidentID:        "inc-1002",
			SiteID:            "site-2",
			AssetID:           "asset-3",
			AlarmID:           "alarm-310",
			Priority:          2,
			Occurrences:       1,
			CreatedAt:         now.Add(-42 * time.Minute),
			AssignedTo:        "user-2",
			StateID:           StateOpen,
			EscalationLevelID: "esc-1",
			Lvl1SkillID:       "skill-mech",
		},
		{
			IncidentID:        "inc-1003",
			SiteID:            "site-2",
			AssetID:           "asset-4",
			AlarmID:           "alarm-420",
			Priority:          3,
			Occurrences:       4,
			CreatedAt:         now.Add(-90 * time.Minute),
			AssignedTo:        "user-1",
			StateID:           StateObserved,
			EscalationLevelID: "esc-2",
			Lvl2SkillID:       "skill-scada",
		},
		{
			IncidentID:        "inc-1004",
			SiteID:            "site-1",
			AssetID:           "asset-2",
			AlarmID:           "alarm-220",
			Priority:          1,
			Occurrences:       3,
			CreatedAt:         now.Add(-180 * time.Minute),
			UpdatedAt:         &updated,
			AssignedTo:        "user-1",
			StateID:           StateClosed,
			EscalationLevelID: "esc-2",
			Lvl2SkillID:       "skill-ops",
		},
	}
}

type seedFile struct {
	Incidents []seedIncident `yaml:"incidents"`
}

type seedIncident struct {
	ID                string        `yaml:"id"`
	SiteID            string        `yaml:"site"`
	AssetID           string        `yaml:"asset"`
	AlarmID           string        `yaml:"alarm"`
	Priority          int           `yaml:"priority"`
	Occurrences       int           `yaml:"occurrences"`
	Age               time.Duration `yaml:"age"`
	AssignedTo        string        `yaml:"assigned_to"`
	State             State         `yaml:"state"`
	EscalationLevelID string        `yaml:"escalation"`
	Skills            []string      `yaml:"skills"`
}

// LoadSeedFile reads a starting collection from YAML. Creation times are
// given as an age relative to now; priority and occurrences default to 1 and
// state to OPEN. Every entry needs an escalation level.
func LoadSeedFile(path string, now time.Time) ([]Incident, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	out := make([]Incident, 0, len(sf.Incidents))
	seen := make(map[string]struct{}, len(sf.Incidents))
	for i, s := range sf.Incidents {
		if s.ID == "" {
			return nil, fmt.Errorf("seed incident %d: missing id", i)
		}
		if _, ok := seen[s.ID]; ok {
			return nil, fmt.Errorf("seed incident %q: duplicate id", s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Priority == 0 {
			s.Priority = 1
		}
		if s.Occurrences == 0 {
			s.Occurrences = 1
		}
		if s.State == "" {
			s.State = StateOpen
		}
		if !s.State.Valid() {
			return nil, fmt.Errorf("seed incident %q: unknown state %q", s.ID, s.State)
		}
		if s.Priority < 1 || s.Occurrences < 1 {
			return nil, fmt.Errorf("seed incident %q: priority and occurrences must be at least 1", s.ID)
		}
		if s.EscalationLevelID == "" {
			return nil, fmt.Errorf("seed incident %q: missing escalation", s.ID)
		}
		out = append(out, Incident{
			IncidentID:        s.ID,
			SiteID:            s.SiteID,
			AssetID:           s.AssetID,
			AlarmID:           s.AlarmID,
			Priority:          s.Priority,
			Occurrences:       s.Occurrences,
			CreatedAt:         now.UTC().Add(-s.Age),
			AssignedTo:        s.AssignedTo,
			StateID:           s.State,
			EscalationLevelID: s.EscalationLevelID,
			SkillIDs:          s.Skills,
		})
	}
	return out, nil
}
