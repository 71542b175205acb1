package incidents

import (
	"strings"
	"time"
)

type State string

const (
	StateOpen     State = "OPEN"
	StateObserved State = "OBSERVED"
	StateClosed   State = "CLOSED"
)

func (s State) Valid() bool {
	switch s {
	case StateOpen, StateObserved, StateClosed:
		return true
	}
	return false
}

// Reading is one point of the trend shown on the incident detail view.
type Reading struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Pressure    float64   `json:"pressure"`
}

type Incident struct {
	IncidentID        string     `json:"incidentId" validate:"required"`
	SiteID            string     `json:"siteId"`
	AssetID           string     `json:"assetId"`
	AlarmID           string     `json:"alarmId"`
	Priority          int        `json:"priority" validate:"gte=1"`
	Occurrences       int        `json:"occurrences" validate:"gte=1"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
	AssignedTo        string     `json:"assignedTo,omitempty"`
	StateID           State      `json:"stateId" validate:"required,oneof=OPEN OBSERVED CLOSED"`
	EscalationLevelID string     `json:"escalationLevelId" validate:"required"`
	Lvl1SkillID       string     `json:"lvl1SkillId,omitempty"`
	Lvl2SkillID       string     `json:"lvl2SkillId,omitempty"`
	SkillIDs          []string   `json:"skillIds,omitempty"`
	Readings          []Reading  `json:"readings,omitempty"`
}

// Assigned reports whether somebody owns the incident. A null, missing or
// blank assignee all mean unassigned.
func (i Incident) Assigned() bool {
	return strings.TrimSpace(i.AssignedTo) != ""
}

// Tags returns the incident's skill tags: the legacy level-1/level-2 fields
// followed by SkillIDs, without blanks or duplicates.
func (i Incident) Tags() []string {
	out := make([]string, 0, len(i.SkillIDs)+2)
	seen := make(map[string]struct{}, len(i.SkillIDs)+2)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(i.Lvl1SkillID)
	add(i.Lvl2SkillID)
	for _, id := range i.SkillIDs {
		add(id)
	}
	return out
}

func (i Incident) Clone() Incident {
	c := i
	if i.UpdatedAt != nil {
		t := *i.UpdatedAt
		c.UpdatedAt = &t
	}
	if i.SkillIDs != nil {
		c.SkillIDs = append([]string(nil), i.SkillIDs...)
	}
	if i.Readings != nil {
		c.Readings = append([]Reading(nil), i.Readings...)
	}
	return c
}

func cloneAll(list []Incident) []Incident {
	out := make([]Incident, len(list))
	for i := range list {
		out[i] = list[i].Clone()
	}
	return out
}
