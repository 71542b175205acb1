package catalog

import (
	"errors"
	"fmt"
)

var ErrDuplicateKey = errors.New("duplicate catalog key")

type EscalationLevel struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type Skill struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type Site struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type Asset struct {
	ID          string `json:"id" yaml:"id"`
	SiteID      string `json:"siteId" yaml:"siteId"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	Model       string `json:"model" yaml:"model"`
	RegionName  string `json:"regionName" yaml:"regionName"`
}

type Alarm struct {
	AlarmID     string `json:"alarmId" yaml:"alarmId"`
	Code        string `json:"code" yaml:"code"`
	Description string `json:"description" yaml:"description"`
	LegacyID    string `json:"legacyId,omitempty" yaml:"legacyId,omitempty"`
}

// Catalog is the read-only reference data served alongside incidents.
// Every table is independent; incidents point into them by id but nothing
// enforces that the target exists.
type Catalog struct {
	EscalationLevels []EscalationLevel `json:"escalationLevels" yaml:"escalationLevels"`
	Skills           []Skill           `json:"skills" yaml:"skills"`
	Sites            []Site            `json:"sites" yaml:"sites"`
	Assets           []Asset           `json:"assets" yaml:"assets"`
	Alarms           []Alarm           `json:"alarms" yaml:"alarms"`
}

// Normalize returns c with every missing table replaced by an empty one.
func (c Catalog) Normalize() Catalog {
	if c.EscalationLevels == nil {
		c.EscalationLevels = []EscalationLevel{}
	}
	if c.Skills == nil {
		c.Skills = []Skill{}
	}
	if c.Sites == nil {
		c.Sites = []Site{}
	}
	if c.Assets == nil {
		c.Assets = []Asset{}
	}
	if c.Alarms == nil {
		c.Alarms = []Alarm{}
	}
	return c
}

// Clone returns a deep copy so callers can hand the catalog out by value.
func (c Catalog) Clone() Catalog {
	return Catalog{
		EscalationLevels: append([]EscalationLevel{}, c.EscalationLevels...),
		Skills:           append([]Skill{}, c.Skills...),
		Sites:            append([]Site{}, c.Sites...),
		Assets:           append([]Asset{}, c.Assets...),
		Alarms:           append([]Alarm{}, c.Alarms...),
	}
}

// Validate checks that keys are unique within each table.
func (c Catalog) Validate() error {
	tables := []struct {
		name string
		ids  []string
	}{
		{"escalationLevels", ids(c.EscalationLevels, func(v EscalationLevel) string { return v.ID })},
		{"skills", ids(c.Skills, func(v Skill) string { return v.ID })},
		{"sites", ids(c.Sites, func(v Site) string { return v.ID })},
		{"assets", ids(c.Assets, func(v Asset) string { return v.ID })},
		{"alarms", ids(c.Alarms, func(v Alarm) string { return v.AlarmID })},
	}
	for _, t := range tables {
		seen := make(map[string]struct{}, len(t.ids))
		for _, id := range t.ids {
			if _, ok := seen[id]; ok {
				return fmt.Errorf("%w: %s %q", ErrDuplicateKey, t.name, id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

func ids[T any](rows []T, key func(T) string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, key(r))
	}
	return out
}

func (c Catalog) Site(id string) (Site, bool) {
	for _, s := range c.Sites {
		if s.ID == id {
			return s, true
		}
	}
	return Site{}, false
}

func (c Catalog) Asset(id string) (Asset, bool) {
	for _, a := range c.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}

func (c Catalog) Alarm(id string) (Alarm, bool) {
	for _, a := range c.Alarms {
		if a.AlarmID == id {
			return a, true
		}
	}
	return Alarm{}, false
}

func (c Catalog) EscalationLevel(id string) (EscalationLevel, bool) {
	for _, l := range c.EscalationLevels {
		if l.ID == id {
			return l, true
		}
	}
	return EscalationLevel{}, false
}

func (c Catalog) Skill(id string) (Skill, bool) {
	for _, s := range c.Skills {
		if s.ID == id {
			return s, true
		}
	}
	return Skill{}, false
}

// Label helpers substitute a placeholder for dangling references. A missing
// record only degrades display, it is never an error.

func (c Catalog) SiteName(id string) string {
	if s, ok := c.Site(id); ok {
		return s.Name
	}
	return "Unknown site"
}

func (c Catalog) AssetName(id string) string {
	if a, ok := c.Asset(id); ok {
		return a.DisplayName
	}
	return "Unknown asset"
}

func (c Catalog) AlarmCode(id string) string {
	if a, ok := c.Alarm(id); ok {
		return a.Code
	}
	return "Unknown alarm"
}

func (c Catalog) EscalationName(id string) string {
	if l, ok := c.EscalationLevel(id); ok {
		return l.Name
	}
	return "Unknown level"
}

func (c Catalog) SkillName(id string) string {
	if s, ok := c.Skill(id); ok {
		return s.Name
	}
	return "Unknown skill"
}
