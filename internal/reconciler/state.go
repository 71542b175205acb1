// Package reconciler keeps a viewer-side replica of the hub's incident
// collection in step with the event stream.
package reconciler

import (
	"fmt"

	"alarmhub/internal/catalog"
	"alarmhub/internal/events"
	"alarmhub/internal/incidents"
)

// State is everything a viewer renders from. Values are treated as
// immutable; Apply always returns fresh slices.
type State struct {
	Incidents []incidents.Incident
	Catalog   catalog.Catalog
	// Advisory is non-empty while the hub speaks another protocol version.
	Advisory string
}

func EmptyState() State {
	return State{
		Incidents: []incidents.Incident{},
		Catalog:   catalog.Catalog{}.Normalize(),
	}
}

// Apply folds one server event into s.
func Apply(s State, ev events.ServerEvent) State {
	switch ev := ev.(type) {
	case *events.Init:
		out := State{
			Incidents: append([]incidents.Incident{}, ev.Incidents...),
			Catalog:   ev.Catalog.Normalize(),
		}
		if v := ev.ProtocolVersion; v != "" && v != events.ProtocolVersion {
			out.Advisory = fmt.Sprintf("protocol mismatch: expected %s, got %s", events.ProtocolVersion, v)
		}
		return out
	case *events.IncidentAdded:
		s.Incidents = incidents.Prepend(s.Incidents, ev.Incident)
	case *events.IncidentUpdated:
		s.Incidents = incidents.Merge(s.Incidents, ev.Incident)
	}
	return s
}
