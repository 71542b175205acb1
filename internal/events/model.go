package events

import (
	"alarmhub/internal/catalog"
	"alarmhub/internal/incidents"
)

// ProtocolVersion is sent with every init event. Viewers compare it with
// their own constant and surface a notice on mismatch.
const ProtocolVersion = "1"

type Type string

const (
	TypeInit            Type = "init"
	TypeIncidentAdded   Type = "incidentAdded"
	TypeIncidentUpdated Type = "incidentUpdated"

	TypeAddIncident        Type = "addIncident"
	TypeUpdateIncident     Type = "updateIncident"
	TypeSetReadingInterval Type = "setReadingInterval"
)

// Message is anything that travels over the wire.
type Message interface {
	Type() Type
}

// ServerEvent is a hub → viewer message: *Init, *IncidentAdded or
// *IncidentUpdated.
type ServerEvent interface {
	Message
	serverEvent()
}

// ClientRequest is a viewer → hub message: *AddIncident, *UpdateIncident or
// *SetReadingInterval.
type ClientRequest interface {
	Message
	clientRequest()
}

type Init struct {
	Incidents       []incidents.Incident
	Catalog         catalog.Catalog
	ProtocolVersion string
}

type IncidentAdded struct {
	Incident incidents.Incident
}

type IncidentUpdated struct {
	Incident incidents.Incident
}

type AddIncident struct {
	Incident incidents.Incident
}

type UpdateIncident struct {
	Incident incidents.Incident
}

type SetReadingInterval struct {
	IntervalMs int64
}

func (*Init) Type() Type               { return TypeInit }
func (*IncidentAdded) Type() Type      { return TypeIncidentAdded }
func (*IncidentUpdated) Type() Type    { return TypeIncidentUpdated }
func (*AddIncident) Type() Type        { return TypeAddIncident }
func (*UpdateIncident) Type() Type     { return TypeUpdateIncident }
func (*SetReadingInterval) Type() Type { return TypeSetReadingInterval }

func (*Init) serverEvent()            {}
func (*IncidentAdded) serverEvent()   {}
func (*IncidentUpdated) serverEvent() {}

func (*AddIncident) clientRequest()        {}
func (*UpdateIncident) clientRequest()     {}
func (*SetReadingInterval) clientRequest() {}
