package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"alarmhub/internal/catalog"
	"alarmhub/internal/incidents"
)

// ErrMalformed wraps every decode failure: bad JSON, an unknown type, or a
// payload that does not pass validation. Both ends drop such messages.
var ErrMalformed = errors.New("malformed message")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type envelope struct {
	Type Type `json:"type"`
}

type initWire struct {
	Type            Type                 `json:"type"`
	Incidents       []incidents.Incident `json:"incidents" validate:"dive"`
	Catalog         *catalog.Catalog     `json:"catalog,omitempty"`
	ProtocolVersion string               `json:"protocolVersion,omitempty"`
}

type incidentWire struct {
	Type     Type                `json:"type"`
	Incident *incidents.Incident `json:"incident" validate:"required"`
}

type intervalWire struct {
	Type       Type   `json:"type"`
	IntervalMs *int64 `json:"intervalMs" validate:"required,gte=0"`
}

// Encode renders m as a single JSON object with its "type" tag.
func Encode(m Message) ([]byte, error) {
	switch m := m.(type) {
	case *Init:
		c := m.Catalog.Normalize()
		list := m.Incidents
		if list == nil {
			list = []incidents.Incident{}
		}
		return json.Marshal(initWire{Type: TypeInit, Incidents: list, Catalog: &c, ProtocolVersion: m.ProtocolVersion})
	case *IncidentAdded:
		return json.Marshal(incidentWire{Type: TypeIncidentAdded, Incident: &m.Incident})
	case *IncidentUpdated:
		return json.Marshal(incidentWire{Type: TypeIncidentUpdated, Incident: &m.Incident})
	case *AddIncident:
		return json.Marshal(incidentWire{Type: TypeAddIncident, Incident: &m.Incident})
	case *UpdateIncident:
		return json.Marshal(incidentWire{Type: TypeUpdateIncident, Incident: &m.Incident})
	case *SetReadingInterval:
		ms := m.IntervalMs
		return json.Marshal(intervalWire{Type: TypeSetReadingInterval, IntervalMs: &ms})
	}
	return nil, fmt.Errorf("encode: unsupported message %T", m)
}

// DecodeServer parses a hub → viewer frame.
func DecodeServer(raw []byte) (ServerEvent, error) {
	typ, err := peekType(raw)
	if err != nil {
		return nil, err
	}
	switch typ {
	case TypeInit:
		var w initWire
		if err := decodeInto(raw, &w); err != nil {
			return nil, err
		}
		ev := &Init{Incidents: w.Incidents, ProtocolVersion: w.ProtocolVersion}
		if ev.Incidents == nil {
			ev.Incidents = []incidents.Incident{}
		}
		if w.Catalog != nil {
			ev.Catalog = *w.Catalog
		}
		ev.Catalog = ev.Catalog.Normalize()
		return ev, nil
	case TypeIncidentAdded:
		inc, err := decodeIncident(raw)
		if err != nil {
			return nil, err
		}
		return &IncidentAdded{Incident: inc}, nil
	case TypeIncidentUpdated:
		inc, err := decodeIncident(raw)
		if err != nil {
			return nil, err
		}
		return &IncidentUpdated{Incident: inc}, nil
	}
	return nil, fmt.Errorf("%w: unknown server event %q", ErrMalformed, typ)
}

// DecodeClient parses a viewer → hub frame.
func DecodeClient(raw []byte) (ClientRequest, error) {
	typ, err := peekType(raw)
	if err != nil {
		return nil, err
	}
	switch typ {
	case TypeAddIncident:
		inc, err := decodeIncident(raw)
		if err != nil {
			return nil, err
		}
		return &AddIncident{Incident: inc}, nil
	case TypeUpdateIncident:
		inc, err := decodeIncident(raw)
		if err != nil {
			return nil, err
		}
		return &UpdateIncident{Incident: inc}, nil
	case TypeSetReadingInterval:
		var w intervalWire
		if err := decodeInto(raw, &w); err != nil {
			return nil, err
		}
		return &SetReadingInterval{IntervalMs: *w.IntervalMs}, nil
	}
	return nil, fmt.Errorf("%w: unknown client request %q", ErrMalformed, typ)
}

// ValidateIncident runs the boundary checks applied to every incident that
// arrives over the wire.
func ValidateIncident(inc incidents.Incident) error {
	if err := validate.Struct(inc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func peekType(raw []byte) (Type, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return env.Type, nil
}

func decodeIncident(raw []byte) (incidents.Incident, error) {
	var w incidentWire
	if err := decodeInto(raw, &w); err != nil {
		return incidents.Incident{}, err
	}
	return *w.Incident, nil
}

func decodeInto(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
