package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alarmhub/internal/catalog"
	"alarmhub/internal/incidents"
)

const validIncident = `{"incidentId":"inc-2001","siteId":"site-1","assetId":"asset-1","alarmId":"alarm-100",
"priority":1,"occurrences":1,"createdAt":"2026-10-17T09:00:00Z","assignedTo":null,"stateId":"OPEN",
"escalationLevelId":"esc-1","lvl1SkillId":"skill-elec"}`

func TestDecodeClientAddIncident(t *testing.T) {
	req, err := DecodeClient([]byte(`{"type":"addIncident","incident":` + validIncident + `}`))
	require.NoError(t, err)

	add, ok := req.(*AddIncident)
	require.True(t, ok)
	assert.Equal(t, "inc-2001", add.Incident.IncidentID)
	assert.False(t, add.Incident.Assigned())
	assert.Equal(t, incidents.StateOpen, add.Incident.StateID)
	assert.Equal(t, time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC), add.Incident.CreatedAt)
}

func TestDecodeClientSetReadingInterval(t *testing.T) {
	req, err := DecodeClient([]byte(`{"type":"setReadingInterval","intervalMs":1500}`))
	require.NoError(t, err)
	assert.Equal(t, &SetReadingInterval{IntervalMs: 1500}, req)
}

func TestDecodeClientRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"type":`,
		"array":             `[1,2]`,
		"no type":           `{"incident":` + validIncident + `}`,
		"unknown type":      `{"type":"deleteIncident","incident":` + validIncident + `}`,
		"server event":      `{"type":"incidentAdded","incident":` + validIncident + `}`,
		"missing incident":  `{"type":"addIncident"}`,
		"null incident":     `{"type":"updateIncident","incident":null}`,
		"missing id":        `{"type":"addIncident","incident":{"priority":1,"occurrences":1,"stateId":"OPEN","escalationLevelId":"esc-1"}}`,
		"bad state":         `{"type":"addIncident","incident":{"incidentId":"x","priority":1,"occurrences":1,"stateId":"PAUSED","escalationLevelId":"esc-1"}}`,
		"zero priority":     `{"type":"addIncident","incident":{"incidentId":"x","priority":0,"occurrences":1,"stateId":"OPEN","escalationLevelId":"esc-1"}}`,
		"no escalation":     `{"type":"addIncident","incident":{"incidentId":"x","priority":1,"occurrences":1,"stateId":"OPEN"}}`,
		"wrong field type":  `{"type":"addIncident","incident":{"incidentId":7}}`,
		"missing interval":  `{"type":"setReadingInterval"}`,
		"negative interval": `{"type":"setReadingInterval","intervalMs":-5}`,
		"fractional":        `{"type":"setReadingInterval","intervalMs":1.5}`,
	}
	for name, raw := range cases {
		_, err := DecodeClient([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformed, name)
	}
}

func TestDecodeServerInitNormalizesCatalog(t *testing.T) {
	raw := `{"type":"init","incidents":[` + validIncident + `],"catalog":{"sites":[{"id":"site-1","name":"North"}]},"protocolVersion":"1"}`
	ev, err := DecodeServer([]byte(raw))
	require.NoError(t, err)

	init, ok := ev.(*Init)
	require.True(t, ok)
	require.Len(t, init.Incidents, 1)
	assert.Equal(t, "1", init.ProtocolVersion)
	assert.Equal(t, "North", init.Catalog.SiteName("site-1"))
	assert.NotNil(t, init.Catalog.Skills)
	assert.NotNil(t, init.Catalog.Alarms)
}

func TestDecodeServerInitWithoutFields(t *testing.T) {
	ev, err := DecodeServer([]byte(`{"type":"init"}`))
	require.NoError(t, err)

	init := ev.(*Init)
	assert.NotNil(t, init.Incidents)
	assert.Empty(t, init.Incidents)
	assert.NotNil(t, init.Catalog.EscalationLevels)
	assert.Empty(t, init.ProtocolVersion)
}

func TestDecodeServerRejectsClientRequests(t *testing.T) {
	_, err := DecodeServer([]byte(`{"type":"addIncident","incident":` + validIncident + `}`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeServer([]byte(`{"type":"init","incidents":[{"incidentId":""}]}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeRoundTrip(t *testing.T) {
	inc := incidents.Seed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))[3]

	cases := []struct {
		msg    Message
		server bool
	}{
		{&Init{Incidents: []incidents.Incident{inc}, Catalog: catalog.Default(), ProtocolVersion: ProtocolVersion}, true},
		{&IncidentAdded{Incident: inc}, true},
		{&IncidentUpdated{Incident: inc}, true},
		{&AddIncident{Incident: inc}, false},
		{&UpdateIncident{Incident: inc}, false},
		{&SetReadingInterval{IntervalMs: 2000}, false},
	}
	for _, tc := range cases {
		raw, err := Encode(tc.msg)
		require.NoError(t, err, tc.msg.Type())

		var env map[string]any
		require.NoError(t, json.Unmarshal(raw, &env))
		assert.Equal(t, string(tc.msg.Type()), env["type"])

		var got Message
		if tc.server {
			got, err = DecodeServer(raw)
		} else {
			got, err = DecodeClient(raw)
		}
		require.NoError(t, err, tc.msg.Type())
		assert.Equal(t, tc.msg, got)
	}
}

func TestEncodeInitEmptyCollections(t *testing.T) {
	raw, err := Encode(&Init{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"init","incidents":[],"catalog":{"escalationLevels":[],"skills":[],"sites":[],"assets":[],"alarms":[]}}`, string(raw))
}

func TestEncodeOmitsUnassigned(t *testing.T) {
	raw, err := Encode(&IncidentAdded{Incident: incidents.Incident{IncidentID: "a", StateID: incidents.StateOpen}})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "assignedTo")
	assert.NotContains(t, string(raw), "updatedAt")
}
