package hub

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alarmhub/internal/catalog"
	"alarmhub/internal/events"
	"alarmhub/internal/incidents"
	"alarmhub/internal/metrics"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newTestHub(t *testing.T, queue int) (*Hub, *metrics.Hub) {
	t.Helper()
	m := metrics.NewHub(prometheus.NewRegistry())
	h := New(
		incidents.NewStore(incidents.Seed(testNow)),
		catalog.Default(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Options{QueueSize: queue, Metrics: m, Now: func() time.Time { return testNow }},
	)
	return h, m
}

func next(t *testing.T, p *Peer) events.ServerEvent {
	t.Helper()
	select {
	case raw := <-p.Outbound():
		ev, err := events.DecodeServer(raw)
		require.NoError(t, err)
		return ev
	case <-time.After(time.Second):
		t.Fatal("nothing queued for peer")
		return nil
	}
}

func assertIdle(t *testing.T, p *Peer) {
	t.Helper()
	select {
	case raw := <-p.Outbound():
		t.Fatalf("unexpected frame %s", raw)
	default:
	}
}

func encode(t *testing.T, m events.Message) []byte {
	t.Helper()
	raw, err := events.Encode(m)
	require.NoError(t, err)
	return raw
}

func newIncident(id string) incidents.Incident {
	return incidents.Incident{
		IncidentID:        id,
		SiteID:            "site-1",
		AssetID:           "asset-2",
		AlarmID:           "alarm-220",
		Priority:          2,
		Occurrences:       1,
		CreatedAt:         testNow.Add(-time.Minute),
		StateID:           incidents.StateOpen,
		EscalationLevelID: "esc-1",
		Lvl1SkillID:       "skill-scada",
	}
}

func TestJoinQueuesInitFirst(t *testing.T) {
	h, m := newTestHub(t, 8)
	p := h.Join()

	init, ok := next(t, p).(*events.Init)
	require.True(t, ok)
	assert.Equal(t, events.ProtocolVersion, init.ProtocolVersion)
	assert.Equal(t, []string{"inc-1001", "inc-1002", "inc-1003", "inc-1004"}, ids(init.Incidents))
	assert.Equal(t, catalog.Default(), init.Catalog)
	assertIdle(t, p)

	assert.Equal(t, 1, h.PeerCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PeersConnected))
}

func TestAddBroadcastsToEveryPeer(t *testing.T) {
	h, _ := newTestHub(t, 8)
	a, b := h.Join(), h.Join()
	next(t, a)
	next(t, b)

	h.HandleMessage(a, encode(t, &events.AddIncident{Incident: newIncident("inc-2001")}))

	for _, p := range []*Peer{a, b} {
		added, ok := next(t, p).(*events.IncidentAdded)
		require.True(t, ok)
		assert.Equal(t, "inc-2001", added.Incident.IncidentID)
		require.NotNil(t, added.Incident.UpdatedAt)
		assert.True(t, added.Incident.UpdatedAt.Equal(testNow))
		assertIdle(t, p)
	}
	assert.Equal(t, "inc-2001", h.Snapshot()[0].IncidentID)
}

func TestUpdateReplacesInPlace(t *testing.T) {
	h, _ := newTestHub(t, 8)
	p := h.Join()
	next(t, p)

	cur, ok := h.Incident("inc-1001")
	require.True(t, ok)
	cur.AssignedTo = "user-9"
	h.HandleMessage(p, encode(t, &events.UpdateIncident{Incident: cur}))

	upd, ok := next(t, p).(*events.IncidentUpdated)
	require.True(t, ok)
	assert.Equal(t, "user-9", upd.Incident.AssignedTo)

	snap := h.Snapshot()
	assert.Len(t, snap, 4)
	assert.Equal(t, "inc-1001", snap[0].IncidentID)
	assert.Equal(t, "user-9", snap[0].AssignedTo)
	assert.Equal(t, []incidents.Incident{snap[0]}, incidents.Classify(snap, incidents.BucketActive, incidents.Filter{Tags: []string{"skill-elec"}}))
}

func TestUpdateUnknownIDIsInserted(t *testing.T) {
	h, _ := newTestHub(t, 8)
	p := h.Join()
	next(t, p)

	h.HandleMessage(p, encode(t, &events.UpdateIncident{Incident: newIncident("inc-9")}))

	_, ok := next(t, p).(*events.IncidentUpdated)
	require.True(t, ok)
	assert.Len(t, h.Snapshot(), 5)
	assert.Equal(t, "inc-9", h.Snapshot()[0].IncidentID)
}

func TestMalformedMessagesAreDropped(t *testing.T) {
	h, m := newTestHub(t, 8)
	p := h.Join()
	next(t, p)

	for _, raw := range []string{
		`not json`,
		`{"type":"deleteIncident"}`,
		`{"type":"addIncident","incident":{"incidentId":""}}`,
		`{"type":"setReadingInterval","intervalMs":-1}`,
	} {
		h.HandleMessage(p, []byte(raw))
	}

	assertIdle(t, p)
	assert.Len(t, h.Snapshot(), 4)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.MessagesDropped.WithLabelValues("malformed")))
	assert.Equal(t, 1, h.PeerCount())
}

func TestSetReadingIntervalIsPerPeer(t *testing.T) {
	h, _ := newTestHub(t, 8)
	a, b := h.Join(), h.Join()
	next(t, a)
	next(t, b)

	_, set := a.ReadingInterval()
	assert.False(t, set)

	h.HandleMessage(a, []byte(`{"type":"setReadingInterval","intervalMs":1500}`))

	d, set := a.ReadingInterval()
	assert.True(t, set)
	assert.Equal(t, 1500*time.Millisecond, d)
	_, set = b.ReadingInterval()
	assert.False(t, set)
	assertIdle(t, a)
	assertIdle(t, b)
}

func TestSlowPeerIsEvicted(t *testing.T) {
	h, m := newTestHub(t, 2)
	slow, fast := h.Join(), h.Join()
	next(t, fast)

	for i := range 3 {
		h.Add(newIncident(fmt.Sprintf("inc-%d", 3000+i)))
		added, ok := next(t, fast).(*events.IncidentAdded)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("inc-%d", 3000+i), added.Incident.IncidentID)
	}

	select {
	case <-slow.Done():
	default:
		t.Fatal("slow peer still attached")
	}
	assert.Equal(t, 1, h.PeerCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PeersEvicted))

	// The frames it did get are still in order: init then the first add.
	_, ok := next(t, slow).(*events.Init)
	assert.True(t, ok)
	_, ok = next(t, slow).(*events.IncidentAdded)
	assert.True(t, ok)
}

func TestEveryPeerSeesTheSameOrder(t *testing.T) {
	h, _ := newTestHub(t, 512)
	peers := []*Peer{h.Join(), h.Join(), h.Join()}
	for _, p := range peers {
		next(t, p)
	}

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 25 {
				raw, _ := events.Encode(&events.AddIncident{Incident: newIncident(fmt.Sprintf("w%d-%d", w, i))})
				h.HandleMessage(peers[w%len(peers)], raw)
			}
		}()
	}
	wg.Wait()

	var want []string
	for i, p := range peers {
		var got []string
		for range 100 {
			got = append(got, next(t, p).(*events.IncidentAdded).Incident.IncidentID)
		}
		if i == 0 {
			want = got
		}
		assert.Equal(t, want, got)
	}
	assert.Len(t, h.Snapshot(), 104)
	assert.Equal(t, want[len(want)-1], h.Snapshot()[0].IncidentID)
}

func TestMove(t *testing.T) {
	h, _ := newTestHub(t, 8)
	p := h.Join()
	next(t, p)

	_, err := h.Move("missing", incidents.BucketActive, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assertIdle(t, p)

	moved, err := h.Move("inc-1001", incidents.BucketObserved, "user-1")
	require.NoError(t, err)
	assert.Equal(t, incidents.StateObserved, moved.StateID)
	assert.Equal(t, "user-1", moved.AssignedTo)

	upd := next(t, p).(*events.IncidentUpdated)
	assert.Equal(t, moved.IncidentID, upd.Incident.IncidentID)
	assert.Equal(t, incidents.StateObserved, upd.Incident.StateID)
}

func TestRecordReadingKeepsNewestPoints(t *testing.T) {
	h, _ := newTestHub(t, 128)
	p := h.Join()
	next(t, p)

	for i := range MaxReadings + 5 {
		_, err := h.RecordReading("inc-1002", incidents.Reading{Timestamp: testNow, Temperature: float64(i)})
		require.NoError(t, err)
	}
	inc, _ := h.Incident("inc-1002")
	require.Len(t, inc.Readings, MaxReadings)
	assert.Equal(t, 5.0, inc.Readings[0].Temperature)
	assert.Equal(t, float64(MaxReadings+4), inc.Readings[MaxReadings-1].Temperature)

	_, err := h.RecordReading("missing", incidents.Reading{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeaveAndClose(t *testing.T) {
	h, m := newTestHub(t, 8)
	a, b := h.Join(), h.Join()

	h.Leave(a)
	h.Leave(a)
	assert.Equal(t, 1, h.PeerCount())

	h.Close()
	assert.Equal(t, 0, h.PeerCount())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PeersConnected))
	<-b.Done()
}

func ids(list []incidents.Incident) []string {
	out := make([]string, len(list))
	for i, inc := range list {
		out[i] = inc.IncidentID
	}
	return out
}
