package hub

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"alarmhub/internal/catalog"
	"alarmhub/internal/events"
	"alarmhub/internal/incidents"
	"alarmhub/internal/metrics"
)

var ErrNotFound = errors.New("incident not found")

const (
	DefaultQueueSize = 256
	// MaxReadings bounds the trend kept on each incident.
	MaxReadings = 60
)

type Options struct {
	// QueueSize is the per-peer outbound buffer. A peer that falls this far
	// behind is evicted.
	QueueSize int
	Metrics   *metrics.Hub
	Now       func() time.Time
}

// Hub owns the canonical incident store and the catalog. Every mutation,
// join and fan-out runs under one lock, so each viewer sees init first and
// then events in exactly the order they were applied.
type Hub struct {
	store   *incidents.Store
	catalog catalog.Catalog
	logger  *slog.Logger
	metrics *metrics.Hub
	now     func() time.Time
	queue   int

	mu    sync.Mutex
	peers map[*Peer]struct{}
}

func New(store *incidents.Store, cat catalog.Catalog, logger *slog.Logger, opts Options) *Hub {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		store:   store,
		catalog: cat.Normalize().Clone(),
		logger:  logger,
		metrics: opts.Metrics,
		now:     opts.Now,
		queue:   opts.QueueSize,
		peers:   make(map[*Peer]struct{}),
	}
	if h.metrics != nil {
		h.metrics.IncidentsTotal.Set(float64(store.Len()))
	}
	return h
}

// Join registers a new viewer and queues its init snapshot.
func (h *Hub) Join() *Peer {
	p := newPeer(h.queue)

	h.mu.Lock()
	defer h.mu.Unlock()

	raw, err := events.Encode(&events.Init{
		Incidents:       h.store.Snapshot(),
		Catalog:         h.catalog.Clone(),
		ProtocolVersion: events.ProtocolVersion,
	})
	if err != nil {
		h.logger.Error("encode init", "err", err)
	} else {
		p.enqueue(raw)
	}
	h.peers[p] = struct{}{}
	if h.metrics != nil {
		h.metrics.PeersConnected.Set(float64(len(h.peers)))
	}
	return p
}

// Leave unregisters p. Calling it more than once is harmless.
func (h *Hub) Leave(p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers, p)
	p.close()
	if h.metrics != nil {
		h.metrics.PeersConnected.Set(float64(len(h.peers)))
	}
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.peers {
		p.close()
		delete(h.peers, p)
	}
	if h.metrics != nil {
		h.metrics.PeersConnected.Set(0)
	}
}

// HandleMessage applies one raw inbound frame from p. Anything that does not
// decode is dropped without a reply.
func (h *Hub) HandleMessage(p *Peer, raw []byte) {
	req, err := events.DecodeClient(raw)
	if err != nil {
		h.logger.Debug("dropping malformed message", "peer", p.ID, "err", err)
		if h.metrics != nil {
			h.metrics.MessagesDropped.WithLabelValues("malformed").Inc()
		}
		return
	}
	if h.metrics != nil {
		h.metrics.MessagesReceived.WithLabelValues(string(req.Type())).Inc()
	}

	switch r := req.(type) {
	case *events.AddIncident:
		h.Add(r.Incident)
	case *events.UpdateIncident:
		h.Update(r.Incident)
	case *events.SetReadingInterval:
		p.setReadingInterval(r.IntervalMs)
		h.logger.Debug("reading interval set", "peer", p.ID, "interval_ms", r.IntervalMs)
	}
}

// Add stores inc at the front of the collection and announces it to every
// viewer, the sender included.
func (h *Hub) Add(inc incidents.Incident) incidents.Incident {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now().UTC()
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = now
	}
	inc.UpdatedAt = &now
	stored := h.store.Insert(inc)
	h.logger.Info("incident added", "id", stored.IncidentID, "state", stored.StateID)
	h.broadcastLocked(&events.IncidentAdded{Incident: stored})
	return stored
}

// Update replaces the stored incident with the same id, or inserts it when
// the id is unknown, and announces the result.
func (h *Hub) Update(inc incidents.Incident) incidents.Incident {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.updateLocked(inc)
}

// Move rewrites the incident so it lands in target, the way a board drop
// does. assignee is used when target needs an owner and there is none.
func (h *Hub) Move(id string, target incidents.Bucket, assignee string) (incidents.Incident, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cur, ok := h.store.Get(id)
	if !ok {
		return incidents.Incident{}, ErrNotFound
	}
	return h.updateLocked(incidents.MoveTo(cur, target, assignee)), nil
}

// RecordReading appends r to the incident's trend, keeping the newest
// MaxReadings points, and announces the update.
func (h *Hub) RecordReading(id string, r incidents.Reading) (incidents.Incident, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now().UTC()
	stored, ok := h.store.Modify(id, func(inc *incidents.Incident) {
		inc.Readings = append(inc.Readings, r)
		if n := len(inc.Readings); n > MaxReadings {
			inc.Readings = append([]incidents.Reading(nil), inc.Readings[n-MaxReadings:]...)
		}
		inc.UpdatedAt = &now
	})
	if !ok {
		return incidents.Incident{}, ErrNotFound
	}
	h.broadcastLocked(&events.IncidentUpdated{Incident: stored})
	return stored, nil
}

func (h *Hub) updateLocked(inc incidents.Incident) incidents.Incident {
	now := h.now().UTC()
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = now
	}
	inc.UpdatedAt = &now
	stored, replaced := h.store.Upsert(inc)
	h.logger.Info("incident updated", "id", stored.IncidentID, "state", stored.StateID,
		"assigned_to", stored.AssignedTo, "replaced", replaced)
	h.broadcastLocked(&events.IncidentUpdated{Incident: stored})
	return stored
}

// broadcastLocked queues ev on every peer. Peers that are gone are skipped;
// peers whose queue is full are evicted so they resync from a new snapshot.
func (h *Hub) broadcastLocked(ev events.ServerEvent) {
	raw, err := events.Encode(ev)
	if err != nil {
		h.logger.Error("encode event", "type", ev.Type(), "err", err)
		return
	}
	for p := range h.peers {
		if p.enqueue(raw) {
			continue
		}
		delete(h.peers, p)
		if p.closed() {
			continue
		}
		h.logger.Warn("evicting slow viewer", "peer", p.ID)
		p.close()
		if h.metrics != nil {
			h.metrics.PeersEvicted.Inc()
		}
	}
	if h.metrics != nil {
		h.metrics.EventsBroadcast.WithLabelValues(string(ev.Type())).Inc()
		h.metrics.PeersConnected.Set(float64(len(h.peers)))
		h.metrics.IncidentsTotal.Set(float64(h.store.Len()))
	}
}

func (h *Hub) Snapshot() []incidents.Incident { return h.store.Snapshot() }

func (h *Hub) Incident(id string) (incidents.Incident, bool) { return h.store.Get(id) }

func (h *Hub) Catalog() catalog.Catalog { return h.catalog.Clone() }

func (h *Hub) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}
