package reconciler

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"alarmhub/internal/catalog"
	"alarmhub/internal/events"
	"alarmhub/internal/incidents"
)

var ErrNotConnected = errors.New("not connected to hub")

type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

type Options struct {
	// ReadingInterval is the initial throttle window for incidentUpdated.
	ReadingInterval time.Duration
	Now             func() time.Time
	Dialer          *websocket.Dialer
	// Token, when set, is sent as a bearer token on dial.
	Token string
}

// Reconciler mirrors the hub's collection for one viewer. Inbound events are
// applied in receipt order; incidentUpdated is rate limited by a Throttle.
type Reconciler struct {
	logger *slog.Logger
	dialer *websocket.Dialer
	token  string

	mu       sync.Mutex
	state    State
	status   Status
	throttle *Throttle
	conn     *websocket.Conn

	writeMu sync.Mutex
	changes chan struct{}
}

func New(logger *slog.Logger, opts Options) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ReadingInterval <= 0 {
		opts.ReadingInterval = DefaultReadingInterval
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Reconciler{
		logger:   logger,
		dialer:   opts.Dialer,
		token:    opts.Token,
		state:    EmptyState(),
		status:   StatusDisconnected,
		throttle: NewThrottle(opts.ReadingInterval, opts.Now),
		changes:  make(chan struct{}, 1),
	}
}

// Handle applies one raw frame from the hub. It reports whether the local
// state changed; malformed and throttled frames are dropped.
func (r *Reconciler) Handle(raw []byte) bool {
	ev, err := events.DecodeServer(raw)
	if err != nil {
		r.logger.Debug("dropping malformed event", "err", err)
		return false
	}

	r.mu.Lock()
	if _, ok := ev.(*events.IncidentUpdated); ok && !r.throttle.Allow() {
		r.mu.Unlock()
		return false
	}
	prev := r.state.Advisory
	r.state = Apply(r.state, ev)
	advisory := r.state.Advisory
	r.mu.Unlock()

	if advisory != "" && advisory != prev {
		r.logger.Warn("hub protocol differs", "advisory", advisory)
	}
	r.notify()
	return true
}

// SendIncident asks the hub to add inc. The local replica only changes when
// the hub echoes incidentAdded back.
func (r *Reconciler) SendIncident(inc incidents.Incident) error {
	return r.send(&events.AddIncident{Incident: inc})
}

// UpdateIncident merges inc locally right away, then forwards it to the hub.
// The local merge happens even when disconnected.
func (r *Reconciler) UpdateIncident(inc incidents.Incident) error {
	r.mu.Lock()
	r.state.Incidents = incidents.Merge(r.state.Incidents, inc)
	r.mu.Unlock()
	r.notify()

	return r.send(&events.UpdateIncident{Incident: inc})
}

// SetReadingInterval changes the throttle window and tells the hub.
func (r *Reconciler) SetReadingInterval(d time.Duration) error {
	r.mu.Lock()
	r.throttle.SetInterval(d)
	r.mu.Unlock()
	return r.send(&events.SetReadingInterval{IntervalMs: d.Milliseconds()})
}

func (r *Reconciler) ReadingInterval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.throttle.Interval()
}

// Changes receives a value after any state or status change. Notifications
// coalesce, so a reader should re-read everything it shows.
func (r *Reconciler) Changes() <-chan struct{} { return r.changes }

func (r *Reconciler) Incidents() []incidents.Incident {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]incidents.Incident(nil), r.state.Incidents...)
}

func (r *Reconciler) Catalog() catalog.Catalog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Catalog.Clone()
}

func (r *Reconciler) Advisory() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Advisory
}

func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Reconciler) Connected() bool { return r.Status() == StatusConnected }

// Board classifies the current replica.
func (r *Reconciler) Board(f incidents.Filter) incidents.Board {
	r.mu.Lock()
	list := r.state.Incidents
	r.mu.Unlock()
	return incidents.ClassifyAll(list, f)
}

func (r *Reconciler) setStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
	r.notify()
}

func (r *Reconciler) notify() {
	select {
	case r.changes <- struct{}{}:
	default:
	}
}
