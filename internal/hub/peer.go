package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Peer is the hub's handle on one connected viewer. The hub only ever
// enqueues onto it; a transport goroutine drains Outbound and writes frames.
type Peer struct {
	ID string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// reading interval requested by the viewer in ms, -1 until set
	readingInterval atomic.Int64
}

func newPeer(queueSize int) *Peer {
	p := &Peer{
		ID:   uuid.NewString(),
		send: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
	p.readingInterval.Store(-1)
	return p
}

// Outbound yields encoded frames in the order the hub produced them.
func (p *Peer) Outbound() <-chan []byte { return p.send }

// Done is closed once the peer has left or been evicted.
func (p *Peer) Done() <-chan struct{} { return p.done }

// ReadingInterval returns the interval last requested with
// setReadingInterval. It has no effect on what the hub sends.
func (p *Peer) ReadingInterval() (time.Duration, bool) {
	ms := p.readingInterval.Load()
	if ms < 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

func (p *Peer) setReadingInterval(ms int64) {
	p.readingInterval.Store(ms)
}

func (p *Peer) closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *Peer) close() {
	p.closeOnce.Do(func() { close(p.done) })
}

// enqueue never blocks. It reports false when the peer is gone or its
// queue is full.
func (p *Peer) enqueue(msg []byte) bool {
	if p.closed() {
		return false
	}
	select {
	case p.send <- msg:
		return true
	default:
		return false
	}
}
