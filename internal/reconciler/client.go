package reconciler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"alarmhub/internal/events"
)

const writeWait = 10 * time.Second

// Run connects to the hub at url and applies its events until the
// connection drops or ctx is done. It does not reconnect; callers that want
// to retry call Run again and resync from the next init.
func (r *Reconciler) Run(ctx context.Context, url string) error {
	r.setStatus(StatusConnecting)

	var header http.Header
	if r.token != "" {
		header = http.Header{"Authorization": []string{"Bearer " + r.token}}
	}
	conn, _, err := r.dialer.DialContext(ctx, url, header)
	if err != nil {
		r.setStatus(StatusDisconnected)
		return fmt.Errorf("dial %s: %w", url, err)
	}

	r.mu.Lock()
	r.conn = conn
	r.status = StatusConnected
	interval := r.throttle.Interval()
	r.mu.Unlock()
	r.notify()
	r.logger.Info("connected to hub", "url", url)

	defer func() {
		r.mu.Lock()
		r.conn = nil
		r.status = StatusDisconnected
		r.mu.Unlock()
		conn.Close()
		r.notify()
		r.logger.Info("disconnected from hub", "url", url)
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.Close()
	})
	defer stop()

	if err := r.send(&events.SetReadingInterval{IntervalMs: interval.Milliseconds()}); err != nil {
		r.logger.Warn("send reading interval", "err", err)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read from hub: %w", err)
		}
		r.Handle(raw)
	}
}

func (r *Reconciler) send(m events.ClientRequest) error {
	raw, err := events.Encode(m)
	if err != nil {
		return err
	}

	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("send %s: %w", m.Type(), err)
	}
	return nil
}
