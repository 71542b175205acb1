// Package telemetry produces synthetic sensor readings for open incidents so
// viewers receive a steady stream of incidentUpdated events.
package telemetry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"alarmhub/internal/incidents"
)

// Recorder is the part of the hub the simulator drives.
type Recorder interface {
	Snapshot() []incidents.Incident
	RecordReading(id string, r incidents.Reading) (incidents.Incident, error)
}

const (
	baseTemperature = 68.0
	basePressure    = 30.0
	maxStep         = 0.8
)

type Simulator struct {
	Recorder Recorder
	Interval time.Duration
	Logger   *slog.Logger
	Now      func() time.Time

	rng *rand.Rand
}

func NewSimulator(rec Recorder, interval time.Duration, logger *slog.Logger) *Simulator {
	return &Simulator{
		Recorder: rec,
		Interval: interval,
		Logger:   logger,
		Now:      time.Now,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// Run ticks until ctx is done. A non-positive interval disables it.
func (s *Simulator) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		return nil
	}
	s.Logger.Info("telemetry simulator started", "interval", s.Interval)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick records one reading on every incident that is not closed and returns
// how many were recorded.
func (s *Simulator) Tick() int {
	now := s.Now().UTC()
	n := 0
	for _, inc := range s.Recorder.Snapshot() {
		if inc.StateID == incidents.StateClosed {
			continue
		}
		r := s.next(inc, now)
		if _, err := s.Recorder.RecordReading(inc.IncidentID, r); err != nil {
			s.Logger.Debug("record reading", "id", inc.IncidentID, "err", err)
			continue
		}
		n++
	}
	return n
}

// next walks from the incident's last reading, or starts from a baseline
// that rises with priority.
func (s *Simulator) next(inc incidents.Incident, now time.Time) incidents.Reading {
	temp := baseTemperature + float64(inc.Priority)*2
	pressure := basePressure
	if k := len(inc.Readings); k > 0 {
		temp = inc.Readings[k-1].Temperature
		pressure = inc.Readings[k-1].Pressure
	}
	return incidents.Reading{
		Timestamp:   now,
		Temperature: temp + (s.rng.Float64()*2-1)*maxStep,
		Pressure:    pressure + (s.rng.Float64()*2-1)*maxStep/4,
	}
}
