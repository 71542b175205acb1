package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"alarmhub/internal/events"
	"alarmhub/internal/incidents"
	"alarmhub/internal/reconciler"
)

type incidentFlags struct {
	id          string
	site        string
	asset       string
	alarm       string
	priority    int
	occurrences int
	escalation  string
	skills      []string
	assignee    string
	state       string
}

func (f *incidentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "id", "", "incident id (generated when empty)")
	cmd.Flags().StringVar(&f.site, "site", "site-1", "site id")
	cmd.Flags().StringVar(&f.asset, "asset", "asset-1", "asset id")
	cmd.Flags().StringVar(&f.alarm, "alarm", "alarm-100", "alarm id")
	cmd.Flags().IntVar(&f.priority, "priority", 1, "priority, 1 is highest")
	cmd.Flags().IntVar(&f.occurrences, "occurrences", 1, "occurrence count")
	cmd.Flags().StringVar(&f.escalation, "escalation", "esc-1", "escalation level id")
	cmd.Flags().StringSliceVar(&f.skills, "skill", nil, "skill id tag, repeatable")
	cmd.Flags().StringVar(&f.assignee, "assignee", "", "owner; empty leaves it unassigned")
	cmd.Flags().StringVar(&f.state, "state", string(incidents.StateOpen), "OPEN, OBSERVED or CLOSED")
}

func (f *incidentFlags) build(now time.Time) (incidents.Incident, error) {
	id := f.id
	if id == "" {
		id = "inc-" + uuid.NewString()[:8]
	}
	inc := incidents.Incident{
		IncidentID:        id,
		SiteID:            f.site,
		AssetID:           f.asset,
		AlarmID:           f.alarm,
		Priority:          f.priority,
		Occurrences:       f.occurrences,
		CreatedAt:         now.UTC(),
		AssignedTo:        f.assignee,
		StateID:           incidents.State(f.state),
		EscalationLevelID: f.escalation,
		SkillIDs:          f.skills,
	}
	if err := events.ValidateIncident(inc); err != nil {
		return incidents.Incident{}, err
	}
	return inc, nil
}

func newAddCmd() *cobra.Command {
	var (
		vf      viewerFlags
		inf     incidentFlags
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Raise a new incident through the hub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			inc, err := inf.build(time.Now())
			if err != nil {
				return err
			}
			logger, closeLog, err := vf.logger()
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			rec := reconciler.New(logger, reconciler.Options{Token: vf.token})
			runErr := make(chan error, 1)
			go func() { runErr <- rec.Run(ctx, vf.url) }()

			if err := waitFor(ctx, rec, runErr, rec.Connected); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			if err := rec.SendIncident(inc); err != nil {
				return err
			}
			echoed := func() bool { return incidents.IndexOf(rec.Incidents(), inc.IncidentID) >= 0 }
			if err := waitFor(ctx, rec, runErr, echoed); err != nil {
				return fmt.Errorf("waiting for hub: %w", err)
			}
			cancel()
			<-runErr

			list := rec.Incidents()
			stored := list[incidents.IndexOf(list, inc.IncidentID)]
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stored)
		},
	}
	vf.register(cmd)
	inf.register(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "give up after this long")
	return cmd
}

// waitFor blocks until cond holds, the connection ends or ctx is done.
func waitFor(ctx context.Context, rec *reconciler.Reconciler, runErr <-chan error, cond func() bool) error {
	for !cond() {
		select {
		case <-rec.Changes():
		case err := <-runErr:
			if err == nil {
				err = errors.New("connection closed")
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
