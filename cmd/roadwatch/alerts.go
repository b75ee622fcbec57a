package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roadwatch/roadwatch/pkg/alertstore"
	"github.com/roadwatch/roadwatch/pkg/syncer"
	"github.com/roadwatch/roadwatch/pkg/types"
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Create and inspect road alerts",
}

var alertCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Report a new road alert",
	Long: `Report a new road alert. When the backend is reachable the alert is
created immediately; otherwise it is staged locally and replayed on the next
sync pass.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		backend, err := newBackend(cfg)
		if err != nil {
			return err
		}

		alertType, _ := cmd.Flags().GetString("type")
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		severity, _ := cmd.Flags().GetString("severity")
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		location, _ := cmd.Flags().GetString("location")
		municipality, _ := cmd.Flags().GetString("municipality")
		duration, _ := cmd.Flags().GetInt("duration")
		roads, _ := cmd.Flags().GetStringSlice("roads")

		req := types.CreateAlertRequest{
			Type:            types.AlertType(alertType),
			Title:           title,
			Description:     description,
			Severity:        types.Severity(severity),
			Latitude:        lat,
			Longitude:       lon,
			Location:        location,
			Municipality:    municipality,
			DurationMinutes: duration,
			AffectedRoads:   roads,
		}
		if !req.Type.Valid() {
			return fmt.Errorf("unknown alert type: %s", alertType)
		}
		if !req.Severity.Valid() {
			return fmt.Errorf("unknown severity: %s", severity)
		}
		if req.Title == "" {
			return fmt.Errorf("alert title is required")
		}

		// Reachability decides immediate creation vs offline staging
		online := backend.Health(cmd.Context()) == nil

		sync := syncer.New(store, backend, alertstore.New(), syncer.Config{
			MaxAttempts: cfg.SyncMaxAttempts,
			Online:      func() bool { return online },
		})

		alert, queued := sync.CreateAlert(cmd.Context(), req)
		if queued {
			fmt.Printf("Backend unreachable; alert staged locally (id %d) and queued for replay\n", alert.ID)
			return nil
		}
		fmt.Printf("Alert %d created\n", alert.ID)
		return nil
	},
}

var alertListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the locally cached alert snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		alerts, err := store.CachedAlerts()
		if err != nil {
			return err
		}
		if len(alerts) == 0 {
			fmt.Println("No cached alerts")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tSEVERITY\tSTATUS\tTITLE\tCREATED\tFLAGS")
		for _, a := range alerts {
			flags := ""
			if a.Pending {
				flags += "pending "
			}
			if a.Offline {
				flags += "offline"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				a.ID, a.Type, a.Severity, a.Status, a.Title,
				a.CreatedAt.Format(time.RFC3339), flags)
		}
		return w.Flush()
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the offline action queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued offline actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		actions, err := store.QueuedActions()
		if err != nil {
			return err
		}
		if len(actions) == 0 {
			fmt.Println("Queue is empty")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tTITLE\tATTEMPTS\tENQUEUED")
		for _, a := range actions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				a.ID, a.Kind, a.Payload.Title, a.Attempts,
				a.EnqueuedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard all queued offline actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.ClearQueue(); err != nil {
			return err
		}
		fmt.Println("Queue cleared")
		return nil
	},
}

var deadletterCmd = &cobra.Command{
	Use:   "deadletter",
	Short: "Inspect actions retired after exhausting replay attempts",
}

var deadletterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead-lettered actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		dead, err := store.DeadLetteredActions()
		if err != nil {
			return err
		}
		if len(dead) == 0 {
			fmt.Println("Dead letter is empty")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tATTEMPTS\tRETIRED\tREASON")
		for _, d := range dead {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				d.Action.ID, d.Action.Payload.Title, d.Action.Attempts,
				d.RetiredAt.Format(time.RFC3339), d.Reason)
		}
		return w.Flush()
	},
}

var deadletterClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard all dead-lettered actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.ClearDeadLetter(); err != nil {
			return err
		}
		fmt.Println("Dead letter cleared")
		return nil
	},
}

func init() {
	alertCreateCmd.Flags().String("type", "", "Incident type (landslide, accident, flood, closure, maintenance)")
	alertCreateCmd.Flags().String("title", "", "Alert title (required)")
	alertCreateCmd.Flags().String("description", "", "Alert description")
	alertCreateCmd.Flags().String("severity", "medium", "Severity (low, medium, high, critical)")
	alertCreateCmd.Flags().Float64("lat", 0, "Latitude")
	alertCreateCmd.Flags().Float64("lon", 0, "Longitude")
	alertCreateCmd.Flags().String("location", "", "Free-text address")
	alertCreateCmd.Flags().String("municipality", "", "Municipality")
	alertCreateCmd.Flags().Int("duration", 0, "Estimated duration in minutes")
	alertCreateCmd.Flags().StringSlice("roads", nil, "Affected road names")
	_ = alertCreateCmd.MarkFlagRequired("title")

	alertCmd.AddCommand(alertCreateCmd)
	alertCmd.AddCommand(alertListCmd)
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueClearCmd)
	deadletterCmd.AddCommand(deadletterListCmd)
	deadletterCmd.AddCommand(deadletterClearCmd)
}
