// Package app implements growhub-cli, a small operator console for the
// orchestrator REST API.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
)

type deviceStatus struct {
	model.Device

	PendingCommands int                   `json:"pendingCommands"`
	Offline         *model.OfflineTracker `json:"offline,omitempty"`
	LastSnapshot    *model.SensorSnapshot `json:"lastSnapshot,omitempty"`
}

// NewCommand builds the root growhub-cli command.
func NewCommand() *cobra.Command {
	var serverURL string

	root := &cobra.Command{
		Use:           "growhub-cli",
		Short:         "Operator console for the GrowHub orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "Orchestrator API base URL.")

	client := func() *apiClient { return newAPIClient(serverURL) }

	root.AddCommand(
		newDevicesCommand(client),
		newDeviceCommand(client),
		newSetStateCommand(client),
		newSetModeCommand(client),
		newAuditCommand(client),
	)
	return root
}

func newDevicesCommand(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List every registered device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var devices []deviceStatus
			if err := client().get("/api/v1/devices", &devices); err != nil {
				return err
			}

			table := uitable.New()
			table.AddRow("DEVICE", "LAST HEARTBEAT", "STATUS", "PENDING", "ACTUATORS")
			for _, d := range devices {
				table.AddRow(d.ID, d.LastHeartbeat.Format(time.RFC3339), livenessOf(&d), d.PendingCommands, actuatorSummary(&d))
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newDeviceCommand(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "device <device-id>",
		Short: "Show one device in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var d deviceStatus
			if err := client().get("/api/v1/devices/"+args[0], &d); err != nil {
				return err
			}

			table := uitable.New()
			table.AddRow("Device:", d.ID)
			table.AddRow("Last heartbeat:", d.LastHeartbeat.Format(time.RFC3339))
			table.AddRow("Status:", livenessOf(&d))
			table.AddRow("Pending commands:", d.PendingCommands)
			for _, k := range model.AllActuatorKinds() {
				if act, ok := d.Actuators[k]; ok {
					table.AddRow(fmt.Sprintf("%s:", k), fmt.Sprintf("%s %s", onOff(act.State), act.Mode))
				}
			}
			if d.LastSnapshot != nil {
				table.AddRow("Greenhouse temp:", fmt.Sprintf("%.1f °C", d.LastSnapshot.GreenhouseTemp))
				table.AddRow("Soil moisture:", fmt.Sprintf("%.1f %%", d.LastSnapshot.SoilMoisture))
				table.AddRow("Water tank:", fmt.Sprintf("%.1f %%", d.LastSnapshot.WaterTank))
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newSetStateCommand(client func() *apiClient) *cobra.Command {
	var reason string
	var expireAfter time.Duration

	cmd := &cobra.Command{
		Use:   "set-state <device-id> <actuator> <on|off>",
		Short: "Switch an actuator on or off",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := parseOnOff(args[2])
			if err != nil {
				return err
			}

			body := map[string]any{
				"state":  state,
				"reason": reason,
			}
			if expireAfter > 0 {
				body["expireAfterSeconds"] = int(expireAfter.Seconds())
			}

			var change struct {
				Previous string `json:"previous"`
				New      string `json:"new"`
			}
			path := fmt.Sprintf("/api/v1/devices/%s/actuators/%s/state", args[0], args[1])
			if err := client().put(path, body, &change); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s -> %s\n", args[0], args[1], change.Previous, change.New)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Free-form reason recorded in the audit log.")
	cmd.Flags().DurationVar(&expireAfter, "expire-after", 0, "Revert to the previous state after this duration (e.g. 30m).")
	return cmd
}

func newSetModeCommand(client func() *apiClient) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "set-mode <device-id> <actuator> <AUTO|MANUAL>",
		Short: "Change an actuator's operating mode",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var change struct {
				Previous string `json:"previous"`
				New      string `json:"new"`
			}
			body := map[string]any{
				"mode":   strings.ToUpper(args[2]),
				"reason": reason,
			}
			path := fmt.Sprintf("/api/v1/devices/%s/actuators/%s/mode", args[0], args[1])
			if err := client().put(path, body, &change); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s -> %s\n", args[0], args[1], change.Previous, change.New)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Free-form reason recorded in the audit log.")
	return cmd
}

func newAuditCommand(client func() *apiClient) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit <device-id>",
		Short: "Show a device's state-transition audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []model.AuditEntry
			path := fmt.Sprintf("/api/v1/devices/%s/audit?limit=%d", args[0], limit)
			if err := client().get(path, &entries); err != nil {
				return err
			}

			table := uitable.New()
			table.AddRow("TIME", "ACTUATOR", "CHANGE", "TRIGGER", "REASON")
			for _, e := range entries {
				table.AddRow(e.Timestamp.Format(time.RFC3339), e.Actuator,
					fmt.Sprintf("%s -> %s", e.Previous, e.New), string(e.TriggeredBy), e.Reason)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries to show.")
	return cmd
}

func livenessOf(d *deviceStatus) string {
	if d.Offline == nil {
		return "online"
	}
	if d.Offline.EmergencyApplied {
		return "offline (failsafe active)"
	}
	return fmt.Sprintf("offline since %s", d.Offline.OfflineSince.Format(time.RFC3339))
}

func actuatorSummary(d *deviceStatus) string {
	parts := make([]string, 0, len(d.Actuators))
	for _, k := range model.AllActuatorKinds() {
		if act, ok := d.Actuators[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s/%s", k, onOff(act.State), act.Mode))
		}
	}
	return strings.Join(parts, " ")
}

func onOff(state bool) string {
	if state {
		return "ON"
	}
	return "OFF"
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
