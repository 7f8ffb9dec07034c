package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Manage gateways",
	Long:  `List and rename Sparrow gateways.`,
}

var gatewayListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all gateways",
	Long:  `Display all gateways of the project with their nodes.`,
	RunE:  runGatewayList,
}

var gatewayRenameCmd = &cobra.Command{
	Use:   "rename <gatewayUID> <name>",
	Short: "Rename a gateway",
	Args:  cobra.ExactArgs(2),
	RunE:  runGatewayRename,
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
	gatewayCmd.AddCommand(gatewayListCmd)
	gatewayCmd.AddCommand(gatewayRenameCmd)
}

func runGatewayList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	gateways, err := app.Service.GetGateways(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load gateways: %w", err)
	}

	if len(gateways) == 0 {
		fmt.Println("No gateways found.")
		return nil
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Printf("%-28s %-24s %-20s %s\n", "UID", "Name", "Last seen", "Nodes")
	fmt.Println(strings.Repeat("=", 80))

	for _, g := range gateways {
		fmt.Printf("%-28s %-24s %-20s %d\n", g.ID.UID, g.Name, formatTime(g.LastSeen), len(g.Nodes))
		for _, n := range g.Nodes {
			fmt.Printf("  └ %-24s %-24s %s\n", n.ID.NodeID, nodeName(n), formatTime(n.LastSeen))
			if readings := formatReadings(n.CurrentReadings); readings != "" {
				fmt.Printf("      %s\n", readings)
			}
		}
	}
	fmt.Println(strings.Repeat("=", 80))
	return nil
}

func runGatewayRename(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Service.SetGatewayName(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}

	fmt.Printf("Gateway %s renamed to %q\n", args[0], args[1])
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// formatReadings renders current readings as "Temperature 21.5 °C, Humidity 40 %"
func formatReadings(readings models.CurrentReadings) string {
	parts := make([]string, 0, len(readings))
	for _, sensorType := range readings.Types() {
		info := models.LookupSensorType(sensorType)
		part := fmt.Sprintf("%s %g", info.DisplayName, readings[sensorType].Value)
		if info.Unit != "" {
			part += " " + info.Unit
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func nodeName(n models.Node) string {
	if n.Name == nil {
		return "-"
	}
	return *n.Name
}
