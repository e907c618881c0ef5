// autoscalectl - CLI tool for the autoscaler control API
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Atharva0045/cloud-autoscaler/internal/metricsource"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	serverURL string
	output    string
	timeout   time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "autoscalectl",
		Short:   "Autoscaler CLI - Inspect and drive the autoscaling daemon",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
	}

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8000", "Autoscaler server URL")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Request timeout (a live cycle can take minutes)")

	bufferCmd := &cobra.Command{
		Use:   "buffer [file]",
		Short: "Show the tail of the local metrics buffer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showBuffer,
	}
	bufferCmd.Flags().IntP("tail", "n", 20, "Number of trailing samples to show")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "cycle",
			Short: "Trigger one autoscaling cycle and print the result",
			RunE:  runCycle,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show daemon and instance status",
			RunE:  showStatus,
		},
		&cobra.Command{
			Use:   "health",
			Short: "Check that the daemon is responding",
			RunE:  checkHealth,
		},
		bufferCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// API client

func apiGet(path string) (map[string]interface{}, error) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(serverURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if code, ok := result["code"].(string); ok {
			return nil, fmt.Errorf("%s: %s", code, result["message"])
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return result, nil
}

// Output helpers

func printOutput(data interface{}) {
	switch output {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.Encode(data)
	default:
		// Table format handled by specific commands
	}
}

// Commands

func runCycle(cmd *cobra.Command, args []string) error {
	result, err := apiGet("/autoscale")
	if err != nil {
		return err
	}

	if output != "table" {
		printOutput(result)
		return nil
	}

	fmt.Printf("Cycle:       %s\n", result["cycle_id"])
	fmt.Printf("Predicted:   %.2f%% CPU (confidence %.3f)\n",
		floatField(result, "predicted_cpu"), floatField(result, "confidence"))
	fmt.Printf("Decision:    %s\n", result["decision"])
	fmt.Printf("Reason:      %s\n", result["reason"])
	fmt.Printf("Instance:    %s\n", result["current_instance_type"])
	fmt.Printf("Action:      %s\n", result["action_taken"])
	if dr, ok := result["dry_run"].(bool); ok && dr {
		fmt.Println("Mode:        dry-run")
	}
	if sr, ok := result["scaling_result"].(map[string]interface{}); ok {
		fmt.Printf("Resize:      %s -> %s (%s)\n", sr["old_type"], sr["new_type"], sr["reason"])
	}
	if e, ok := result["error"].(string); ok && e != "" {
		fmt.Printf("Error:       %s\n", e)
	}
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	result, err := apiGet("/status")
	if err != nil {
		return err
	}

	if output != "table" {
		printOutput(result)
		return nil
	}

	fmt.Printf("Status:      %s\n", result["status"])
	fmt.Printf("Version:     %s\n", result["version"])
	fmt.Printf("Uptime:      %s\n", (time.Duration(floatField(result, "uptime_seconds")) * time.Second).String())
	fmt.Printf("Dry run:     %v\n", result["dry_run"])
	fmt.Printf("Cooldown:    %ds remaining\n", int64(floatField(result, "cooldown_remaining_seconds")))
	if inst, ok := result["instance"].(map[string]interface{}); ok {
		fmt.Printf("Instance:    %s (%s, %s)\n", inst["id"], inst["type"], inst["state"])
	}
	if e, ok := result["instance_error"].(string); ok && e != "" {
		fmt.Printf("Instance:    unavailable (%s)\n", e)
	}
	return nil
}

func showBuffer(cmd *cobra.Command, args []string) error {
	path := "data/live_buffer.csv"
	if len(args) == 1 {
		path = args[0]
	}
	tail, _ := cmd.Flags().GetInt("tail")

	samples, err := metricsource.ReadBuffer(path)
	if err != nil {
		return fmt.Errorf("failed to read buffer: %w", err)
	}
	if tail > 0 && len(samples) > tail {
		samples = samples[len(samples)-tail:]
	}

	if output != "table" {
		printOutput(samples)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tCPU%\tRAM%\tDISK B/S")
	for _, s := range samples {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.0f\n",
			s.Timestamp.Local().Format("2006-01-02 15:04:05"), s.CPU, s.Memory, s.DiskIO)
	}
	return w.Flush()
}

func checkHealth(cmd *cobra.Command, args []string) error {
	result, err := apiGet("/health")
	if err != nil {
		return err
	}

	if output != "table" {
		printOutput(result)
		return nil
	}
	fmt.Printf("Status: %s\n", result["status"])
	return nil
}

// Helpers

func floatField(m map[string]interface{}, key string) float64 {
	f, _ := m[key].(float64)
	return f
}
