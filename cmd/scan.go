/*
Copyright 2024 SerialLink Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Shoaibashk/serialmonitor/internal/channel"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan and list available serial ports",
	Long: `Scan the system for available serial ports and display their information.

This command discovers all serial ports including:
  • USB serial devices
  • Native serial ports
  • Bluetooth serial ports
  • Virtual serial ports

Example:
  serialmonitor scan              # List all ports
  serialmonitor scan --json       # Output as JSON
  serialmonitor scan -v           # Show detailed port information`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Bool("json", false, "output in JSON format")
	scanCmd.Flags().BoolP("verbose", "v", false, "show detailed port information")
}

func runScan(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	scanner, err := channel.NewScanner(nil, nil, cfg.Serial.ExcludePatterns)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	ports, err := scanner.List()
	if err != nil {
		return fmt.Errorf("failed to list ports: %w", err)
	}

	if len(ports) == 0 {
		if jsonOutput {
			fmt.Println("[]")
		} else {
			fmt.Println("No serial ports found.")
		}
		return nil
	}

	if jsonOutput {
		return printPortsJSON(ports, verbose)
	}

	return printPortsTable(ports, verbose)
}

func printPortsTable(ports []channel.PortInfo, verbose bool) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if verbose {
		fmt.Fprintln(w, "PORT\tFRIENDLY NAME\tMANUFACTURER\tSERIAL\tVENDOR ID\tPRODUCT ID")
		fmt.Fprintln(w, "----\t-------------\t------------\t------\t---------\t----------")
		for _, port := range ports {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				port.Path,
				truncate(port.FriendlyName, 24),
				truncate(port.Manufacturer, 16),
				truncate(port.SerialNumber, 16),
				port.VendorID,
				port.ProductID,
			)
		}
	} else {
		fmt.Fprintln(w, "PORT\tFRIENDLY NAME")
		fmt.Fprintln(w, "----\t-------------")
		for _, port := range ports {
			fmt.Fprintf(w, "%s\t%s\n", port.Path, truncate(port.FriendlyName, 40))
		}
	}

	return w.Flush()
}

func printPortsJSON(ports []channel.PortInfo, verbose bool) error {
	type PortData struct {
		Path         string `json:"path"`
		FriendlyName string `json:"friendlyName"`
		Manufacturer string `json:"manufacturer,omitempty"`
		SerialNumber string `json:"serialNumber,omitempty"`
		VendorID     string `json:"vendorId,omitempty"`
		ProductID    string `json:"productId,omitempty"`
	}

	data := make([]PortData, len(ports))
	for i, port := range ports {
		data[i] = PortData{Path: port.Path, FriendlyName: port.FriendlyName}
		if verbose {
			data[i].Manufacturer = port.Manufacturer
			data[i].SerialNumber = port.SerialNumber
			data[i].VendorID = port.VendorID
			data[i].ProductID = port.ProductID
		}
	}

	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
