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

// Package cmd provides the CLI commands for the serial monitor using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Shoaibashk/serialmonitor/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is the application version (set at build time)
	Version = "dev"

	// Commit is the git commit (set at build time)
	Commit = "none"

	// BuildDate is the build date (set at build time)
	BuildDate = "unknown"

	// cfgFile is the path to the config file
	cfgFile string

	// verbose enables verbose output
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialmonitor",
	Short: "Serial Monitor - multi-channel serial port monitoring server",
	Long: `Serial Monitor is a cross-platform serial port monitoring service that runs
on Windows, Linux, and Raspberry Pi. It manages multiple concurrent serial
connections and exposes them over a WebSocket and REST API for any client -
a browser dashboard, a CLI, or a headless integration.

Features:
  • Auto-detect serial ports (USB, native, Bluetooth, virtual)
  • Open/close multiple channels concurrently, each with its own ring buffer
  • Protocol decoding (Modbus RTU and friends) on the raw read path
  • Real-time streaming over WebSocket, plus a REST surface for automation
  • Saved macros and connection profiles, persisted to disk
  • TLS and HTTP Basic auth support

Example usage:
  serialmonitor serve                 Start the monitoring server
  serialmonitor scan                  List available serial ports
  serialmonitor version                Show version information`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext executes the root command with a context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.serialmonitor/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if err := config.InitViper(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if verbose {
		fmt.Printf("Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	return config.Load()
}

// IsVerbose returns whether verbose mode is enabled
func IsVerbose() bool {
	return verbose || viper.GetBool("verbose")
}
