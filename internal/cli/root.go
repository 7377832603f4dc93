// Package cli assembles the cobra command tree: a default run command
// that drives a full test via the Test Orchestrator, and lower-level
// subcommands that exercise the Device Adapter, OCR Adapter and Tree
// Fetcher standalone — a bridge for scripting and locator authoring
// outside a full run, mirroring the shape of the original toolkit's
// own CLI surface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bwan3150/test-toolkit-studio/internal/config"
	"github.com/bwan3150/test-toolkit-studio/internal/device"
	"github.com/bwan3150/test-toolkit-studio/internal/tracelog"
)

type contextKey struct{}

// cliContext bundles the settings and device adapter shared by every subcommand.
type cliContext struct {
	settings config.Settings
	device   *device.Adapter
}

func getContext(cmd *cobra.Command) *cliContext {
	v := cmd.Context().Value(contextKey{})
	c, _ := v.(*cliContext)
	return c
}

var configPath string

// NewRootCmd builds the tke command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tke",
		Short:         "tke drives AI-assisted mobile UI test execution over ADB",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if err := tracelog.Setup(settings.LogLevel, settings.LogPretty, nil); err != nil {
				return fmt.Errorf("cli: configure logging: %w", err)
			}
			dev := device.New(settings.AdbPath, settings.DeviceID)
			cmd.SetContext(context.WithValue(cmd.Context(), contextKey{}, &cliContext{settings: settings, device: dev}))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	root.PersistentFlags().String("adb_path", "", "path to the adb binary")
	root.PersistentFlags().String("device_id", "", "target device serial (adb -s)")
	root.PersistentFlags().String("log_level", "", "debug, info, warn or error")

	root.AddCommand(newRunCmd())
	root.AddCommand(newCaptureCmd())
	root.AddCommand(newTapCmd())
	root.AddCommand(newSwipeCmd())
	root.AddCommand(newPressCmd())
	root.AddCommand(newInputCmd())
	root.AddCommand(newBackCmd())
	root.AddCommand(newHomeCmd())
	root.AddCommand(newLaunchCmd())
	root.AddCommand(newStopCmd())
	root.AddCommand(newDevicesCmd())
	root.AddCommand(newOCRCmd())
	root.AddCommand(newFetchCmd())

	return root
}
