package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCaptureCmd() *cobra.Command {
	var workarea string
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "capture a screenshot and UI tree into --workarea",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getContext(cmd)
			shot, tree, err := c.device.Capture(cmd.Context(), workarea)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", shot, tree)
			return nil
		},
	}
	cmd.Flags().StringVar(&workarea, "workarea", ".", "directory to write current_screenshot.png and current_ui_tree.xml into")
	return cmd
}

func newTapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tap <x> <y>",
		Short: "tap a screen coordinate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("cli: invalid x %q: %w", args[0], err)
			}
			y, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("cli: invalid y %q: %w", args[1], err)
			}
			return getContext(cmd).device.Tap(cmd.Context(), x, y)
		},
	}
}

func newSwipeCmd() *cobra.Command {
	var durationMs int
	cmd := &cobra.Command{
		Use:   "swipe <x1> <y1> <x2> <y2>",
		Short: "swipe from one coordinate to another",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords := make([]int, 4)
			for i, a := range args {
				v, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("cli: invalid coordinate %q: %w", a, err)
				}
				coords[i] = v
			}
			return getContext(cmd).device.Swipe(cmd.Context(), coords[0], coords[1], coords[2], coords[3], durationMs)
		},
	}
	cmd.Flags().IntVar(&durationMs, "duration-ms", 300, "swipe duration in milliseconds")
	return cmd
}

func newPressCmd() *cobra.Command {
	var durationMs int
	cmd := &cobra.Command{
		Use:   "press <x> <y>",
		Short: "long-press a screen coordinate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("cli: invalid x %q: %w", args[0], err)
			}
			y, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("cli: invalid y %q: %w", args[1], err)
			}
			return getContext(cmd).device.Press(cmd.Context(), x, y, durationMs)
		},
	}
	cmd.Flags().IntVar(&durationMs, "duration-ms", 800, "press duration in milliseconds")
	return cmd
}

func newInputCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "input <text>",
		Short: "type text into the focused field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getContext(cmd).device.InputText(cmd.Context(), args[0])
		},
	}
}

func newBackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "back",
		Short: "press the back key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getContext(cmd).device.Back(cmd.Context())
		},
	}
}

func newHomeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "press the home key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getContext(cmd).device.Home(cmd.Context())
		},
	}
}

func newLaunchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch <package> [activity]",
		Short: "launch an app, optionally at a specific activity",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			activity := ""
			if len(args) == 2 {
				activity = args[1]
			}
			return getContext(cmd).device.Launch(cmd.Context(), args[0], activity)
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <package>",
		Short: "force-stop an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getContext(cmd).device.Stop(cmd.Context(), args[0])
		},
	}
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "list connected device serials",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := getContext(cmd).device.GetDevices(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range devices {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
}
