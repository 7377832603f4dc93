package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bwan3150/test-toolkit-studio/internal/ocrsvc"
)

func newOCRCmd() *cobra.Command {
	var mode, param string
	cmd := &cobra.Command{
		Use:   "ocr <screenshot.png>",
		Short: "recognize text regions in a screenshot and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getContext(cmd)
			img, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("cli: read %s: %w", args[0], err)
			}
			adapter := ocrsvc.New(c.settings.OfflineOCRPath)
			if param == "" {
				if mode == string(ocrsvc.ModeOnline) {
					param = c.settings.OCREndpoint
				}
			}
			texts, err := adapter.Recognize(cmd.Context(), img, ocrsvc.Mode(mode), param)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(texts)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(ocrsvc.ModeOnline), "online or offline")
	cmd.Flags().StringVar(&param, "param", "", "endpoint URL (online) or language code (offline); defaults from config")
	return cmd
}
