package commands

import (
	"fmt"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"
)

var vapidCmd = &cobra.Command{
	Use:   "vapid",
	Short: "Generate a VAPID key pair for Web Push",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			return fmt.Errorf("generate VAPID keys: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "# Add these to your .env file")
		fmt.Fprintf(out, "VAPID_PUBLIC_KEY=%s\n", publicKey)
		fmt.Fprintf(out, "VAPID_PRIVATE_KEY=%s\n", privateKey)
		fmt.Fprintln(out, "VAPID_SUBJECT=mailto:admin@example.com")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vapidCmd)
}
