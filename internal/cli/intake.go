package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apresai/storybook/internal/checkout"
	"github.com/apresai/storybook/internal/intake"
)

func newIntakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Encode or decode intake tokens",
	}

	var f intakeFlags
	encode := &cobra.Command{
		Use:   "encode",
		Short: "Encode intake fields into a URL-safe token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.in.Validate(); err != nil {
				return err
			}
			token, err := intake.Encode(f.in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	f.register(encode)
	_ = encode.Flags().MarkHidden("token")

	decode := &cobra.Command{
		Use:   "decode <token>",
		Short: "Print the intake fields carried by a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := intake.Decode(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, in)
		},
	}

	cmd.AddCommand(encode, decode)
	return cmd
}

func newCheckoutCmd(g *globalFlags) *cobra.Command {
	var f intakeFlags
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Print the payment link for an intake",
		Long:  "Encodes the intake and prints the payment link for its page length. The free tier skips payment and prints the download URL.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.resolve()
			if err != nil {
				return err
			}
			if err := in.Validate(); err != nil {
				return err
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			token, err := intake.Encode(in)
			if err != nil {
				return err
			}
			download := checkout.DownloadURL(cfg.Checkout.BaseURL, token)
			out := cmd.OutOrStdout()
			if in.PageLength == 0 {
				fmt.Fprintf(out, "Free tier: %s\n", download)
				return nil
			}

			link, err := checkout.PaymentURL(cfg.Checkout.Links, in.PageLength, download)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d pages, %s\n", in.PageLength, checkout.Price(in.PageLength))
			fmt.Fprintf(out, "Pay: %s\n", link)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
