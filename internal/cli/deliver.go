package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/apresai/storybook/internal/app"
	"github.com/apresai/storybook/internal/mailer"
	"github.com/apresai/storybook/internal/storage"
)

type deliverOptions struct {
	email    string
	title    string
	language string
	audio    string
	audioURL string
}

func newDeliverCmd(g *globalFlags) *cobra.Command {
	o := &deliverOptions{}
	cmd := &cobra.Command{
		Use:   "deliver <pdf-file>",
		Short: "Email an existing storybook PDF",
		Long: "Emails a finished PDF to a recipient. A narration file given with --audio is uploaded first\n" +
			"and linked from the email. The title defaults to the file name.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeliver(cmd, g, o, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.email, "email", "", "Recipient email address (required)")
	f.StringVar(&o.title, "title", "", "Book title (default from the file name)")
	f.StringVar(&o.language, "language", "en", "Email language: en or zh")
	f.StringVar(&o.audio, "audio", "", "Narration file to upload and link")
	f.StringVar(&o.audioURL, "audio-url", "", "Link to narration that is already hosted")
	_ = cmd.MarkFlagRequired("email")
	cmd.MarkFlagsMutuallyExclusive("audio", "audio-url")
	return cmd
}

func runDeliver(cmd *cobra.Command, g *globalFlags, o *deliverOptions, pdfPath string) error {
	out := cmd.OutOrStdout()

	// 1. Validate PDF
	if !strings.EqualFold(filepath.Ext(pdfPath), ".pdf") {
		return fmt.Errorf("file must have .pdf extension: %s", pdfPath)
	}
	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return fmt.Errorf("cannot read file: %w", err)
	}
	if len(pdf) == 0 {
		return fmt.Errorf("file is empty: %s", pdfPath)
	}
	fmt.Fprintf(out, "File: %s (%.1f MB)\n", pdfPath, float64(len(pdf))/(1024*1024))

	title := o.title
	if title == "" {
		title = titleFromFile(pdfPath)
	}
	fmt.Fprintf(out, "Title: %s\n", title)

	// 2. Resolve storage and mail
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	up, sender, err := app.BuildDelivery(ctx, cfg)
	if err != nil {
		return err
	}
	if sender == nil {
		return fmt.Errorf("no mail provider configured: set mail.provider or MAIL_PROVIDER")
	}

	// 3. Upload narration
	audioURL := o.audioURL
	if o.audio != "" {
		if up == nil {
			return fmt.Errorf("--audio needs object storage: set storage.bucket and storage.public_base_url")
		}
		data, err := os.ReadFile(o.audio)
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(o.audio)), ".")
		fmt.Fprint(out, "Uploading narration...")
		err = deliverRetry(ctx, func() error {
			_, audioURL, err = up.Upload(ctx, storage.AudioKey(title, ext), data, audioContentType(ext))
			return err
		})
		if err != nil {
			fmt.Fprintln(out, " failed")
			return fmt.Errorf("upload narration: %w", err)
		}
		fmt.Fprintln(out, " done")
	}

	// 4. Send
	fmt.Fprintf(out, "Emailing %s...", o.email)
	msg := mailer.Compose(o.language, o.email, title, audioURL, pdf)
	if err := deliverRetry(ctx, func() error { return sender.Send(ctx, msg) }); err != nil {
		fmt.Fprintln(out, " failed")
		return fmt.Errorf("send email: %w", err)
	}
	fmt.Fprintln(out, " done")

	fmt.Fprintf(out, "\nDelivered: %s\n", title)
	if audioURL != "" {
		fmt.Fprintf(out, "  Audio: %s\n", audioURL)
	}
	return nil
}

// titleFromFile reverses the PDF naming: "Mia_and_the_Moon.pdf" becomes
// "Mia and the Moon".
func titleFromFile(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(name, "_", " ")
}

func audioContentType(ext string) string {
	switch ext {
	case "wav":
		return "audio/wav"
	case "ogg":
		return "audio/ogg"
	default:
		return "audio/mpeg"
	}
}

var deliverBackoffs = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

func deliverRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < len(deliverBackoffs); attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == len(deliverBackoffs)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(deliverBackoffs[attempt]):
		}
	}
	return lastErr
}
