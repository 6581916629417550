package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apresai/storybook/internal/document"
	"github.com/apresai/storybook/internal/story"
)

func newScenesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scenes [story-file]",
		Short: "Split story text into scenes and illustration prompts",
		Long:  "Reads delimiter-separated story text from a file, or stdin when the file is omitted or \"-\".",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			scenes := story.ParseScenes(text)
			if asJSON {
				return printJSON(cmd, scenes)
			}

			out := cmd.OutOrStdout()
			for i, s := range scenes {
				fmt.Fprintf(out, "%d. %s\n", i+1, s.Text)
				if s.IllustrationPrompt != "" {
					fmt.Fprintf(out, "   (%s)\n", s.IllustrationPrompt)
				}
			}
			fmt.Fprintf(out, "%d scenes\n", len(scenes))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print scenes as JSON")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <pdf-file>",
		Short: "Print the page count and text of a storybook PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			sum, err := document.Inspect(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d pages, %.1f KB\n", args[0], sum.Pages, float64(len(data))/1024)
			for i, text := range sum.Text {
				fmt.Fprintf(out, "\n[page %d]\n", i+1)
				if t := strings.TrimSpace(text); t != "" {
					fmt.Fprintln(out, t)
				}
			}
			return nil
		},
	}
}
