package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/apresai/storybook/internal/app"
	"github.com/apresai/storybook/internal/config"
	"github.com/apresai/storybook/internal/intake"
	"github.com/apresai/storybook/internal/observability"
	"github.com/apresai/storybook/internal/pipeline"
	"github.com/apresai/storybook/internal/progress"
)

var Version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
}

func (g *globalFlags) loadConfig() (*config.Config, error) {
	return config.Load(g.configPath)
}

// logger is silent unless --verbose; the progress bar owns the terminal.
func (g *globalFlags) logger() *slog.Logger {
	if !g.verbose {
		return observability.Discard()
	}
	return observability.InitLogger(observability.LogOptions{Debug: true})
}

var rootCmd = newRootCmd()

// Execute runs the CLI. ctx is cancelled on interrupt by the caller.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:          "storybook",
		Short:        "Generate personalized, illustrated children's storybooks",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, g, &generateOptions{tui: true, outDir: "."})
		},
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (default "+config.DefaultFile+" when present)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable detailed logging instead of the progress bar")

	root.AddCommand(
		newVersionCmd(),
		newGenerateCmd(g),
		newIntakeCmd(),
		newCheckoutCmd(g),
		newScenesCmd(),
		newInspectCmd(),
		newDeliverCmd(g),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "storybook %s\n", Version)
		},
	}
}

// intakeFlags binds the intake form fields, or a whole encoded token, to
// a command's flags.
type intakeFlags struct {
	token string
	in    intake.Intake
}

func (f *intakeFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.token, "token", "", "Encoded intake token (replaces the field flags)")
	fs.StringVar(&f.in.ChildName, "child-name", "", "Child's name")
	fs.StringVar(&f.in.ChildAge, "child-age", "", "Child's age")
	fs.StringVar(&f.in.ChildInterest, "interest", "", "What the child loves, e.g. dinosaurs")
	fs.StringVar(&f.in.StoryObjective, "objective", "", "What the story should teach")
	fs.StringVar(&f.in.AuthorName, "author", "", "Name shown as the book's author")
	fs.StringVar(&f.in.RecipientEmail, "email", "", "Where the finished book is sent")
	fs.StringVar(&f.in.Language, "language", "", "Story language: en (default) or zh")
	fs.IntVar(&f.in.PageLength, "pages", 0, "Page length: 4, 8 or 12; 0 is the free tier")
}

func (f *intakeFlags) resolve() (intake.Intake, error) {
	if f.token != "" {
		return intake.Decode(f.token)
	}
	return f.in, nil
}

func (f *intakeFlags) empty() bool {
	return f.token == "" && f.in == intake.Intake{}
}

type generateOptions struct {
	intake    intakeFlags
	title     string
	note      string
	output    string
	outDir    string
	skipAudio bool
	skipEmail bool
	tui       bool
}

func newGenerateCmd(g *globalFlags) *cobra.Command {
	o := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a storybook PDF from intake details",
		Long: "Writes the story, narrates it, illustrates every scene, lays out the PDF and emails it.\n" +
			"With no intake flags on a terminal, an interactive form collects the details.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, g, o)
		},
	}
	o.intake.register(cmd)
	f := cmd.Flags()
	f.StringVar(&o.title, "title", "", "Use this title instead of generating one")
	f.StringVar(&o.note, "note", "", "Add a closing note page")
	f.StringVarP(&o.output, "output", "o", "", "Output PDF path (default <title>.pdf in --dir)")
	f.StringVar(&o.outDir, "dir", ".", "Directory for the title-named PDF")
	f.BoolVar(&o.skipAudio, "skip-audio", false, "Skip narration")
	f.BoolVar(&o.skipEmail, "skip-email", false, "Write the PDF without emailing it")
	f.BoolVarP(&o.tui, "tui", "t", false, "Fill in the intake with an interactive form")
	return cmd
}

func runGenerate(cmd *cobra.Command, g *globalFlags, o *generateOptions) error {
	if o.tui || (o.intake.empty() && isatty.IsTerminal(os.Stdin.Fd())) {
		if err := runInteractiveSetup(o); err != nil {
			return err
		}
	}

	in, err := o.intake.resolve()
	if err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return fmt.Errorf("%w (pass --child-name and --email, or --token)", err)
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger := g.logger()

	ctx := cmd.Context()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := pipeline.Options{
		Intake:     in,
		Title:      o.title,
		Note:       o.note,
		OutputPath: o.output,
		OutputDir:  o.outDir,
		SkipAudio:  o.skipAudio,
		SkipEmail:  o.skipEmail,
	}

	// Wire up progress bar when not in verbose mode
	var bar *progress.BarRenderer
	if !g.verbose {
		bar = progress.NewBarRenderer(os.Stdout)
		opts.OnProgress = bar.Handle
	}

	res, err := pipeline.Run(ctx, a.Deps, opts)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "  Warning: %s\n", w)
	}
	if res.Delivered {
		fmt.Fprintf(cmd.OutOrStdout(), "  Emailed to %s\n", in.RecipientEmail)
	}
	return nil
}
