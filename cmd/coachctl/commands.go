package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ecojourney/backend/internal/ai"
	"github.com/ecojourney/backend/internal/app"
	"github.com/ecojourney/backend/internal/config"
	"github.com/ecojourney/backend/internal/models"
	"github.com/ecojourney/backend/internal/service"
)

type rootOptions struct {
	envFile      string
	verbose      bool
	offline      bool
	mockResponse string
	file         string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "coachctl",
		Short: "Carbon coaching pipeline tools",
		Long: `coachctl runs the same normalizer, prompt compiler, model gateway and
fallback pipeline as the HTTP server, reading payloads from files.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file overlaid by the environment")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline events to stderr")

	feedbackCmd := &cobra.Command{
		Use:   "feedback",
		Short: "Generate a coaching report for a payload file",
		Long: `Reads a feedback payload ({"category_carbon_data": {...}, "total_carbon_kg": n})
and prints the report JSON string.

Example:
  coachctl feedback --file payload.json --offline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFeedback(cmd, opts)
		},
	}
	feedbackCmd.Flags().StringVarP(&opts.file, "file", "f", "", "payload file, - for stdin")
	feedbackCmd.Flags().BoolVar(&opts.offline, "offline", false, "skip the model and use the fallback report")
	feedbackCmd.Flags().StringVar(&opts.mockResponse, "mock-response", "", "file holding a canned model answer")
	_ = feedbackCmd.MarkFlagRequired("file")

	promptCmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the compiled prompt for a payload file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrompt(cmd, opts)
		},
	}
	promptCmd.Flags().StringVarP(&opts.file, "file", "f", "", "payload file, - for stdin")
	_ = promptCmd.MarkFlagRequired("file")

	badgesCmd := &cobra.Command{
		Use:   "badges",
		Short: "Print the badges earned by an activity list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBadges(cmd, opts)
		},
	}
	badgesCmd.Flags().StringVarP(&opts.file, "file", "f", "", "activities file, - for stdin")
	_ = badgesCmd.MarkFlagRequired("file")

	seedCmd := &cobra.Command{
		Use:   "seed-averages",
		Short: "Write the configured reference averages to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeedAverages(cmd, opts)
		},
	}

	root.AddCommand(feedbackCmd, promptCmd, badgesCmd, seedCmd)
	return root
}

func (o *rootOptions) logger(cmd *cobra.Command) zerolog.Logger {
	if !o.verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		With().Timestamp().Str("service", "coachctl").Logger()
}

func (o *rootOptions) build(cmd *cobra.Command, appOpts app.Options) (config.Config, *app.App, error) {
	cfg, err := config.LoadFile(o.envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	a, err := app.New(cmd.Context(), cfg, o.logger(cmd), appOpts)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, a, nil
}

func runFeedback(cmd *cobra.Command, opts *rootOptions) error {
	body, err := readInput(cmd, opts.file)
	if err != nil {
		return err
	}

	appOpts := app.Options{Offline: opts.offline, SkipDatabase: true}
	if opts.mockResponse != "" {
		canned, err := os.ReadFile(opts.mockResponse)
		if err != nil {
			return fmt.Errorf("read mock response: %w", err)
		}
		appOpts.Generator = &ai.MockGenerator{ModelVersion: "mock", Response: string(canned)}
	}

	_, a, err := opts.build(cmd, appOpts)
	if err != nil {
		return err
	}
	defer a.Close()

	fb, err := a.Feedback.Generate(cmd.Context(), body)
	if err != nil {
		return err
	}
	if opts.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "source=%s model=%s latency=%s\n", fb.Source, fb.Model, fb.Latency.Round(time.Millisecond))
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), fb.JSON)
	return err
}

func runPrompt(cmd *cobra.Command, opts *rootOptions) error {
	body, err := readInput(cmd, opts.file)
	if err != nil {
		return err
	}
	_, a, err := opts.build(cmd, app.Options{Offline: true, SkipDatabase: true})
	if err != nil {
		return err
	}
	defer a.Close()

	profile, err := a.Feedback.Normalizer.Normalize(body)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), a.Feedback.Compiler.Compile(profile))
	return err
}

func runBadges(cmd *cobra.Command, opts *rootOptions) error {
	body, err := readInput(cmd, opts.file)
	if err != nil {
		return err
	}
	var acts []models.Activity
	if err := json.Unmarshal(body, &acts); err != nil {
		return fmt.Errorf("%w: activities must be a JSON array: %v", service.ErrInvalidInput, err)
	}

	_, a, err := opts.build(cmd, app.Options{Offline: true})
	if err != nil {
		return err
	}
	defer a.Close()

	avg := a.Reference.Averages(cmd.Context())
	badges := a.Badges.Evaluate(acts, avg.TotalKg)
	return writeJSON(cmd.OutOrStdout(), struct {
		Badges []models.Badge `json:"badges"`
	}{Badges: badges})
}

func runSeedAverages(cmd *cobra.Command, opts *rootOptions) error {
	cfg, a, err := opts.build(cmd, app.Options{Offline: true})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Store == nil {
		return errors.New("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	avg := cfg.Averages()
	n, err := a.Store.ReplaceAverages(ctx, avg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d averages, total %.2f kg CO2e\n", n, avg.TotalKg)
	return err
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
