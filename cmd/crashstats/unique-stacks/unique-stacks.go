package unique_stacks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/sthembisoo/unique-stacks/cmd/crashstats/types"
	"github.com/sthembisoo/unique-stacks/utils/crashstats"
	"github.com/sthembisoo/unique-stacks/utils/logger"
	"github.com/sthembisoo/unique-stacks/utils/report"
	"github.com/sthembisoo/unique-stacks/utils/stacks"
)

const tokenEnv = "CRASHSTATS_API_TOKEN"

// Config holds everything one run needs
type Config struct {
	Signature string
	StartDate string
	EndDate   string
	MaxFrames int

	APIURL    string
	Token     string
	Timeout   time.Duration
	Format    string
	LogLevel  string
	LogFormat string
}

// DefaultConfig returns the configuration used when no flag overrides it
func DefaultConfig() Config {
	return Config{
		MaxFrames: 10,
		APIURL:    crashstats.DefaultAPIURL,
		Format:    report.FormatText,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

func (c Config) validate() error {
	if c.Signature == "" {
		return fmt.Errorf("signature must not be empty")
	}
	if c.MaxFrames < 1 {
		return fmt.Errorf("invalid --max %d: must be a positive integer", c.MaxFrames)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid --timeout %s: must not be negative", c.Timeout)
	}
	if !lo.Contains(report.Formats, strings.ToLower(c.Format)) {
		return fmt.Errorf("invalid --format %q: must be one of %s", c.Format, strings.Join(report.Formats, ", "))
	}
	if !lo.Contains(logger.Levels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid --log-level %q: must be one of %s", c.LogLevel, strings.Join(logger.Levels, ", "))
	}
	if !lo.Contains(logger.Formats, strings.ToLower(c.LogFormat)) {
		return fmt.Errorf("invalid --log-format %q: must be one of %s", c.LogFormat, strings.Join(logger.Formats, ", "))
	}
	return nil
}

func NewCmdUniqueStacks() *cobra.Command {
	cfg := DefaultConfig()

	cmd := &cobra.Command{
		Use:   "unique-stacks [-m <max>] -s <start_date> -e <end_date> <signature>",
		Short: "Get unique stacks from a crash signature",
		Long: `Get unique stacks from a crash signature.

This command will:
1. List the crash reports matching the signature between the two dates
2. Fetch the thread 0 stack of every crash report
3. Keep at most --max frames of each stack, stopping at the event loop
4. Print every distinct stack with how many crashes share it

Examples:
  # Unique stacks of a signature over two days
  unique-stacks -s 2023-01-01 -e 2023-01-02 "OOM | small"

  # Compare only the top 5 frames
  unique-stacks -m 5 -s 2023-01-01 -e 2023-01-02 "OOM | small"

  # Use an API token for protected data (or set CRASHSTATS_API_TOKEN)
  unique-stacks --token YOUR_TOKEN -s 2023-01-01 -e 2023-01-02 "OOM | small"`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Signature = args[0]
			if err := cfg.validate(); err != nil {
				return err
			}

			// Arguments are fine from here on, failures are not usage errors
			cmd.SilenceUsage = true

			if cfg.Token == "" {
				cfg.Token = os.Getenv(tokenEnv)
			}

			log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			return start(cmd.Context(), cfg, cmd.OutOrStdout(), log)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&cfg.MaxFrames, "max", "m", cfg.MaxFrames, "Max stack frames to consider")
	flags.StringVarP(&cfg.StartDate, "start_date", "s", "", "Start date in YYYY-MM-DD format")
	flags.StringVarP(&cfg.EndDate, "end_date", "e", "", "End date in YYYY-MM-DD format")
	flags.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "Base URL of the crash-stats API")
	flags.StringVar(&cfg.Token, "token", "", "crash-stats API token (or set "+tokenEnv+" env var)")
	flags.DurationVar(&cfg.Timeout, "timeout", 0, "Timeout per API request (0 means no timeout)")
	flags.StringVar(&cfg.Format, "format", cfg.Format, "Output format: "+strings.Join(report.Formats, ", "))
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: "+strings.Join(logger.Levels, ", "))
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: "+strings.Join(logger.Formats, ", "))

	_ = cmd.MarkFlagRequired("start_date")
	_ = cmd.MarkFlagRequired("end_date")

	return cmd
}

func start(ctx context.Context, cfg Config, out io.Writer, log *slog.Logger) error {
	client := crashstats.New(cfg.APIURL,
		crashstats.WithToken(cfg.Token),
		crashstats.WithTimeout(cfg.Timeout),
		crashstats.WithLogger(log),
	)

	// List crash reports
	hits, err := client.ListReports(ctx, cfg.Signature, cfg.StartDate, cfg.EndDate)
	if err != nil {
		return fmt.Errorf("error listing crash reports: %w", err)
	}

	if len(hits) == 0 {
		log.Debug("no crash reports found", "signature", cfg.Signature)
	}

	crashIDs := lo.Map(hits, func(hit types.Hit, _ int) string {
		return hit.UUID
	})

	normalizer := stacks.Normalizer{MaxFrames: cfg.MaxFrames, Logger: log}
	groups := stacks.NewGroups()

	for _, crashID := range crashIDs {
		crash, err := client.GetProcessedCrash(ctx, crashID)
		if err != nil {
			return fmt.Errorf("error fetching stack: %w", err)
		}

		frames, err := crash.Thread0Frames()
		if err != nil {
			return fmt.Errorf("error reading stack of crash %s: %w", crashID, err)
		}

		groups.Add(normalizer.Normalize(crashID, frames))
	}

	stackReport := groups.Report()
	log.Debug("grouped crash stacks",
		"signature", cfg.Signature,
		"crashes", stackReport.Total,
		"unique_stacks", groups.Len())

	return report.Write(out, stackReport, cfg.Format)
}
