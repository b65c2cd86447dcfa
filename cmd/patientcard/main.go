package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/intervention-engine/patientcard/assessments"
	"github.com/intervention-engine/patientcard/config"
	"github.com/intervention-engine/patientcard/fhir"
	"github.com/intervention-engine/patientcard/loader"
	"github.com/intervention-engine/patientcard/plugin"
	"github.com/intervention-engine/patientcard/report"
	"github.com/intervention-engine/patientcard/server"
	"github.com/intervention-engine/patientcard/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "patientcard",
		Short:        "Diabetes readmission risk cards (demo)",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(publishCmd())
	return rootCmd
}

// newLogger logs JSON to w, or human readable lines in development.
func newLogger(w io.Writer, cfg *config.Config, verbose bool) zerolog.Logger {
	logger := zerolog.New(w).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	if verbose {
		return logger.Level(zerolog.DebugLevel)
	}
	return logger.Level(zerolog.InfoLevel)
}

// setup loads and validates the configuration and builds the logger shared by
// every command.  Command output goes to stdout, logs to stderr.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	return cfg, newLogger(cmd.ErrOrStderr(), cfg, verbose), nil
}

// sourceArg returns the data file named on the command line, or the
// configured one.
func sourceArg(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.DataFile
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the patient card API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			return runServer(cfg, logger)
		},
	}
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pies service.PieStore
	if cfg.MongoURL != "" {
		store, err := service.DialMongoPieStore(cfg.MongoURL, cfg.MongoDB)
		if err != nil {
			return err
		}
		defer store.Close()
		pies = store
		logger.Info().Str("database", cfg.MongoDB).Msg("connected to mongodb")
	}

	var cache service.ResultCache
	if cfg.RedisURL != "" {
		redisCache, err := service.DialRedisResultCache(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		cache = redisCache
		logger.Info().Dur("ttl", cfg.CacheTTL).Msg("connected to redis")
	}

	svc := service.NewReferenceRiskService(assessments.NewDiabetesReadmissionPlugin(), cfg.DataFile, pies, cache, logger)
	if _, err := svc.Reload(ctx); err != nil {
		logger.Error().Err(err).Msg("initial load incomplete")
	}

	basePieURL := cfg.PieBaseURL()
	if cfg.BaseURL == "" {
		basePieURL = discoverSelf(cfg.Port, logger) + "/pies"
	}

	fnDelayer := server.NewFunctionDelayer(cfg.ReloadDelay)
	defer fnDelayer.Stop()

	e := server.NewEcho(logger)
	server.RegisterRoutes(e, svc, basePieURL, fnDelayer, cfg.DataFile, logger)

	if cfg.WatchDataFile {
		watcher, err := server.NewWatcher(cfg.DataFile, cfg.DataFile, fnDelayer, svc, logger)
		if err != nil {
			return err
		}
		go watcher.Run(ctx)
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("pies", basePieURL).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// discoverSelf guesses the URL other hosts can reach this server at, from the
// first IPv4 address of the hostname.
func discoverSelf(port string, logger zerolog.Logger) string {
	selfURL := "http://localhost:" + port
	host, err := os.Hostname()
	if err != nil {
		logger.Warn().Err(err).Msg("unable to read hostname, defaulting to localhost")
		return selfURL
	}
	addrs, err := net.LookupIP(host)
	if err != nil {
		logger.Warn().Err(err).Msg("unable to lookup IP based on hostname, defaulting to localhost")
		return selfURL
	}
	for _, addr := range addrs {
		if ipv4 := addr.To4(); ipv4 != nil && !ipv4.IsLoopback() {
			return "http://" + ipv4.String() + ":" + port
		}
	}
	return selfURL
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score [file]",
		Short: "Score a CSV or .xlsx data file and print the results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			lang, _ := cmd.Flags().GetString("lang")

			l := loader.New(assessments.NewDiabetesReadmissionPlugin(), logger)
			results := l.LoadSource(sourceArg(cfg, args))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			return printTable(cmd.OutOrStdout(), results, lang)
		},
	}
	cmd.Flags().Bool("json", false, "Print results as JSON")
	cmd.Flags().String("lang", "en", "Care plan language (en, es)")
	return cmd
}

func printTable(w io.Writer, results []plugin.PatientRisk, lang string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROOM\tRISK\tBAND\tSOURCE\tPLAN")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID(),
			r.Features.Name,
			r.Features.Room,
			plugin.FormatPercent(r.Result.Score),
			r.Result.Band.Short(),
			r.Result.Provenance,
			assessments.LocalizedPlan(r.Result.Risk, lang),
		)
	}
	return tw.Flush()
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Score a data file and write the results to an Excel workbook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")

			l := loader.New(assessments.NewDiabetesReadmissionPlugin(), logger)
			results := l.LoadSource(sourceArg(cfg, args))
			if err := report.WriteFile(out, results); err != nil {
				return err
			}
			logger.Info().Str("out", out).Int("patients", len(results)).Msg("workbook written")
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "report.xlsx", "Path of the workbook to write")
	return cmd
}

func publishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish [file]",
		Short: "Score a data file and post the risk assessments to a FHIR server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			endpoint, _ := cmd.Flags().GetString("fhir")
			if endpoint == "" {
				endpoint = cfg.FHIREndpoint
			}
			if endpoint == "" {
				return fmt.Errorf("--fhir or FHIR_ENDPOINT is required")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			// Pies are only worth linking when they land in the database the
			// server reads from.
			var pies service.PieStore
			basePieURL := ""
			if cfg.MongoURL != "" {
				store, err := service.DialMongoPieStore(cfg.MongoURL, cfg.MongoDB)
				if err != nil {
					return err
				}
				defer store.Close()
				pies = store
				basePieURL = cfg.PieBaseURL()
			}

			svc := service.NewReferenceRiskService(assessments.NewDiabetesReadmissionPlugin(), sourceArg(cfg, args), pies, nil, logger)
			if _, err := svc.Reload(ctx); err != nil {
				return err
			}
			return svc.Publish(ctx, fhir.NewClient(endpoint), basePieURL)
		},
	}
	cmd.Flags().String("fhir", "", "FHIR server base URL (defaults to FHIR_ENDPOINT)")
	return cmd
}
