package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/funvibe/dcolon/internal/config"
	"github.com/funvibe/dcolon/internal/manifest"
	"github.com/funvibe/dcolon/internal/pipeline"
	"github.com/funvibe/dcolon/internal/report"
	"github.com/funvibe/dcolon/internal/store"
)

// errResolutionFailed is returned when any unit failed to declare or any
// call site stayed unresolved or ambiguous.
var errResolutionFailed = errors.New("resolution failed")

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [manifests...]",
		Short: "Bind every extension call in the given units",
		Long: `Resolve loads each unit manifest, builds its scope tree and extension
registry, and binds every call site. Units whose manifest did not change
since a stored run are served from the store unless --no-cache is set.

` + pathPatternsHelp,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.IntP(parallelFlagName, "p", viper.GetInt(config.KeyResolveParallel), "units resolved concurrently (0 = unlimited)")
	bindFlagToConfig(flags.Lookup(parallelFlagName), config.KeyResolveParallel)

	flags.StringP(formatFlagName, "f", viper.GetString(config.KeyResolveFormat), "report format: text, table or json")
	bindFlagToConfig(flags.Lookup(formatFlagName), config.KeyResolveFormat)

	flags.String(colorFlagName, viper.GetString(config.KeyResolveColor), "colour text reports: auto, always or never")
	bindFlagToConfig(flags.Lookup(colorFlagName), config.KeyResolveColor)

	return cmd
}

// unitJob tracks one manifest from the command line to its report entries.
type unitJob struct {
	path        string
	fingerprint string
	pc          *pipeline.PipelineContext
	entries     []report.Entry
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	format, err := report.ParseFormat(viper.GetString(config.KeyResolveFormat))
	if err != nil {
		return err
	}
	color, err := colorEnabled(viper.GetString(config.KeyResolveColor), stdout)
	if err != nil {
		return err
	}

	files, err := expandManifests(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no manifests found in %v", args)
	}

	logger, closer, err := newLogger(stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}
	useCache := st != nil && !viper.GetBool(config.KeyNoCache)

	jobs := make([]*unitJob, 0, len(files))
	var pending []*pipeline.PipelineContext
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading manifest: %w", err)
		}
		job := &unitJob{path: path, fingerprint: manifest.Fingerprint(data)}
		jobs = append(jobs, job)

		if useCache {
			if entries, ok := cachedEntries(ctx, st, job, logger); ok {
				job.entries = entries
				continue
			}
		}

		pc := pipeline.NewPipelineContext(data, path)
		pc.Logger = logger.With().Str("file", path).Logger()
		job.pc = pipeline.Frontend().Run(pc)
		pending = append(pending, job.pc)
	}

	if err := pipeline.Resolve(ctx, pending, viper.GetInt(config.KeyResolveParallel), logger); err != nil {
		return err
	}

	failedUnits := 0
	var entries []report.Entry
	for _, job := range jobs {
		if job.pc != nil {
			if !job.pc.Declared() {
				failedUnits++
				for _, diag := range job.pc.Errors {
					fmt.Fprintln(stderr, diag.Error())
				}
				logger.Error().Str("file", job.path).Int("errors", len(job.pc.Errors)).Msg("unit not declared")
				continue
			}
			job.entries = report.FromResult(job.pc.Result)
			if st != nil {
				id, err := st.SaveRun(ctx, job.path, job.fingerprint, job.pc.Result)
				if err != nil {
					return err
				}
				logger.Debug().Str("run", id).Str("unit", job.pc.UnitName()).Msg("run stored")
			}
		}
		entries = append(entries, job.entries...)
	}

	if err := report.Write(stdout, format, entries, report.Options{Color: color}); err != nil {
		return err
	}

	summary := report.Summarize(entries)
	logger.Info().Int("units", summary.Units).Int("resolved", summary.Resolved).
		Int("ambiguous", summary.Ambiguous).Int("unresolved", summary.Unresolved).
		Int("failed_units", failedUnits).Msg("resolve finished")

	if failedUnits > 0 || summary.Failed() {
		return fmt.Errorf("%w: %d unit(s) not declared, %d ambiguous, %d unresolved",
			errResolutionFailed, failedUnits, summary.Ambiguous, summary.Unresolved)
	}
	return nil
}

// cachedEntries serves a job from the newest stored run of the same
// manifest content at the same path.
func cachedEntries(ctx context.Context, st *store.Store, job *unitJob, logger zerolog.Logger) ([]report.Entry, bool) {
	run, err := st.LatestRun(ctx, job.path, job.fingerprint)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn().Err(err).Str("file", job.path).Msg("run lookup failed")
		}
		return nil, false
	}
	rows, err := st.Bindings(ctx, run.ID)
	if err != nil {
		logger.Warn().Err(err).Str("run", run.ID).Msg("stored bindings unreadable")
		return nil, false
	}
	logger.Debug().Str("file", job.path).Str("run", run.ID).Msg("served from store")
	return report.FromRows(run.Unit, rows), true
}

// openStore opens the configured run store, or returns nil when the
// store path is empty.
func openStore(ctx context.Context) (*store.Store, error) {
	path := viper.GetString(config.KeyStorePath)
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	return store.Open(ctx, path)
}
