package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/funvibe/dcolon/internal/config"
)

// setConfigDefaults registers config file lookup, environment binding and
// defaults. Flags read their defaults from Viper, so it runs before any
// command is built.
func setConfigDefaults() {
	viper.SetConfigName(config.ConfigBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(config.KeyResolveParallel, config.DefaultResolveParallel)
	viper.SetDefault(config.KeyResolveFormat, config.DefaultResolveFormat)
	viper.SetDefault(config.KeyResolveColor, config.DefaultResolveColor)
	viper.SetDefault(config.KeyStorePath, config.DefaultStorePath)
	viper.SetDefault(config.KeyNoCache, config.DefaultNoCache)
	viper.SetDefault(config.KeyHistoryLimit, config.DefaultHistoryLimit)

	viper.SetDefault(config.KeyLogFilename, config.DefaultLogFilename)
	viper.SetDefault(config.KeyLogLevel, config.DefaultLogLevel)
	viper.SetDefault(config.KeyLogVerbose, config.DefaultLogVerbose)
	viper.SetDefault(config.KeyLogMaxSize, config.DefaultLogMaxSize)
	viper.SetDefault(config.KeyLogMaxBackups, config.DefaultLogMaxBackups)
	viper.SetDefault(config.KeyLogMaxAge, config.DefaultLogMaxAge)
	viper.SetDefault(config.KeyLogCompress, config.DefaultLogCompress)
}

// readConfig loads the config file. An explicit path must exist; the
// default dcolon.yaml in the working directory is optional.
func readConfig(path string) error {
	if path != "" {
		viper.SetConfigFile(path)
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && path == "" {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// newLogger builds the command logger: a rotating log file and, when
// verbose, a console writer on stderr. The returned closer releases the file.
func newLogger(stderr io.Writer) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if raw := strings.TrimSpace(viper.GetString(config.KeyLogLevel)); raw != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(raw))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid %s %q: %w", config.KeyLogLevel, raw, err)
		}
		level = parsed
	}
	verbose := viper.GetBool(config.KeyLogVerbose)
	if verbose {
		level = zerolog.DebugLevel
	}

	var (
		writers []io.Writer
		closer  io.Closer = nopCloser{}
	)
	if path := strings.TrimSpace(viper.GetString(config.KeyLogFilename)); path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
			}
		}
		file := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    viper.GetInt(config.KeyLogMaxSize),
			MaxBackups: viper.GetInt(config.KeyLogMaxBackups),
			MaxAge:     viper.GetInt(config.KeyLogMaxAge),
			Compress:   viper.GetBool(config.KeyLogCompress),
		}
		writers = append(writers, file)
		closer = file
	}
	if verbose {
		writers = append(writers, zerolog.ConsoleWriter{Out: stderr, NoColor: !isTerminal(stderr)})
	}
	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Str("source", "dcolon").
		Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// colorEnabled decides whether text reports written to w use ANSI colour.
func colorEnabled(mode string, w io.Writer) (bool, error) {
	switch strings.ToLower(mode) {
	case config.ColorAlways:
		return true, nil
	case config.ColorNever:
		return false, nil
	case config.ColorAuto, "":
		return isTerminal(w) && os.Getenv("NO_COLOR") == "", nil
	default:
		return false, fmt.Errorf("invalid color mode %q (want auto, always or never)", mode)
	}
}
