// Package cli provides the dcolon command line: resolving unit manifests,
// browsing stored runs and inspecting configuration.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/funvibe/dcolon/internal/config"
)

const pathPatternsHelp = `Manifests may be given as files, directories (every *.yaml inside) or
recursive patterns:
  - units/a.yaml    a single manifest
  - units           every manifest directly inside units
  - ./...           every manifest below the current directory`

const rootLongDescription = `dcolon resolves static "::" extension method calls.

Each manifest describes one compilation unit: the types the unit knows,
its extension declarations, nested scopes and call sites. dcolon binds
every call site to exactly one extension, or reports it as unresolved or
ambiguous.

` + pathPatternsHelp

const (
	configFlagName   = "config"
	storeFlagName    = "store"
	noCacheFlagName  = "no-cache"
	verboseFlagName  = "verbose"
	logFileFlagName  = "log-file"
	parallelFlagName = "parallel"
	formatFlagName   = "format"
	colorFlagName    = "color"
	limitFlagName    = "limit"
)

var configFileFlag string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	setConfigDefaults()

	cmd := &cobra.Command{
		Use:          "dcolon",
		Short:        "Static extension method resolver",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return readConfig(configFileFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)
	cmd.AddCommand(newResolveCmd(), newHistoryCmd(), newConfigCmd(), newVersionCmd())
	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVar(&configFileFlag, configFlagName, "", "config file (default ./"+config.ConfigFileName+")")

	flags.String(storeFlagName, viper.GetString(config.KeyStorePath), "SQLite run store (empty disables the store)")
	bindFlagToConfig(flags.Lookup(storeFlagName), config.KeyStorePath)

	flags.Bool(noCacheFlagName, viper.GetBool(config.KeyNoCache), "always resolve, ignoring stored runs of unchanged manifests")
	bindFlagToConfig(flags.Lookup(noCacheFlagName), config.KeyNoCache)

	flags.BoolP(verboseFlagName, "v", viper.GetBool(config.KeyLogVerbose), "debug logging, also to stderr")
	bindFlagToConfig(flags.Lookup(verboseFlagName), config.KeyLogVerbose)

	flags.String(logFileFlagName, viper.GetString(config.KeyLogFilename), "log file (empty disables file logging)")
	bindFlagToConfig(flags.Lookup(logFileFlagName), config.KeyLogFilename)
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
