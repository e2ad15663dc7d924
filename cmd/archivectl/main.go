package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-archive/pkg/config"
	"github.com/redbco/redb-archive/pkg/logger"
)

var (
	configFile string
	overrides  []string

	// Build information, set with -ldflags.
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"

	cfg *config.Config
	log *logger.Logger
)

func printVersionInfo() {
	fmt.Printf("archivectl %s\n", Version)
	fmt.Printf("Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "archivectl",
	Short: "Database preservation archive tool",
	Long: "Exports database tables into a preservation archive, verifies archived content " +
		"and inspects the type mapping between databases and the archive.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Lookup("version") != nil && cmd.Flags().Lookup("version").Changed {
			printVersionInfo()
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initConfig loads the configuration file, if any, and applies --set
// overrides on top.
func initConfig() error {
	var err error
	if configFile != "" {
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}

	o := config.NewOverrides()
	for _, pair := range overrides {
		if err := o.Set(pair); err != nil {
			return err
		}
	}
	if err := o.Apply(cfg); err != nil {
		return err
	}

	log = logger.New("archivectl", Version)
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringArrayVar(&overrides, "set", nil, "Override a config value (key=value), repeatable")

	rootCmd.Flags().Bool("version", false, "Show version information and exit")

	cobra.OnInitialize(func() {
		if err := initConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
			os.Exit(1)
		}
	})

	setupCommands()
}

func main() {
	Execute()
}
