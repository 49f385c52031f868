package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/util"
)

const version = "0.1.0"

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tempora",
	Short: "Tempora - temporal question answering over a knowledge base",
	Long: `Tempora answers questions that carry a temporal constraint
("who was president in 1995", "who led the UK during World War 2").

It recognizes dates and ordinals in the question, resolves implicit
constraints through sub-questions, retrieves KB facts and Wikipedia
evidences, and keeps only the evidences consistent with the constraint.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := viper.GetString("log.level")
		if verbose {
			level = "debug"
		}
		_, err := util.InitLogger(level, viper.GetString("log.format"))
		return err
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tempora v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.tempora/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig seeds viper with the defaults, then merges the config file and
// TEMPORA_* environment variables over them
func initConfig() {
	viper.SetConfigType("yaml")
	if defaults, err := yaml.Marshal(model.DefaultConfig()); err == nil {
		_ = viper.ReadConfig(bytes.NewReader(defaults))
	}

	// Read in environment variables that match TEMPORA_*
	viper.SetEnvPrefix("TEMPORA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// Keys left out of the defaults by omitempty
	_ = viper.BindEnv("llm.api_key")
	_ = viper.BindEnv("llm.base_url")

	path := cfgFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		path = filepath.Join(home, ".tempora", "config.yaml")
		if _, err := os.Stat(path); err != nil {
			return
		}
	}

	viper.SetConfigFile(path)
	if err := viper.MergeInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", path, err)
		return
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig unmarshals the merged settings over the defaults and validates them
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, eris.Wrap(err, "decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// parseSources turns a comma separated flag into source names; empty keeps the configured ones
func parseSources(flag string, configured []string) ([]string, error) {
	if strings.TrimSpace(flag) == "" {
		return configured, nil
	}
	names := strings.Split(flag, ",")
	if _, err := model.NewSourceSet(names...); err != nil {
		return nil, err
	}
	return names, nil
}
