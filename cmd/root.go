package cmd

import (
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-match/internal/config"
)

const (
	app = "resume-match"
)

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-match scores how well a resume fits a job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-match.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for score commands. If there is no config, we can skip initialization
	if !configRequired() {
		return
	}

	loadDotEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	err := viper.ReadInConfig()
	if err == nil {
		return
	}

	// Defaults are enough when no config file exists in the working directory.
	var notFound viper.ConfigFileNotFoundError
	if cfgFile == "" && errors.As(err, &notFound) {
		return
	}

	// We can't proceed if the config file parsed with error.
	log.Fatal(err)
}

func configRequired() bool {
	return scoreCmd.CalledAs() != "" || scoreBatchCmd.CalledAs() != ""
}

// loadDotEnv reads .env from the working directory. A missing file is not an error.
func loadDotEnv() {
	_ = godotenv.Load()
}
