package main

import (
	"fmt"
	"os"

	"github.com/franz/manga-mirror/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "mms",
		Short: "Manga Mirror Sync - incremental manga catalog mirroring",
		Long: `mms (Manga Mirror Sync) keeps a local mirror of manga series in sync
with their source site. It diffs the advertised chapter list against
what has already been persisted, fetches only what is missing or
incomplete, and records every chapter outcome in a resumable ledger.`,
		Version: Version,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/mms.yaml)")
	rootCmd.PersistentFlags().String("db", "mms-state.db", "state database file")
	rootCmd.PersistentFlags().String("base-url", "", "catalog base URL (default is the mangaread.org manga root)")
	rootCmd.PersistentFlags().Bool("mirror-media", false, "download panel images into a local media tree")
	rootCmd.PersistentFlags().String("media-root", "media", "root directory for mirrored panel images")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	viper.BindPFlag("mirror_media", rootCmd.PersistentFlags().Lookup("mirror-media"))
	viper.BindPFlag("media_root", rootCmd.PersistentFlags().Lookup("media-root"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("mms")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("MMS")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
