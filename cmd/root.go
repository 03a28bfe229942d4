// Package cmd is the CLI driver around the core packages. The core itself
// has no command surface; everything here is glue for running cases from
// the shell.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "hybridvem",
	Short: "Hybrid dual VEM discretization of elliptic flow on simplex meshes",
	Long: `hybridvem builds triangle/tetrahedral mesh topology and discretizes
a second order elliptic (Darcy flow) equation with the hybridized dual
virtual element method.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default $HOME/.hybridvem.yaml)")
}

// initConfig loads defaults from a config file when present; a missing file
// is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.SetConfigFile(filepath.Join(home, ".hybridvem.yaml"))
	}
	viper.SetEnvPrefix("hybridvem")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
