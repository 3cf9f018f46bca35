package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/google/maketrace/internal/mtconfig"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "maketrace",
	Short: "Reconstruct semantic build targets from a traced build command",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	mtconfig.BindFlags(v)
	rootCmd.AddCommand(traceCmd)
}
