package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix = "REACTIONIMAGE"

	apiKeyKey       = "api_key"
	maxPollsKey     = "max_polls"
	pollIntervalKey = "poll_interval"
	verboseKey      = "verbose"
)

// newConfig reads REACTIONIMAGE_* variables; flags are bound onto it by the subcommands.
func newConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// MODELSCOPE_API_KEY is accepted as a fallback.
	_ = v.BindEnv(apiKeyKey, envPrefix+"_API_KEY", "MODELSCOPE_API_KEY")
	return v
}

func newRootCommand(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:          "reactionimage",
		Short:        "Generate teaching illustrations of chemical reactions",
		SilenceUsage: true,
	}
	root.AddCommand(newGenerateCommand(v))
	return root
}
