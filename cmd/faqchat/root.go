package main

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "./config.yaml"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "faqchat",
		Short: "BEXCO FAQ chat bot",
		Long: `faqchat answers visitor questions over Telegram from a curated dataset
and a generative model, logs every exchange and ranks the most asked questions.

Configuration is read from config.yaml and FAQCHAT_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to configuration file")

	cmd.AddCommand(
		newServeCmd(opts),
		newArchiveCmd(opts),
		newFAQCmd(opts),
		newRecentCmd(opts),
	)
	return cmd
}
