package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notifyhub/notifyhub-go/cmd/list"
	"github.com/notifyhub/notifyhub-go/cmd/register"
	"github.com/notifyhub/notifyhub-go/cmd/unregister"
	"github.com/notifyhub/notifyhub-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "notifyhub",
		Short: "NotifyHub registration CLI",
		Long:  `Manage device push registrations against a notification hub.`,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	subcommands := []*cobra.Command{
		register.Command(settings),
		register.TemplateCommand(settings),
		unregister.Command(settings),
		list.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Flag values take precedence over file and environment values
		if err := viper.Unmarshal(settings); err != nil {
			return fmt.Errorf("error syncing flags into settings: %w", err)
		}
		return conf.ValidateSettings(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Hub.Path, "hub", viper.GetString("hub.path"), "Notification hub path")
	rootCmd.PersistentFlags().StringVar(&settings.Hub.ConnectionString, "connection-string", viper.GetString("hub.connectionstring"), "Hub connection string (Endpoint=...;SharedAccessKeyName=...;SharedAccessKey=...)")
	rootCmd.PersistentFlags().StringVar(&settings.Store.Backend, "store", viper.GetString("store.backend"), "Local store backend: memory or sqlite")
	rootCmd.PersistentFlags().StringVar(&settings.Store.Path, "store-path", viper.GetString("store.path"), "SQLite database path for the local store")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("hub.path", rootCmd.PersistentFlags().Lookup("hub")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("hub.connectionstring", rootCmd.PersistentFlags().Lookup("connection-string")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("store.backend", rootCmd.PersistentFlags().Lookup("store")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store-path")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
