// Package unregister implements the unregister command.
package unregister

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notifyhub/notifyhub-go/internal/conf"
	"github.com/notifyhub/notifyhub-go/internal/hub"
)

// Command creates the unregister command. With no flags it removes the
// native registration; --template removes a named template registration and
// --all removes every registration for the given push handle.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		templateName string
		all          bool
	)

	cmd := &cobra.Command{
		Use:   "unregister [pns-handle]",
		Short: "Remove registrations from the hub",
		Long: `Remove the native registration, a named template registration, or with
--all every registration known for the push handle.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && len(args) != 1 {
				return fmt.Errorf("--all requires the pns-handle argument")
			}

			client, err := hub.NewFromSettings(settings)
			if err != nil {
				return err
			}
			defer client.Close()

			switch {
			case all:
				if err := client.UnregisterAll(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Println("Removed all registrations")
			case templateName != "":
				if err := client.UnregisterTemplate(cmd.Context(), templateName); err != nil {
					return err
				}
				fmt.Printf("Removed template registration %q\n", templateName)
			default:
				if err := client.Unregister(cmd.Context()); err != nil {
					return err
				}
				fmt.Println("Removed native registration")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&templateName, "template", "", "Name of the template registration to remove")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every registration for the push handle")

	return cmd
}
