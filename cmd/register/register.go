// Package register implements the register and register-template commands.
package register

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notifyhub/notifyhub-go/internal/conf"
	"github.com/notifyhub/notifyhub-go/internal/hub"
	"github.com/notifyhub/notifyhub-go/internal/registration"
)

// Command creates the register command for the native registration.
func Command(settings *conf.Settings) *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "register [pns-handle]",
		Short: "Register the device for native notifications",
		Long:  `Create or update the native registration binding the push handle to the hub.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := hub.NewFromSettings(settings)
			if err != nil {
				return err
			}
			defer client.Close()

			reg, err := client.Register(cmd.Context(), args[0], tags...)
			if err != nil {
				return err
			}
			printRegistration(reg)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Tags to attach to the registration")

	return cmd
}

// TemplateCommand creates the register-template command.
func TemplateCommand(settings *conf.Settings) *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "register-template [pns-handle] [template-name] [template-body]",
		Short: "Register the device with a notification template",
		Long:  `Create or update a named template registration binding the push handle and body template to the hub.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := hub.NewFromSettings(settings)
			if err != nil {
				return err
			}
			defer client.Close()

			reg, err := client.RegisterTemplate(cmd.Context(), args[0], args[1], args[2], tags...)
			if err != nil {
				return err
			}
			printRegistration(reg)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Tags to attach to the registration")

	return cmd
}

func printRegistration(reg *registration.Registration) {
	fmt.Printf("Registered %q as %s\n", reg.Name, reg.RegistrationID)
	if len(reg.Tags) > 0 {
		fmt.Printf("  tags: %v\n", reg.Tags)
	}
	if reg.ExpirationTime != "" {
		fmt.Printf("  expires: %s\n", reg.ExpirationTime)
	}
}
