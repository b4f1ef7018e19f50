// Package list implements the list command.
package list

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/notifyhub/notifyhub-go/internal/conf"
	"github.com/notifyhub/notifyhub-go/internal/hub"
)

// Command creates the list command showing locally cached registrations.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List locally cached registrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := hub.NewFromSettings(settings)
			if err != nil {
				return err
			}
			defer client.Close()

			cached, err := client.Registrations()
			if err != nil {
				return err
			}
			if len(cached) == 0 {
				fmt.Println("No cached registrations")
				return nil
			}

			names := make([]string, 0, len(cached))
			for name := range cached {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				fmt.Printf("%s\t%s\n", name, cached[name])
			}
			return nil
		},
	}
}
