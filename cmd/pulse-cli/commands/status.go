package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the security panel's identity and current arm state.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := createClient(ctx)
		defer signOut(ctx, client)

		res, err := client.GetDeviceStatus(ctx)
		if err != nil {
			fatal("failed to fetch device status", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendRows([]table.Row{
			{"Name", res.Info.Name},
			{"Manufacturer", res.Info.Make},
			{"Type", res.Info.Type},
			{"State", res.Info.State},
			{"Status", res.Info.Status},
		})
		t.Render()
	},
}
