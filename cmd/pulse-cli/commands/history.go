package commands

import (
	"database/sql"
	"os"
	"time"

	"pulsebridge/lib/zonestore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var historyDb *string

func init() {
	historyDb = historyCmd.Flags().String(
		"db", "snapshots.db",
		"The sqlite database holding recorded snapshots.",
	)
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <zone-id> [--db <path/to/snapshots.db>]",
	Short: "Shows the recorded state history of one zone.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		db, err := sql.Open("sqlite", *historyDb)
		if err != nil {
			fatal("failed to open snapshot db", err)
		}
		defer db.Close()

		store, err := zonestore.NewStore(db)
		if err != nil {
			fatal("failed to initialize snapshot db", err)
		}

		history, err := store.History(ctx, args[0])
		if err != nil {
			fatal("failed to read zone history", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Time", "Name", "State"})
		for _, snap := range history {
			t.AppendRow(table.Row{snap.Time.Format(time.RFC3339), snap.Name, snap.State})
		}
		t.Render()
	},
}
