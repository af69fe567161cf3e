package commands

import (
	"context"
	"database/sql"
	"os"
	"time"

	"pulsebridge/lib/scrapers/pulse"
	"pulsebridge/lib/zonestore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var zonesDb *string

func init() {
	zonesDb = zonesCmd.Flags().String(
		"db", "",
		"Record the snapshot into this sqlite database.",
	)
	rootCmd.AddCommand(zonesCmd)
}

var zonesCmd = &cobra.Command{
	Use:   "zones [--db <path/to/snapshots.db>]",
	Short: "Lists every sensor zone and optionally records a snapshot.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := createClient(ctx)
		defer signOut(ctx, client)

		res, err := client.GetZoneStatus(ctx)
		if err != nil {
			fatal("failed to fetch zones", err)
		}
		zones := *res.Info

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Name", "Tags", "State"})
		for _, z := range zones {
			t.AppendRow(table.Row{z.Id, z.Name, z.Tags, z.State})
		}
		t.Render()

		if *zonesDb != "" {
			recordSnapshot(ctx, client, zones, *zonesDb)
		}
	},
}

func recordSnapshot(ctx context.Context, client *pulse.Client, zones []pulse.ZoneRecord, dbPath string) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		fatal("failed to open snapshot db", err)
	}
	defer db.Close()

	store, err := zonestore.NewStore(db)
	if err != nil {
		fatal("failed to initialize snapshot db", err)
	}

	now := time.Now()
	records := make([]zonestore.Zone, len(zones))
	for i, z := range zones {
		records[i] = zonestore.Zone{Id: z.Id, Name: z.Name, Tags: z.Tags, State: z.State}
	}
	err = store.PushZones(ctx, now, records)
	if err != nil {
		fatal("failed to record zone snapshot", err)
	}

	sync, err := client.PerformSync(ctx)
	if err != nil {
		fatal("failed to fetch sync cursor", err)
	}
	err = store.PushSync(ctx, now, sync.Info.SyncCode)
	if err != nil {
		fatal("failed to record sync cursor", err)
	}
}
