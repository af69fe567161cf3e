package commands

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"pulsebridge/lib/zonestore"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var syncDb *string

func init() {
	syncDb = syncCmd.Flags().String(
		"db", "",
		"Compare against and record into this sqlite database.",
	)
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync [--db <path/to/snapshots.db>]",
	Short: "Prints the portal's sync cursor, flagging changes since the last run.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := createClient(ctx)
		defer signOut(ctx, client)

		res, err := client.PerformSync(ctx)
		if err != nil {
			fatal("failed to fetch sync cursor", err)
		}
		code := res.Info.SyncCode
		fmt.Println(code)

		if *syncDb == "" {
			return
		}

		db, err := sql.Open("sqlite", *syncDb)
		if err != nil {
			fatal("failed to open snapshot db", err)
		}
		defer db.Close()

		store, err := zonestore.NewStore(db)
		if err != nil {
			fatal("failed to initialize snapshot db", err)
		}

		last, at, ok, err := store.LastSync(ctx)
		if err != nil {
			fatal("failed to read last sync cursor", err)
		}
		if ok && last != code {
			slog.Info("portal state changed", "previous", last, "previous_time", at, "current", code)
		}

		err = store.PushSync(ctx, time.Now(), code)
		if err != nil {
			fatal("failed to record sync cursor", err)
		}
	},
}
