package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func makeAdminLogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "List upload logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			logs, err := client.LoadUploadLogs()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tFILE\tUPLOADED BY\tSTATUS\tROWS\tERROR")
			for _, log := range logs {
				uploader := "?"
				if log.UploadedBy != nil {
					uploader = log.UploadedBy.Email
				}
				fmt.Fprintf(w, "%s ago\t%s\t%s\t%s\t%d/%d\t%s\n",
					units.HumanDuration(time.Since(log.Timestamp)),
					log.FileName,
					uploader,
					log.Status,
					log.RowsInserted,
					log.RowsInserted+log.RowsFailed,
					log.Error,
				)
			}
			return w.Flush()
		},
	}
}

func makeAdminTeachersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "teachers",
		Short: "List teacher accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			teachers, err := client.LoadTeachers()
			if err != nil {
				return err
			}
			for _, teacher := range teachers {
				fmt.Printf("%d\t%s\t%s\n", teacher.ID, teacher.Name, teacher.Email)
			}
			return nil
		},
	}
}

func makeAdminStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Ingestion totals since the server start",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			stats, err := client.LoadStats()
			if err != nil {
				return err
			}
			return dump(stats)
		},
	}
}
