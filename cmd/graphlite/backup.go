package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bowerhall/graphlite/internal/backup"
	"github.com/bowerhall/graphlite/internal/storage"
)

func (a *app) backupManager(cmd *cobra.Command) (*backup.Manager, error) {
	if !a.cfg.Storage.Enabled {
		return nil, fmt.Errorf("object storage is not configured, set MINIO_ACCESS_KEY and MINIO_SECRET_KEY")
	}

	client, err := storage.NewClient(storage.Config{
		Endpoint:  a.cfg.Storage.Endpoint,
		AccessKey: a.cfg.Storage.AccessKey,
		SecretKey: a.cfg.Storage.SecretKey,
		UseSSL:    a.cfg.Storage.UseSSL,
		Bucket:    a.cfg.Backup.Bucket,
	})
	if err != nil {
		return nil, err
	}

	if err := client.Init(cmd.Context()); err != nil {
		return nil, err
	}

	return backup.NewManager(a.store, client, a.cfg.Backup.Keep), nil
}

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the graph to MinIO and restore it",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Upload one snapshot now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.backupManager(cmd)
			if err != nil {
				return err
			}
			name, err := m.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.backupManager(cmd)
			if err != nil {
				return err
			}
			names, err := m.Snapshots(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(a.out, name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore [name]",
		Short: "Replace the graph with a snapshot (default: the newest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.backupManager(cmd)
			if err != nil {
				return err
			}
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			_, err = m.Restore(cmd.Context(), name)
			return err
		},
	})

	var schedule string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled backups until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schedule == "" {
				schedule = a.cfg.Backup.Schedule
			}
			if err := backup.ValidateSchedule(schedule); err != nil {
				return err
			}

			m, err := a.backupManager(cmd)
			if err != nil {
				return err
			}
			return m.Schedule(cmd.Context(), schedule)
		},
	}
	serve.Flags().StringVar(&schedule, "schedule", "", "cron expression (default $BACKUP_SCHEDULE)")
	cmd.AddCommand(serve)

	return cmd
}
