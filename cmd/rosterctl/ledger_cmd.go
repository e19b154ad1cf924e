package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/noah-isme/roster-ledger-api/internal/dto"
	"github.com/noah-isme/roster-ledger-api/internal/models"
	"github.com/noah-isme/roster-ledger-api/internal/repository"
	"github.com/noah-isme/roster-ledger-api/internal/service"
	"github.com/noah-isme/roster-ledger-api/internal/validation"
	"github.com/noah-isme/roster-ledger-api/pkg/tabular"
)

func newImportCmd(e *env) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "import <file.csv|file.xlsx>",
		Short: "Bulk add workers from a CSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			store, err := e.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			svc := service.NewImportService(store, tabular.Reader{MaxBytes: e.cfg.Import.MaxFileSizeBytes}, e.logger, nil)
			res, err := svc.Import(cmd.Context(), filepath.Base(args[0]), f, actor)
			if err != nil {
				return err
			}
			return writeJSON(res)
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "rosterctl", "Username recorded in the audit log")
	return cmd
}

func newExportCmd(e *env) *cobra.Command {
	var (
		q   dto.ExportQuery
		out string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the roster or audit table to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			file, err := service.NewExportService(store, e.logger, nil, nil, nil).Export(cmd.Context(), q)
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = file.Filename
			}
			if err := os.WriteFile(path, file.Data, 0o640); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			return writeJSON(map[string]any{"file": path, "rows": file.Rows, "revision": file.Revision})
		},
	}
	cmd.Flags().StringVar(&q.Table, "table", service.ExportTableRecords, "records or audit")
	cmd.Flags().StringVar(&q.Format, "format", service.ExportFormatCSV, "csv, xlsx or pdf")
	cmd.Flags().StringVar(&q.Scope, "scope", service.ExportScopeCurrent, "current or ledger")
	cmd.Flags().StringVar(&q.Search, "search", "", "Name, record id, CNIC or vehicle filter")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output path (defaults to the generated file name)")
	return cmd
}

func newVerifyCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the loaded ledger is internally consistent",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			ok := store.Verify()
			if err := writeJSON(map[string]any{"consistent": ok, "stats": store.Stats()}); err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("projection does not match the ledger")
			}
			return nil
		},
	}
}

func newUserCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API credentials",
	}

	var (
		password string
		role     string
	)
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create or replace a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := service.NewAuthService(repository.NewCredentialsRepository(e.cfg.Credentials.File), validation.New(), e.logger, service.AuthConfig{})
			if err := svc.AddUser(cmd.Context(), args[0], password, models.UserRole(role)); err != nil {
				return err
			}
			return writeJSON(map[string]string{"username": args[0], "role": role})
		},
	}
	add.Flags().StringVar(&password, "password", "", "Password (required)")
	add.Flags().StringVar(&role, "role", string(models.RoleUser), "admin or user")
	_ = add.MarkFlagRequired("password")

	cmd.AddCommand(add)
	return cmd
}
