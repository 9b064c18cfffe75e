package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"ortkod/internal/pipeline"
	"ortkod/internal/refsheet"
)

func newProcessCmd(a *app) *cobra.Command {
	var input, output string
	var orts []string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process a parts list into a label workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(orts) == 0 {
				return errors.New("--orts is required")
			}
			content, err := os.ReadFile(input)
			if err != nil {
				return errors.WithStack(err)
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			out, err := svc.ProcessUpload(cmd.Context(), content, orts)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, out.Workbook, 0o644); err != nil {
				return errors.WithStack(err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "wrote %s trace=%s\n", output, out.TraceID)
			fmt.Fprintf(w, "valid=%d invalid=%d\n", out.Groups.Len(), len(out.InvalidRows))
			check := out.CodeCheck
			if !check.Success {
				fmt.Fprintf(w, "code check failed: %s\n", check.Error)
				return nil
			}
			fmt.Fprintf(w, "codes checked=%d existing=%d missing=%d unapproved=%d\n",
				check.TotalChecked, check.ExistingCount, check.MissingCount, check.UnapprovedCount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "uploaded .xlsx parts list")
	cmd.Flags().StringVarP(&output, "output", "o", "processed_output.xlsx", "where to write the result workbook")
	cmd.Flags().StringSliceVar(&orts, "orts", nil, "comma separated Ort values to include")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newOrtsCmd(a *app) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "orts",
		Short: "List the distinct Ort values of a parts list",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(input)
			if err != nil {
				return errors.WithStack(err)
			}
			values, err := pipeline.ReadOrtValues(content)
			if err != nil {
				return err
			}
			for _, v := range values {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "uploaded .xlsx parts list")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newCheckCodesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-codes CODE...",
		Short: "Check codes against the reference list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := a.validator(cmd.Context()).CheckCodes(cmd.Context(), args)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return errors.WithStack(enc.Encode(result))
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	var input, kind string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Append a spreadsheet to the shared import sheet",
		Long: fmt.Sprintf(`Reads the first sheet of --input and appends its rows to the import sheet.
--type is one of: %s`, strings.Join(refsheet.ImportTypes(), ", ")),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(input)
			if err != nil {
				return errors.WithStack(err)
			}
			records, err := pipeline.ReadRecords(content)
			if err != nil {
				return err
			}
			_, importer := a.sheets(cmd.Context())
			res, err := importer.Import(cmd.Context(), kind, records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows %s\n", res.Count, res.UpdatedRange)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", ".xlsx file to import")
	cmd.Flags().StringVarP(&kind, "type", "t", "", "import type")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent processing runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			runs, err := db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tTRACE\tROWS\tVALID\tINVALID\tTOTAL MS\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%.0f\t%s\n",
					r.ID, r.TraceID, r.Counts["rows"], r.Counts["valid"], r.Counts["invalid"], r.Timings["totalMs"], r.CreatedAt)
			}
			return errors.WithStack(w.Flush())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs")
	return cmd
}
