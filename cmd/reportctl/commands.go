package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"medreport/internal/config"
	"medreport/internal/inference"
	"medreport/internal/logging"
	"medreport/internal/models"
	"medreport/internal/pipeline"
	"medreport/internal/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Interpret medical reports from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	root.AddCommand(interpretCmd())
	root.AddCommand(artifactsCmd())
	root.AddCommand(migrateCmd())
	return root
}

type interpretOutput struct {
	ReportID       string                   `json:"report_id"`
	Summary        string                   `json:"summary"`
	Patient        models.Patient           `json:"patient"`
	Comparison     []models.ComparisonEntry `json:"vitals_comparison"`
	Observations   []string                 `json:"key_observations"`
	Conclusion     string                   `json:"final_conclusion"`
	PredictedLabel string                   `json:"predicted_label,omitempty"`
	PDFPath        string                   `json:"pdf_path,omitempty"`
	DegradedUnits  []int                    `json:"degraded_units,omitempty"`
}

func interpretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interpret <file>",
		Short: "Interpret one PDF or DOCX report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifactsDir, _ := cmd.Flags().GetString("artifacts")
			outDir, _ := cmd.Flags().GetString("out")
			asJSON, _ := cmd.Flags().GetBool("json")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			level, _ := cmd.Flags().GetString("log-level")

			logger, err := logging.NewWithWriter(cmd.ErrOrStderr(), level, true)
			if err != nil {
				return err
			}
			opts := pipeline.Options{OutDir: outDir, Logger: &logger}
			if artifactsDir != "" {
				svc, err := inference.Load(artifactsDir)
				if err != nil {
					return err
				}
				opts.Predictor = svc
			}

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := pipeline.New(opts).Run(ctx, data, filepath.Base(path))
			if err != nil {
				return fmt.Errorf("interpret %s: %w", path, err)
			}

			out := interpretOutput{
				ReportID:       res.ReportID,
				Summary:        res.SummaryText,
				Patient:        res.Summary.Patient,
				Comparison:     res.Summary.Comparison,
				Observations:   res.Summary.Observations,
				Conclusion:     res.Summary.Conclusion,
				PredictedLabel: res.Summary.PredictedLabel,
				PDFPath:        res.PDFPath,
				DegradedUnits:  res.Degraded,
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			return printInterpretation(cmd, out)
		},
	}
	cmd.Flags().String("artifacts", "", "Model artifacts directory; enables diagnosis")
	cmd.Flags().String("out", "", "Directory for report artifacts and the summary PDF")
	cmd.Flags().Bool("json", false, "Print the interpretation as JSON")
	cmd.Flags().Duration("timeout", 90*time.Second, "Processing deadline")
	return cmd
}

func printInterpretation(cmd *cobra.Command, out interpretOutput) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Report %s\n", out.ReportID)
	fmt.Fprintf(w, "%s\n\n", out.Summary)
	if len(out.Comparison) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "VITAL\tVALUE\tREFERENCE\tSTATUS")
		for _, e := range out.Comparison {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Vital, e.PatientValue, e.Reference, e.Status)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	for _, o := range out.Observations {
		fmt.Fprintf(w, "- %s\n", o)
	}
	if out.PDFPath != "" {
		fmt.Fprintf(w, "\nSummary PDF: %s\n", out.PDFPath)
	}
	if len(out.DegradedUnits) > 0 {
		units := make([]string, len(out.DegradedUnits))
		for i, u := range out.DegradedUnits {
			units[i] = fmt.Sprint(u)
		}
		fmt.Fprintf(w, "Warning: no text from page(s) %s\n", strings.Join(units, ", "))
	}
	return nil
}

func artifactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Inspect model artifacts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <dir>",
		Short: "Load and validate the model artifacts in dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := inference.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "artifacts ok: %d columns, classes %s\n",
				len(svc.Columns()), strings.Join(svc.Classes(), ", "))
			return nil
		},
	})
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load(".env")
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			db, err := storage.NewDB(ctx, cfg.PostgresURL)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
			return nil
		},
	}
}
