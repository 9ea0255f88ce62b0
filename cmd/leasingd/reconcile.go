package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bibbank/leasing/internal/application/dto"
)

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().StringP("agreement", "a", "", "Reconcile only this agreement")
	reconcileCmd.Flags().String("as-of", "", "Reconciliation date (YYYY-MM-DD), defaults to today")
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation pass and print the report",
	Long: `Reconcile one agreement, or every open agreement and every agreement with
pending payments when --agreement is omitted. The report is printed as JSON.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	agreementID, _ := cmd.Flags().GetString("agreement")
	rawAsOf, _ := cmd.Flags().GetString("as-of")

	var asOf time.Time
	if rawAsOf != "" {
		t, err := time.Parse(time.DateOnly, rawAsOf)
		if err != nil {
			return fmt.Errorf("invalid --as-of %q: %w", rawAsOf, err)
		}
		asOf = t
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	app, err := newEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	var report dto.ReconciliationReportResponse
	if agreementID != "" {
		report, err = app.uc.Reconcile.Execute(ctx, dto.ReconcileRequest{AgreementID: agreementID, AsOf: asOf})
	} else {
		report, err = app.uc.ReconcileAll.Execute(ctx, dto.ReconcileAllRequest{AsOf: asOf})
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
