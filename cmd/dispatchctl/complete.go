package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"jobdispatch-backend/models"
	"jobdispatch-backend/services"

	"github.com/spf13/cobra"
)

var jobsCompleteCmd = &cobra.Command{
	Use:   "complete <job-id> --report report.pdf",
	Short: "Complete a job with a report and optional invoice",
	Long: "dispatchctl jobs complete <job-id> --report report.pdf\n" +
		"    [--item \"name:quantity:rate\" ...] [--description D] [--tax PCT] [--notes N]\n\n" +
		"Passing at least one --item attaches an invoice. Totals are computed locally\n" +
		"and recomputed by the server.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportPath, _ := cmd.Flags().GetString("report")
		items, _ := cmd.Flags().GetStringArray("item")
		description, _ := cmd.Flags().GetString("description")
		tax, _ := cmd.Flags().GetFloat64("tax")
		notes, _ := cmd.Flags().GetString("notes")

		draft, err := buildDraft(reportPath, items, description, tax, notes)
		if err != nil {
			return err
		}
		form, err := draft.Submission()
		if err != nil {
			return err
		}
		if form.HasInvoice {
			printTotals(cmd.OutOrStdout(), draft)
		}

		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		var result models.AssignmentResult
		if err := api.postCompletion(args[0], reportPath, form, &result); err != nil {
			return err
		}
		printAssignment(cmd.OutOrStdout(), &result)
		return nil
	},
}

func init() {
	flags := jobsCompleteCmd.Flags()
	flags.String("report", "", "PDF report to upload")
	flags.StringArray("item", nil, "invoice line item as name:quantity:rate (repeatable)")
	flags.String("description", "", "invoice description")
	flags.Float64("tax", 0, "tax percentage")
	flags.String("notes", "", "invoice notes")
}

// buildDraft fills a completion draft the same way the completion form does
func buildDraft(reportPath string, items []string, description string, tax float64, notes string) (*services.CompletionDraft, error) {
	draft := services.NewCompletionDraft()
	if reportPath != "" {
		info, err := os.Stat(reportPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read report: %w", err)
		}
		draft.AttachReport(services.ReportFile{
			FileName:    info.Name(),
			ContentType: "application/pdf",
			Size:        info.Size(),
		})
	}
	if len(items) == 0 {
		return draft, nil
	}

	if err := draft.EnableInvoice(); err != nil {
		return nil, err
	}
	draft.SetDescription(description)
	draft.SetTaxPercentage(tax)
	draft.SetNotes(notes)

	for i, raw := range items {
		name, quantity, rate, err := parseLineItem(raw)
		if err != nil {
			return nil, err
		}
		// the first row is seeded by EnableInvoice
		row := 0
		if i > 0 {
			row = draft.AddLineItem()
		}
		if err := draft.SetItemName(row, name); err != nil {
			return nil, err
		}
		if err := draft.SetItemQuantity(row, quantity); err != nil {
			return nil, err
		}
		if err := draft.SetItemRate(row, rate); err != nil {
			return nil, err
		}
	}
	return draft, nil
}

// parseLineItem reads "name:quantity:rate". The name may itself contain colons.
func parseLineItem(raw string) (string, float64, float64, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 {
		return "", 0, 0, fmt.Errorf("line item %q must be name:quantity:rate", raw)
	}
	n := len(parts)
	name := strings.TrimSpace(strings.Join(parts[:n-2], ":"))
	quantity, err := strconv.ParseFloat(strings.TrimSpace(parts[n-2]), 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("line item %q has an invalid quantity", raw)
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(parts[n-1]), 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("line item %q has an invalid rate", raw)
	}
	return name, quantity, rate, nil
}

func printTotals(w io.Writer, draft *services.CompletionDraft) {
	for _, item := range draft.Items() {
		fmt.Fprintf(w, "  %-30s %8.2f x %10.2f = %10.2f\n", item.Name, item.Quantity, item.Rate, item.Amount)
	}
	subtotal, tax, total := draft.Totals()
	fmt.Fprintf(w, "  %-30s %34.2f\n", "Subtotal", subtotal)
	fmt.Fprintf(w, "  %-30s %34.2f\n", "Tax", tax)
	fmt.Fprintf(w, "  %-30s %34.2f\n", "Total", total)
}
