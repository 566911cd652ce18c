package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"jobdispatch-backend/models"
	"jobdispatch-backend/services"

	"github.com/spf13/cobra"
)

var techniciansCmd = &cobra.Command{
	Use:     "technicians",
	Aliases: []string{"techs"},
	Short:   "List technicians and manage capacity",
}

var techniciansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List technicians with their workload",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		query := url.Values{}
		for _, flag := range []string{"availability", "skill", "search"} {
			if value, _ := cmd.Flags().GetString(flag); value != "" {
				query.Set(flag, value)
			}
		}

		var result struct {
			Technicians []*models.TechnicianView `json:"technicians"`
			Total       int                      `json:"total"`
		}
		if err := api.get("/technicians", query, &result); err != nil {
			return err
		}
		printTechnicians(cmd.OutOrStdout(), result.Technicians)
		return nil
	},
}

var techniciansReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recount every technician's active jobs (admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		var report services.ReconcileReport
		if err := api.postJSON("/technicians/reconcile", nil, &report); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "checked %d, corrected %d, skipped %d\n", report.Checked, report.Corrected, report.Skipped)
		if len(report.Drifted) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "drifted: %s\n", strings.Join(report.Drifted, ", "))
		}
		return nil
	},
}

func init() {
	flags := techniciansListCmd.Flags()
	flags.String("availability", "", "Available, Busy, Unavailable or \"On Leave\"")
	flags.String("skill", "", "only technicians with this specialty")
	flags.String("search", "", "match name or email")

	techniciansCmd.AddCommand(techniciansListCmd)
	techniciansCmd.AddCommand(techniciansReconcileCmd)
}

func printTechnicians(w io.Writer, technicians []*models.TechnicianView) {
	if len(technicians) == 0 {
		fmt.Fprintln(w, "No technicians found.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-24s  %-12s  %-7s  %-8s  %s\n", "ID", "NAME", "AVAILABILITY", "LOAD", "WORKLOAD", "SPECIALTIES")
	fmt.Fprintln(w, strings.Repeat("─", 110))
	for _, t := range technicians {
		if t == nil || t.Technician == nil {
			continue
		}
		load := fmt.Sprintf("%d/%d", t.CurrentJobs, t.MaxJobs)
		fmt.Fprintf(w, "%-36s  %-24s  %-12s  %-7s  %-8s  %s\n",
			t.ID, t.Name, t.Availability, load, t.WorkloadLevel, strings.Join(t.Specialties, ", "))
	}
}
