package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"jobdispatch-backend/models"
	"jobdispatch-backend/utils"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List and act on jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs with filters, sorting and paging",
	Long: "dispatchctl jobs list [--status S] [--type T] [--priority P] [--search Q]\n" +
		"                       [--from YYYY-MM-DD] [--to YYYY-MM-DD] [--sort priority|dueDate] [--order asc|desc]\n" +
		"                       [--page N] [--limit N]",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		var result models.JobListResponse
		if err := api.get("/jobs", listQuery(cmd), &result); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printJobs(out, result.Jobs)
		p := result.Pagination
		fmt.Fprintf(out, "\npage %d of %d (%d jobs)\n", p.Page, p.TotalPages, p.Total)
		s := result.Statistics
		fmt.Fprintf(out, "pending %d  scheduled %d  completed %d  overdue %d  cancelled %d\n",
			s.Pending, s.Scheduled, s.Completed, s.Overdue, s.Cancelled)
		return nil
	},
}

// listQuery copies the set list flags into query parameters
func listQuery(cmd *cobra.Command) url.Values {
	query := url.Values{}
	params := map[string]string{
		"status":   "status",
		"type":     "type",
		"priority": "priority",
		"search":   "search",
		"from":     "fromDate",
		"to":       "toDate",
		"sort":     "sort",
		"order":    "order",
	}
	for flag, param := range params {
		if value, _ := cmd.Flags().GetString(flag); value != "" {
			query.Set(param, value)
		}
	}
	for _, flag := range []string{"page", "limit"} {
		if value, _ := cmd.Flags().GetInt(flag); value > 0 {
			query.Set(flag, strconv.Itoa(value))
		}
	}
	return query
}

var jobsAvailableCmd = &cobra.Command{
	Use:   "available",
	Short: "List jobs a technician can claim",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		var result struct {
			Jobs  []*models.Job `json:"jobs"`
			Total int           `json:"total"`
		}
		if err := api.get("/jobs/available", nil, &result); err != nil {
			return err
		}
		if result.Total == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No jobs available.")
			return nil
		}
		printJobs(cmd.OutOrStdout(), result.Jobs)
		return nil
	},
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <job-id|JOB-number>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		var job models.Job
		if err := api.get("/jobs/"+url.PathEscape(args[0]), nil, &job); err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			fmt.Fprintln(cmd.OutOrStdout(), utils.PrintPrettyJSON(job))
			return nil
		}
		printJobDetail(cmd.OutOrStdout(), &job)
		return nil
	},
}

var jobsAssignCmd = &cobra.Command{
	Use:   "assign <job-id> <technician-id>",
	Short: "Assign a job to a technician",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		var result models.AssignmentResult
		body := models.AssignJobRequest{TechnicianID: args[1]}
		if err := api.postJSON("/jobs/"+url.PathEscape(args[0])+"/assign", body, &result); err != nil {
			return err
		}
		printAssignment(cmd.OutOrStdout(), &result)
		return nil
	},
}

var jobsClaimCmd = &cobra.Command{
	Use:   "claim <job-id>",
	Short: "Claim a job as the technician in the token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		var result models.AssignmentResult
		if err := api.postJSON("/jobs/"+url.PathEscape(args[0])+"/claim", nil, &result); err != nil {
			return err
		}
		printAssignment(cmd.OutOrStdout(), &result)
		return nil
	},
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id> <status>",
	Short: "Set a job's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := models.JobStatus(args[1])
		if !status.IsValid() {
			return fmt.Errorf("unknown status %q", args[1])
		}
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		var result models.AssignmentResult
		body := models.UpdateJobStatusRequest{Status: status}
		if err := api.patchJSON("/jobs/"+url.PathEscape(args[0])+"/status", body, &result); err != nil {
			return err
		}
		printAssignment(cmd.OutOrStdout(), &result)
		return nil
	},
}

func init() {
	flags := jobsListCmd.Flags()
	flags.String("status", "", "Pending, Scheduled, Completed, Overdue or Cancelled")
	flags.String("type", "", "job type, e.g. Gas or \"Pool Safety\"")
	flags.String("priority", "", "Low, Medium, High or Urgent")
	flags.String("search", "", "match job number, address, type or technician")
	flags.String("from", "", "earliest due date (YYYY-MM-DD)")
	flags.String("to", "", "latest due date (YYYY-MM-DD)")
	flags.String("sort", "", "priority or dueDate")
	flags.String("order", "", "asc or desc")
	flags.Int("page", 0, "page number")
	flags.Int("limit", 0, "jobs per page")

	jobsGetCmd.Flags().Bool("json", false, "print the raw job as JSON")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsAvailableCmd)
	jobsCmd.AddCommand(jobsGetCmd)
	jobsCmd.AddCommand(jobsAssignCmd)
	jobsCmd.AddCommand(jobsClaimCmd)
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsCompleteCmd)
}

func technicianName(job *models.Job) string {
	if job.AssignedTechnician == nil {
		return "-"
	}
	if job.AssignedTechnician.Name != "" {
		return job.AssignedTechnician.Name
	}
	return job.AssignedTechnician.ID
}

func dueDate(job *models.Job) string {
	if job.DueDate.IsZero() {
		return "-"
	}
	return job.DueDate.Format("2006-01-02")
}

func printJobs(w io.Writer, jobs []*models.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found.")
		return
	}
	fmt.Fprintf(w, "%-12s  %-10s  %-8s  %-18s  %-10s  %-20s  %s\n", "JOB", "STATUS", "PRIORITY", "TYPE", "DUE", "TECHNICIAN", "ADDRESS")
	fmt.Fprintln(w, strings.Repeat("─", 110))
	for _, job := range jobs {
		fmt.Fprintf(w, "%-12s  %-10s  %-8s  %-18s  %-10s  %-20s  %s\n",
			job.JobNumber, job.Status, job.Priority, job.JobType, dueDate(job), technicianName(job), job.PropertyAddress)
	}
}

func printJobDetail(w io.Writer, job *models.Job) {
	fmt.Fprintf(w, "Job:         %s (%s)\n", job.JobNumber, job.ID)
	fmt.Fprintf(w, "Status:      %s\n", job.Status)
	fmt.Fprintf(w, "Type:        %s\n", job.JobType)
	fmt.Fprintf(w, "Priority:    %s\n", job.Priority)
	fmt.Fprintf(w, "Due:         %s\n", dueDate(job))
	fmt.Fprintf(w, "Address:     %s\n", job.PropertyAddress)
	fmt.Fprintf(w, "Technician:  %s\n", technicianName(job))
	if job.CompletedAt != nil {
		fmt.Fprintf(w, "Completed:   %s\n", job.CompletedAt.Format("2006-01-02 15:04"))
	}
	if job.Invoice != nil {
		fmt.Fprintf(w, "Invoice:     %.2f (tax %.2f)\n", job.Invoice.TotalCost, job.Invoice.Tax)
	}
}

func printAssignment(w io.Writer, result *models.AssignmentResult) {
	if result.Job != nil {
		fmt.Fprintf(w, "%s is %s, technician %s\n", result.Job.JobNumber, result.Job.Status, technicianName(result.Job))
	}
	if t := result.Technician; t != nil {
		fmt.Fprintf(w, "%s now has %d/%d jobs (%s)\n", t.Name, t.CurrentJobs, t.MaxJobs, t.Availability)
	}
}
