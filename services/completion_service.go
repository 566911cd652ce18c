package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"jobdispatch-backend/models"
	"jobdispatch-backend/repository"
	"jobdispatch-backend/utils/logger"
)

var pdfMagic = []byte("%PDF-")

type CompletionService struct {
	store    *jobStore
	reports  repository.ReportRepositoryInterface
	guard    ActionGuard
	maxBytes int64
	logger   logger.Logger
	now      func() time.Time
}

func NewCompletionService(
	jobRepo repository.JobRepositoryInterface,
	techRepo repository.TechnicianRepositoryInterface,
	assignRepo repository.AssignmentRepositoryInterface,
	reports repository.ReportRepositoryInterface,
	guard ActionGuard,
	config *models.Config,
	logger logger.Logger,
) *CompletionService {
	var maxBytes int64
	if config != nil {
		maxBytes = config.ReportMaxBytes
	}
	return &CompletionService{
		store:    newJobStore(jobRepo, techRepo, assignRepo, logger),
		reports:  reports,
		guard:    guard,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
	}
}

// CompleteJob stores the report and, in one write, marks the job Completed
// with its invoice and moves the technician's slot to their completed count.
// A report uploaded for a failed write is removed again.
func (s *CompletionService) CompleteJob(ctx context.Context, jobID string, actor models.Actor, submission *CompletionSubmission) (*models.AssignmentResult, error) {
	if submission == nil {
		submission = &CompletionSubmission{}
	}
	req := submission.Request

	fields := FieldErrors{}
	body := s.checkReport(submission.Report, fields)
	if req.HasInvoice {
		ValidateInvoice(req.Invoice, fields)
	}
	if err := fields.Err("completion form is incomplete"); err != nil {
		return nil, err
	}

	job, err := s.store.job(ctx, jobID)
	if err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, ActionComplete, job.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.checkCompletable(job, actor); err != nil {
		return nil, err
	}

	report := submission.Report
	artifact, err := s.reports.SaveReport(ctx, job.ID, report.FileName, PDFContentType, report.Size, body)
	if err != nil {
		s.logger.Errorf("Failed to store report for job %s: %v", job.JobNumber, err)
		return nil, storeError(err, "failed to store report")
	}

	completedAt := s.now().UTC()
	next := *job
	next.Status = models.JobStatusCompleted
	next.CompletedAt = &completedAt
	next.Report = artifact
	next.HasInvoice = req.HasInvoice
	next.Invoice = nil
	if req.HasInvoice {
		next.Invoice = FinalizeInvoice(req.Invoice)
	}
	next.UpdatedBy = actor.UserID

	technicianID := job.AssignedTechnicianID()
	counters, err := s.store.guardReleases(ctx, []repository.CounterDelta{
		{TechnicianID: technicianID, CurrentJobs: -1, CompletedJobs: 1},
	})
	if err != nil {
		s.discard(artifact)
		return nil, err
	}

	mutation := &repository.JobMutation{
		Job:             &next,
		ExpectedVersion: job.Version,
		ExpectedStatus:  job.Status,
		Counters:        counters,
	}
	if err := s.store.commit(ctx, mutation); err != nil {
		s.discard(artifact)
		return nil, err
	}

	logFields := map[string]interface{}{
		"job":        next.JobNumber,
		"technician": technicianID,
		"invoice":    next.HasInvoice,
	}
	if next.Invoice != nil {
		logFields["total"] = next.Invoice.TotalCost
	}
	s.logger.WithFields(logFields).Info("Job completed")
	return s.store.snapshot(ctx, &next, technicianID), nil
}

// checkReport validates the upload and returns a reader over its full
// content, or nil after recording why it was refused
func (s *CompletionService) checkReport(report *ReportUpload, fields FieldErrors) io.Reader {
	switch {
	case report == nil || report.Body == nil:
		fields.Add("report", "a report file is required")
		return nil
	case !IsPDF(report.FileName, report.ContentType):
		fields.Add("report", "report must be a PDF document")
		return nil
	case report.Size <= 0:
		fields.Add("report", "report file is empty")
		return nil
	case s.maxBytes > 0 && report.Size > s.maxBytes:
		fields.Add("report", fmt.Sprintf("report must not exceed %d bytes", s.maxBytes))
		return nil
	}

	head := make([]byte, len(pdfMagic))
	n, _ := io.ReadFull(report.Body, head)
	if !bytes.Equal(head[:n], pdfMagic) {
		fields.Add("report", "report is not a valid PDF document")
		return nil
	}
	return io.MultiReader(bytes.NewReader(head[:n]), report.Body)
}

func (s *CompletionService) checkCompletable(job *models.Job, actor models.Actor) error {
	if job.Status != models.JobStatusScheduled && job.Status != models.JobStatusOverdue {
		return preconditionError("job %s is %s and cannot be completed", job.JobNumber, job.Status)
	}
	if !job.IsAssigned() {
		return preconditionError("job %s has no assigned technician", job.JobNumber)
	}
	if !actor.IsPrivileged() && actor.TechnicianID != job.AssignedTechnicianID() {
		return preconditionError("only the assigned technician can complete job %s", job.JobNumber)
	}
	if !CompletionDateReached(job.DueDate, s.now()) {
		return preconditionError("job %s cannot be completed before its due date %s",
			job.JobNumber, job.DueDate.Format("2006-01-02"))
	}
	return nil
}

// discard removes a report whose job write did not happen
func (s *CompletionService) discard(artifact *models.ReportArtifact) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.reports.DeleteReport(ctx, artifact.ObjectKey); err != nil {
		s.logger.Warnf("Orphaned report %s could not be removed: %v", artifact.ObjectKey, err)
	}
}
