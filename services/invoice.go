package services

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"jobdispatch-backend/models"
)

// PDFContentType is the only accepted report format
const PDFContentType = "application/pdf"

// round2 rounds half away from zero to cents
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeInvoice recomputes every amount and total from quantities, rates and
// the tax percentage. Client supplied amounts and totals are ignored.
// Amounts are rounded per row and the subtotal is their sum, so the stored
// figures always add up: subtotal = sum(amount), total = subtotal + tax.
func ComputeInvoice(items []models.LineItem, taxPercentage float64) models.Invoice {
	computed := make([]models.LineItem, len(items))
	subtotal := 0.0
	for i, item := range items {
		amount := round2(item.Quantity * item.Rate)
		subtotal += amount
		computed[i] = models.LineItem{
			Name:     strings.TrimSpace(item.Name),
			Quantity: item.Quantity,
			Rate:     item.Rate,
			Amount:   amount,
		}
	}
	subtotal = round2(subtotal)
	tax := round2(subtotal * taxPercentage / 100)

	return models.Invoice{
		Items:         computed,
		Subtotal:      subtotal,
		TaxPercentage: taxPercentage,
		Tax:           tax,
		TotalCost:     round2(subtotal + tax),
	}
}

// FinalizeInvoice returns a recomputed copy of inv
func FinalizeInvoice(inv *models.Invoice) *models.Invoice {
	out := ComputeInvoice(inv.Items, inv.TaxPercentage)
	out.Description = strings.TrimSpace(inv.Description)
	out.Notes = strings.TrimSpace(inv.Notes)
	return &out
}

// ValidateInvoice records every incomplete invoice field in fields
func ValidateInvoice(inv *models.Invoice, fields FieldErrors) {
	if inv == nil {
		fields.Add("invoice", "invoice details are required")
		return
	}
	if strings.TrimSpace(inv.Description) == "" {
		fields.Add("invoice.description", "description is required")
	}
	if inv.TaxPercentage < 0 || inv.TaxPercentage > 100 {
		fields.Add("invoice.taxPercentage", "must be between 0 and 100")
	}
	if len(inv.Items) == 0 {
		fields.Add("invoice.items", "at least one line item is required")
	}
	for i, item := range inv.Items {
		prefix := fmt.Sprintf("invoice.items[%d]", i)
		if strings.TrimSpace(item.Name) == "" {
			fields.Add(prefix+".name", "name is required")
		}
		if !(item.Quantity > 0) {
			fields.Add(prefix+".quantity", "quantity must be greater than 0")
		}
		if !(item.Rate > 0) {
			fields.Add(prefix+".rate", "rate must be greater than 0")
		}
	}
}

// IsPDF checks the declared type and the file extension
func IsPDF(fileName, contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if contentType == "" || contentType == "application/octet-stream" {
		return ext == ".pdf"
	}
	return contentType == PDFContentType && (ext == "" || ext == ".pdf")
}

// DraftState is where a completion form is in its lifecycle
type DraftState int

const (
	DraftIdle DraftState = iota
	DraftReportAttached
	DraftBuildingInvoice
)

func (s DraftState) String() string {
	switch s {
	case DraftIdle:
		return "Idle"
	case DraftReportAttached:
		return "ReportAttached"
	case DraftBuildingInvoice:
		return "BuildingInvoice"
	}
	return "Unknown"
}

// ReportFile describes the attached report without its content
type ReportFile struct {
	FileName    string
	ContentType string
	Size        int64
}

var (
	ErrNoReport           = errors.New("attach a report first")
	ErrInvoiceDisabled    = errors.New("invoice is not enabled")
	ErrLastLineItem       = errors.New("at least one line item is required")
	ErrLineItemOutOfRange = errors.New("line item does not exist")
)

// CompletionDraft holds a completion form while it is being filled in. It
// keeps its data after a failed submission so the operator can retry.
type CompletionDraft struct {
	state         DraftState
	report        *ReportFile
	description   string
	items         []models.LineItem
	taxPercentage float64
	notes         string
}

func NewCompletionDraft() *CompletionDraft {
	return &CompletionDraft{state: DraftIdle}
}

func (d *CompletionDraft) State() DraftState {
	return d.state
}

func (d *CompletionDraft) Report() *ReportFile {
	return d.report
}

func (d *CompletionDraft) AttachReport(report ReportFile) {
	d.report = &report
	if d.state == DraftIdle {
		d.state = DraftReportAttached
	}
}

func (d *CompletionDraft) DetachReport() {
	d.report = nil
	d.state = DraftIdle
}

// EnableInvoice switches to invoice building, seeding one empty row
func (d *CompletionDraft) EnableInvoice() error {
	if d.report == nil {
		return ErrNoReport
	}
	d.state = DraftBuildingInvoice
	if len(d.items) == 0 {
		d.AddLineItem()
	}
	return nil
}

// DisableInvoice drops back to ReportAttached. Entered rows are kept.
func (d *CompletionDraft) DisableInvoice() {
	if d.state == DraftBuildingInvoice {
		d.state = DraftReportAttached
	}
}

func (d *CompletionDraft) HasInvoice() bool {
	return d.state == DraftBuildingInvoice
}

// AddLineItem appends a row with quantity 1 and rate 0 and returns its index
func (d *CompletionDraft) AddLineItem() int {
	d.items = append(d.items, models.LineItem{Quantity: 1, Rate: 0, Amount: 0})
	return len(d.items) - 1
}

func (d *CompletionDraft) RemoveLineItem(i int) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	if len(d.items) == 1 {
		return ErrLastLineItem
	}
	d.items = append(d.items[:i], d.items[i+1:]...)
	return nil
}

func (d *CompletionDraft) SetItemName(i int, name string) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	d.items[i].Name = name
	return nil
}

func (d *CompletionDraft) SetItemQuantity(i int, quantity float64) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	d.items[i].Quantity = quantity
	d.items[i].Amount = round2(quantity * d.items[i].Rate)
	return nil
}

func (d *CompletionDraft) SetItemRate(i int, rate float64) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	d.items[i].Rate = rate
	d.items[i].Amount = round2(d.items[i].Quantity * rate)
	return nil
}

func (d *CompletionDraft) SetDescription(description string) {
	d.description = description
}

func (d *CompletionDraft) SetTaxPercentage(pct float64) {
	d.taxPercentage = pct
}

func (d *CompletionDraft) SetNotes(notes string) {
	d.notes = notes
}

// Items returns a copy of the current rows
func (d *CompletionDraft) Items() []models.LineItem {
	out := make([]models.LineItem, len(d.items))
	copy(out, d.items)
	return out
}

// Totals recomputes subtotal, tax and total from the current rows
func (d *CompletionDraft) Totals() (subtotal, tax, total float64) {
	inv := ComputeInvoice(d.items, d.taxPercentage)
	return inv.Subtotal, inv.Tax, inv.TotalCost
}

// Validate collects every problem with the draft
func (d *CompletionDraft) Validate() error {
	fields := FieldErrors{}
	switch {
	case d.report == nil:
		fields.Add("report", "a report file is required")
	case !IsPDF(d.report.FileName, d.report.ContentType):
		fields.Add("report", "report must be a PDF document")
	case d.report.Size <= 0:
		fields.Add("report", "report file is empty")
	}
	if d.HasInvoice() {
		ValidateInvoice(d.invoice(), fields)
	}
	return fields.Err("completion form is incomplete")
}

// Submission validates and returns the non-file part of the request
func (d *CompletionDraft) Submission() (*models.CompleteJobRequest, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	req := &models.CompleteJobRequest{HasInvoice: d.HasInvoice()}
	if req.HasInvoice {
		req.Invoice = FinalizeInvoice(d.invoice())
	}
	return req, nil
}

func (d *CompletionDraft) invoice() *models.Invoice {
	return &models.Invoice{
		Description:   d.description,
		Items:         d.Items(),
		TaxPercentage: d.taxPercentage,
		Notes:         d.notes,
	}
}

func (d *CompletionDraft) checkIndex(i int) error {
	if d.state != DraftBuildingInvoice {
		return ErrInvoiceDisabled
	}
	if i < 0 || i >= len(d.items) {
		return ErrLineItemOutOfRange
	}
	return nil
}
