package models

// LineItem is one invoice row. Amount is always quantity * rate.
type LineItem struct {
	Name     string  `json:"name" dynamodbav:"name"`
	Quantity float64 `json:"quantity" dynamodbav:"quantity"`
	Rate     float64 `json:"rate" dynamodbav:"rate"`
	Amount   float64 `json:"amount" dynamodbav:"amount"`
}

// Invoice is attached to a job when it is completed
type Invoice struct {
	Description   string     `json:"description" dynamodbav:"description"`
	Items         []LineItem `json:"items" dynamodbav:"items"`
	Subtotal      float64    `json:"subtotal" dynamodbav:"subtotal"`
	TaxPercentage float64    `json:"taxPercentage" dynamodbav:"taxPercentage"`
	Tax           float64    `json:"tax" dynamodbav:"tax"`
	TotalCost     float64    `json:"totalCost" dynamodbav:"totalCost"`
	Notes         string     `json:"notes,omitempty" dynamodbav:"notes,omitempty"`
}

// CompleteJobRequest is the non-file part of a completion submission
type CompleteJobRequest struct {
	HasInvoice bool     `json:"hasInvoice"`
	Invoice    *Invoice `json:"invoice,omitempty"`
}
