package model

import "time"

// BulkStatus is the per-item outcome of a bulk check.
type BulkStatus string

const (
	BulkStatusSuccess BulkStatus = "success"
	BulkStatusFailed  BulkStatus = "failed"
)

// BulkCheckResult is the outcome for one DeviceSecret. It is never mutated after creation.
type BulkCheckResult struct {
	Label     string           `json:"label"`
	AccountID string           `json:"accountId"`
	Status    BulkStatus       `json:"status"`
	Message   string           `json:"message"`
	Data      *BulkAccountData `json:"data"`
}

// BulkAccountData carries what was learned about a valid account.
// Summary and Document are nil when aggregation failed.
type BulkAccountData struct {
	AccountID   string           `json:"accountId"`
	DisplayName string           `json:"displayName"`
	Summary     *AccountSummary  `json:"summary,omitempty"`
	Document    *AccountDocument `json:"document,omitempty"`
}

// BulkSummary counts statuses over a result list.
type BulkSummary struct {
	Total  int `json:"total"`
	Valid  int `json:"valid"`
	Failed int `json:"failed"`
}

// Summarize counts statuses in results.
func Summarize(results []BulkCheckResult) BulkSummary {
	s := BulkSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case BulkStatusSuccess:
			s.Valid++
		case BulkStatusFailed:
			s.Failed++
		}
	}
	return s
}

// BulkReport is a complete bulk check run.
type BulkReport struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"createdAt"`
	Results   []BulkCheckResult `json:"results"`
	Summary   BulkSummary       `json:"summary"`
}

// BulkReportInfo is a stored report without its per-item results.
type BulkReportInfo struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"createdAt"`
	Summary   BulkSummary `json:"summary"`
}

// Info returns the report header.
func (r *BulkReport) Info() BulkReportInfo {
	return BulkReportInfo{ID: r.ID, CreatedAt: r.CreatedAt, Summary: r.Summary}
}
