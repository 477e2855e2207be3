package models

import (
	"encoding/json"
	"time"
)

// UploadTimeLayout is the format of Record.UploadTime on the wire.
const UploadTimeLayout = "2006-01-02 15:04:05"

// Status is the processing state of an uploaded listing.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record tracks one uploaded file and its analysis.
type Record struct {
	ID         string          `json:"id"`
	Filename   string          `json:"filename"`
	UploadTime time.Time       `json:"-"`
	Status     Status          `json:"status"`
	FilePath   string          `json:"file_path"`
	PageCount  int             `json:"page_count,omitempty"`
	Results    *ListingResults `json:"results"`
	Error      string          `json:"error,omitempty"`
}

// ListingResults is stored on a completed record.
type ListingResults struct {
	Extraction ExtractionSummary `json:"extraction"`
	Analysis   *AnalysisResult   `json:"analysis"`
}

// ExtractionSummary describes how the text was obtained, without the text itself.
type ExtractionSummary struct {
	Method         string `json:"method"`
	CharacterCount int    `json:"character_count"`
	PageCount      int    `json:"page_count"`
}

// MarshalJSON renders UploadTime in UploadTimeLayout.
func (r Record) MarshalJSON() ([]byte, error) {
	type alias Record
	return json.Marshal(struct {
		alias
		UploadTime string `json:"upload_time"`
	}{
		alias:      alias(r),
		UploadTime: r.UploadTime.Format(UploadTimeLayout),
	})
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Results != nil {
		results := *r.Results
		if r.Results.Analysis != nil {
			analysis := *r.Results.Analysis
			analysis.KeyFeatures = append([]string(nil), r.Results.Analysis.KeyFeatures...)
			results.Analysis = &analysis
		}
		c.Results = &results
	}
	return &c
}
