package domain

import (
	"encoding/json"
	"time"
)

// Source is one page reference attached to an answer.
type Source struct {
	// Page is the referenced page. Kept as a string because the responder
	// may emit either a number or a label such as "Multiple".
	Page string `json:"page"`

	// Section is the manual section the reference came from.
	Section string `json:"section"`

	// Relevance is the responder's relevance estimate in [0, 1].
	Relevance float64 `json:"relevance"`
}

// UnmarshalJSON accepts both numeric and string page values.
func (s *Source) UnmarshalJSON(data []byte) error {
	var raw struct {
		Page      json.Number `json:"page"`
		Section   string      `json:"section"`
		Relevance float64     `json:"relevance"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		// Retry with page as a plain string ("Multiple", "N/A", ...).
		var alt struct {
			Page      string  `json:"page"`
			Section   string  `json:"section"`
			Relevance float64 `json:"relevance"`
		}
		if err2 := json.Unmarshal(data, &alt); err2 != nil {
			return err
		}
		s.Page, s.Section, s.Relevance = alt.Page, alt.Section, alt.Relevance
		return nil
	}
	s.Page = raw.Page.String()
	s.Section = raw.Section
	s.Relevance = raw.Relevance
	return nil
}

// AnswerResult is the typed reply for a manual question.
// Field names match the wire shape existing callers consume.
type AnswerResult struct {
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	Confidence     float64  `json:"confidence"`
	SafetyWarnings []string `json:"safety_warnings"`
}

// DetectionResult is the typed reply for installation-image analysis.
type DetectionResult struct {
	DetectedComponents []DetectedComponent `json:"detected_components"`
	OverallStatus      string              `json:"overall_status"`
	Suggestions        []string            `json:"suggestions"`
	SafetyAlerts       []string            `json:"safety_alerts"`
	Confidence         float64             `json:"confidence"`
}

// Overall installation statuses reported by DetectionResult.
const (
	StatusComplete   = "complete"
	StatusIncomplete = "incomplete"
	StatusError      = "error"
)

// FrameAnalysis is the parsed analysis of one video frame.
type FrameAnalysis struct {
	AIResponse           string              `json:"ai_response"`
	DetectedObjects      []DetectedComponent `json:"detected_objects"`
	InstallationGuidance []string            `json:"installation_guidance"`
	SafetyAlerts         []string            `json:"safety_alerts"`
}

// Page is one extracted manual page handed to ingestion.
// Byte-level PDF extraction happens upstream; the core only sees this shape.
type Page struct {
	// Number is the zero-based page number.
	Number int

	// Text is the extracted page text, possibly empty.
	Text string

	// Images holds the raw bytes of each image on the page.
	Images [][]byte
}

// PageStatus reports the per-page outcome of a batch ingestion.
// One failing page never aborts the rest of the batch.
type PageStatus struct {
	PageNumber int    `json:"page_number"`
	Chunks     int    `json:"chunks"`
	Err        string `json:"error,omitempty"`
}

// IngestResult summarises one product ingestion.
type IngestResult struct {
	ProductID     string       `json:"product_id"`
	TotalPages    int          `json:"total_pages"`
	DocumentCount int          `json:"document_count"`
	TextCount     int          `json:"text_count"`
	ImageCount    int          `json:"image_count"`
	Pages         []PageStatus `json:"pages"`
}

// ProductInfo is the listing view of one indexed product.
type ProductInfo struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	TotalPages      int       `json:"total_pages"`
	LastUpdated     time.Time `json:"last_updated"`
	EmbeddingsCount int       `json:"embeddings_count"`
}

// Feedback is a user's rating of one analysed installation step.
type Feedback struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	StepNumber     int       `json:"step_number"`
	Rating         int       `json:"rating"`
	Comments       string    `json:"comments,omitempty"`
	ReportedIssues []string  `json:"reported_issues,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// FeedbackStats aggregates stored feedback.
type FeedbackStats struct {
	TotalSubmissions int     `json:"total_submissions"`
	AverageRating    float64 `json:"average_rating"`
}
