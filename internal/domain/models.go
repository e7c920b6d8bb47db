package domain

import "time"

// AnalysisResult is the canonical output of one analysis. Once produced,
// whether from the backend or from the fallback provider, every field is
// populated; sequences are empty rather than nil-by-omission so the
// presentation layer never observes an undefined shape.
type AnalysisResult struct {
	Entities              Entities    `json:"entities"`
	FollowUpQuestions     []string    `json:"followUpQuestions"`
	DifferentialDiagnoses []Diagnosis `json:"differentialDiagnoses"`
	Literature            []Article   `json:"literature"`
}

// Entities holds the clinical entities extracted from the input text.
type Entities struct {
	Symptoms    []string `json:"symptoms"`
	Conditions  []string `json:"conditions"`
	Medications []string `json:"medications"`
}

// Diagnosis is a single entry of the differential diagnosis list.
type Diagnosis struct {
	Condition   string     `json:"condition"`
	Confidence  Confidence `json:"confidence"`
	Explanation string     `json:"explanation"`
}

// Article is a supporting literature reference. Fields are never empty in a
// normalized result; absent source values are substituted per field.
type Article struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Journal string `json:"journal"`
}

// SessionSnapshot is an immutable copy of the session state handed to the
// presentation layer. Result and LastAnalyzedAt are nil until the first
// analysis completes.
type SessionSnapshot struct {
	Input          string              `json:"input"`
	BackendStatus  BackendHealthStatus `json:"backendStatus"`
	InFlight       bool                `json:"inFlight"`
	Result         *AnalysisResult     `json:"result,omitempty"`
	LastAnalyzedAt *time.Time          `json:"lastAnalyzedAt,omitempty"`
}
