// Package normalize transforms the loosely-typed payload of the inference
// backend into the canonical AnalysisResult shape. Normalize is a total
// function: any payload, however malformed, yields a fully-populated result.
package normalize

import "github.com/triage-console/internal/domain"

// Defaults substituted for absent or empty article fields. Fields are never
// omitted from a normalized record.
const (
	defaultArticleTitle   = "No title"
	defaultArticleURL     = "#"
	defaultArticleJournal = "Unknown journal"
)

// Normalize maps an arbitrary backend payload into a canonical
// AnalysisResult, filling absent fields with safe defaults. It never fails:
// nil, non-object, and partially-shaped inputs all produce a result with
// every field present and every sequence non-nil.
func Normalize(raw any) domain.AnalysisResult {
	payload := asObject(raw)
	entities := asObject(payload["entities"])

	return domain.AnalysisResult{
		Entities: domain.Entities{
			Symptoms:    stringSlice(entities["symptoms"]),
			Conditions:  stringSlice(entities["conditions"]),
			Medications: stringSlice(entities["medications"]),
		},
		// The backend speaks snake_case here; the internal key stays
		// camelCase. The divergence is the external contract boundary.
		FollowUpQuestions:     stringSlice(payload["suggested_questions"]),
		DifferentialDiagnoses: diagnosisSlice(payload["differential_diagnoses"]),
		Literature:            articleSlice(payload["literature"]),
	}
}

// asObject returns the value as a JSON object, or an empty object for any
// other shape.
func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// stringSlice returns the string elements of a JSON array, or an empty slice
// for any other shape. Non-string elements are dropped.
func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// diagnosisSlice maps the differential_diagnoses array, normalizing each
// confidence value to a known level. Element order is preserved.
func diagnosisSlice(v any) []domain.Diagnosis {
	items, ok := v.([]any)
	if !ok {
		return []domain.Diagnosis{}
	}
	out := make([]domain.Diagnosis, 0, len(items))
	for _, item := range items {
		entry := asObject(item)
		out = append(out, domain.Diagnosis{
			Condition:   asString(entry["condition"]),
			Confidence:  domain.ParseConfidence(asString(entry["confidence"])),
			Explanation: asString(entry["explanation"]),
		})
	}
	return out
}

// articleSlice maps the literature array with the three independent per-field
// defaults. Element order is preserved.
func articleSlice(v any) []domain.Article {
	items, ok := v.([]any)
	if !ok {
		return []domain.Article{}
	}
	out := make([]domain.Article, 0, len(items))
	for _, item := range items {
		entry := asObject(item)
		out = append(out, domain.Article{
			Title:   stringOr(entry["title"], defaultArticleTitle),
			URL:     stringOr(entry["url"], defaultArticleURL),
			Journal: stringOr(entry["journal"], defaultArticleJournal),
		})
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// stringOr returns the value as a string, substituting the default when the
// value is absent, non-string, or empty.
func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
