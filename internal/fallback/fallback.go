// Package fallback supplies the fixed, well-formed analysis result assigned
// whenever the inference backend is unreachable or fails. The presentation
// layer stays renderable with no backend present.
package fallback

import "github.com/triage-console/internal/domain"

// Result returns the deterministic demo-mode analysis result. Each call
// returns a fresh copy so callers cannot mutate shared state; every copy is
// structurally identical.
func Result() domain.AnalysisResult {
	return domain.AnalysisResult{
		Entities: domain.Entities{
			Symptoms:    []string{"Fever", "Persistent cough", "Fatigue"},
			Conditions:  []string{"Upper respiratory tract infection"},
			Medications: []string{"Paracetamol"},
		},
		FollowUpQuestions: []string{
			"How long have the symptoms been present?",
			"Has the patient measured their temperature, and how high was it?",
			"Is the cough productive or dry?",
		},
		DifferentialDiagnoses: []domain.Diagnosis{
			{
				Condition:   "Influenza",
				Confidence:  domain.ConfidenceHigh,
				Explanation: "Fever, cough, and fatigue form the classic triad of seasonal influenza.",
			},
			{
				Condition:   "COVID-19",
				Confidence:  domain.ConfidenceMedium,
				Explanation: "Symptom overlap with influenza; testing is required to distinguish.",
			},
			{
				Condition:   "Common cold",
				Confidence:  domain.ConfidenceLow,
				Explanation: "Possible, though high fever and marked fatigue are less typical.",
			},
		},
		Literature: []domain.Article{
			{
				Title:   "Clinical features of influenza in adults",
				URL:     "https://pubmed.ncbi.nlm.nih.gov/28302313/",
				Journal: "The Lancet",
			},
			{
				Title:   "Differentiating COVID-19 from seasonal influenza in primary care",
				URL:     "https://pubmed.ncbi.nlm.nih.gov/32866536/",
				Journal: "BMJ",
			},
		},
	}
}
