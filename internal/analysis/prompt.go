package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/starkell/halsa/internal/models"
)

const systemMessage = "You are a helpful medical pattern analysis assistant. " +
	"You provide structured JSON responses for symptom analysis."

// buildPrompt renders the deterministic request template: the serialized
// entry collection followed by the response contract and guidelines.
func buildPrompt(entries []models.SymptomEntry) string {
	data, _ := json.MarshalIndent(entries, "", "  ")

	return fmt.Sprintf(`You are a medical pattern analyst assistant. Analyze this symptom log and provide structured insights.

SYMPTOM DATA:
%s

Provide your analysis in valid JSON format with the following structure:
{
  "patterns": [
    {
      "description": "Clear description of the pattern observed",
      "confidence": "high|medium|low",
      "evidence": ["Specific observation 1", "Specific observation 2"]
    }
  ],
  "possibleCauses": [
    {
      "cause": "Name of potential cause",
      "likelihood": "high|medium|low",
      "reasoning": "Why this is a likely cause"
    }
  ],
  "urgencyScore": 1-10,
  "urgencyReasoning": "Explanation of urgency level",
  "redFlags": ["Emergency warning sign 1", "Emergency warning sign 2"],
  "selfCareActions": ["Evidence-based self-care suggestion 1", "Self-care suggestion 2"],
  "doctorQuestions": ["Question to ask healthcare provider 1", "Question 2"]
}

IMPORTANT GUIDELINES:
1. Be medically conservative - encourage professional consultation for concerning patterns
2. Base patterns on temporal correlations, frequency changes, and severity trends
3. Consider common conditions but DO NOT diagnose
4. Use plain language, avoid excessive medical jargon
5. If urgency score > 7, emphasize seeking immediate medical care
6. Include red flags that would warrant emergency care
7. Focus on actionable insights
8. Provide 3-5 patterns maximum
9. Rank possible causes by likelihood
10. Return ONLY valid JSON, no additional text

Analyze the data now:`, data)
}
