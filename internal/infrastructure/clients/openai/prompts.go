package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
)

const rankingSystemPrompt = `You are an expert dermatologist specializing in aesthetic procedures. You rank treatment protocols for a patient. Return ONLY valid JSON with this schema:
{
  "rank1": {"protocol": string, "score": number (0-100), "reason": string, "pain": string, "downtime": string},
  "rank2": {"protocol": string, "score": number (0-100), "reason": string, "pain": string, "downtime": string},
  "rank3": {"protocol": string, "score": number (0-100), "reason": string, "pain": string, "downtime": string}
}
HARD CONSTRAINTS:
- Every "protocol" value MUST be copied verbatim from the supplied candidate list. Never invent, rename, combine, or abbreviate a protocol.
- The three protocols must be distinct.
- rank1 is the strongest clinical fit for the patient's primary goal within their pain and downtime tolerance.
- rank2 should come from candidates marked "trending": true when any exist.
- rank3 is an aspirational pick that is one intensity step above the patient's declared tolerance.
Each "reason" must reference specific patient data (goal, risk, tolerance). Tone: professional, empathetic, accessible. No medical diagnosis.`

func buildRankingUserPrompt(req *entities.ReasoningRequest) string {
	var b strings.Builder

	p := req.Profile
	fmt.Fprintf(&b, "PATIENT PROFILE:\n")
	fmt.Fprintf(&b, "- Demographics: %s, %s, %s\n", p.Age, p.Gender, p.Country)
	fmt.Fprintf(&b, "- Goals: Primary: %s, Secondary: %s\n", p.PrimaryGoal, p.SecondaryGoal)
	fmt.Fprintf(&b, "- Risk factors: %s\n", strings.Join(p.Risks, ", "))
	fmt.Fprintf(&b, "- Areas: %s\n", strings.Join(p.Areas, ", "))
	fmt.Fprintf(&b, "- Skin type: %s\n", p.SkinType)
	fmt.Fprintf(&b, "- Pain tolerance: %s\n", p.PainTolerance)
	fmt.Fprintf(&b, "- Downtime tolerance: %s\n", p.DowntimeTolerance)
	fmt.Fprintf(&b, "- Budget: %s\n", p.BudgetTier)
	fmt.Fprintf(&b, "- Treatment history: %s\n\n", strings.Join(p.TreatmentHistory, ", "))

	b.WriteString("ROLE RULES:\n")
	for i, rule := range req.RoleRules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}

	b.WriteString("\nCANDIDATE LIST (the only protocols you may reference):\n")
	candidates, _ := json.Marshal(req.Candidates)
	b.Write(candidates)
	b.WriteString("\n")

	return b.String()
}

func parseReasoningResponse(data []byte) (*entities.ReasoningResponse, error) {
	var resp entities.ReasoningResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse reasoning response: %w", err)
	}
	return &resp, nil
}
