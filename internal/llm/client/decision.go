package client

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/sashabaranov/go-openai/jsonschema"
	"google.golang.org/genai"

	"alignstudio/internal/models"
)

const decisionToolName = "structured_decision"

var ErrNoDecision = errors.New("no structured decision in response")

const (
	descDecision  = "The clear decision or action taken, in one sentence"
	descReasoning = "Brief summary of the key reasoning (2-3 sentences)"
	descFramework = "The ethical framework applied (e.g., Utilitarianism, Deontology, Virtue Ethics, Care Ethics)"
	descTradeoffs = "Array of key tradeoffs considered"
)

// decisionToolInfo describes the extraction tool for tool-calling chat models.
func decisionToolInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: decisionToolName,
		Desc: "Extract a structured decision summary from an AI response",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"decision":         {Type: schema.String, Desc: descDecision, Required: true},
			"reasoning":        {Type: schema.String, Desc: descReasoning, Required: true},
			"ethicalFramework": {Type: schema.String, Desc: descFramework, Required: true},
			"tradeoffs": {
				Type:     schema.Array,
				Desc:     descTradeoffs,
				ElemInfo: &schema.ParameterInfo{Type: schema.String},
				Required: true,
			},
		}),
	}
}

func decisionJSONSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"decision":         {Type: jsonschema.String, Description: descDecision},
			"reasoning":        {Type: jsonschema.String, Description: descReasoning},
			"ethicalFramework": {Type: jsonschema.String, Description: descFramework},
			"tradeoffs": {
				Type:        jsonschema.Array,
				Description: descTradeoffs,
				Items:       &jsonschema.Definition{Type: jsonschema.String},
			},
		},
		Required:             []string{"decision", "reasoning", "ethicalFramework", "tradeoffs"},
		AdditionalProperties: false,
	}
}

func decisionGenaiSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"decision":         {Type: genai.TypeString, Description: descDecision},
			"reasoning":        {Type: genai.TypeString, Description: descReasoning},
			"ethicalFramework": {Type: genai.TypeString, Description: descFramework},
			"tradeoffs": {
				Type:        genai.TypeArray,
				Description: descTradeoffs,
				Items:       &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"decision", "reasoning", "ethicalFramework", "tradeoffs"},
	}
}

type rawDecision struct {
	Decision         string          `json:"decision"`
	Reasoning        string          `json:"reasoning"`
	EthicalFramework string          `json:"ethicalFramework"`
	Tradeoffs        json.RawMessage `json:"tradeoffs"`
}

// ParseDecision reads a decision from raw model output. The first JSON object
// in the text is used, so fenced or chatty replies still parse. Decisions
// missing any text field are rejected; a malformed tradeoffs value becomes
// an empty list.
func ParseDecision(raw string) (*models.StructuredDecision, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return nil, ErrNoDecision
	}
	var parsed rawDecision
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, err
	}
	decision := &models.StructuredDecision{
		Decision:         strings.TrimSpace(parsed.Decision),
		Reasoning:        strings.TrimSpace(parsed.Reasoning),
		EthicalFramework: strings.TrimSpace(parsed.EthicalFramework),
		Tradeoffs:        []string{},
	}
	if len(parsed.Tradeoffs) > 0 {
		var tradeoffs []string
		if err := json.Unmarshal(parsed.Tradeoffs, &tradeoffs); err == nil {
			for _, t := range tradeoffs {
				if t = strings.TrimSpace(t); t != "" {
					decision.Tradeoffs = append(decision.Tradeoffs, t)
				}
			}
		}
	}
	if !decision.Complete() {
		return nil, ErrNoDecision
	}
	return decision, nil
}

// extractJSONObject returns the text between the first '{' and the last '}'.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
