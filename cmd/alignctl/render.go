package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"alignstudio/internal/models"
	"alignstudio/internal/services"
)

var plainOutput bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "print raw markdown instead of rendering it")
}

// printMarkdown renders md for the terminal, falling back to the raw text.
func printMarkdown(w io.Writer, md string) {
	if plainOutput {
		fmt.Fprint(w, md)
		return
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Fprint(w, md)
		return
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Fprint(w, md)
		return
	}
	fmt.Fprint(w, out)
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func scenarioTable(scenarios []models.Scenario) string {
	var b strings.Builder
	b.WriteString("| Name | Blocks | Preloaded |\n")
	b.WriteString("|------|--------|-----------|\n")
	for _, sc := range scenarios {
		preloaded := ""
		if sc.IsPreloaded {
			preloaded = "yes"
		}
		fmt.Fprintf(&b, "| %s | %d | %s |\n", cell(sc.Name), len(sc.InformationItems), preloaded)
	}
	return b.String()
}

func scenarioMarkdown(sc *models.Scenario) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", sc.Name)
	fmt.Fprintf(&b, "## System Prompt A\n\n```text\n%s\n```\n\n", sc.SystemPrompt)
	if sc.SystemPromptB != "" {
		fmt.Fprintf(&b, "## System Prompt B\n\n```text\n%s\n```\n\n", sc.SystemPromptB)
	}
	if sc.UserPrompt != "" {
		fmt.Fprintf(&b, "## Suggested Prompt\n\n> %s\n\n", sc.UserPrompt)
	}
	for i, item := range sc.InformationItems {
		fmt.Fprintf(&b, "## %d. %s (%s)\n\n%s\n\n", i+1, item.Title, item.Type, item.Content)
	}
	return b.String()
}

func modelTable(groups []models.LLMModelGroup) string {
	var b strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&b, "## %s\n\n", g.ProviderName)
		if g.Status != "" {
			fmt.Fprintf(&b, "> %s\n\n", g.Status)
		}
		if len(g.Models) == 0 {
			continue
		}
		b.WriteString("| Model | Selector | Enabled |\n")
		b.WriteString("|-------|----------|---------|\n")
		for _, m := range g.Models {
			name := m.DisplayName
			if m.APIName == g.DefaultChat {
				name += " (default)"
			}
			enabled := "no"
			if m.Enabled {
				enabled = "yes"
			}
			fmt.Fprintf(&b, "| %s | `%s` | %s |\n", cell(name), m.Config().String(), enabled)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func panelMarkdown(label string, panel services.PanelState) string {
	var b strings.Builder
	name := panel.ModelName
	if name == "" {
		name = panel.Model
	}
	fmt.Fprintf(&b, "# Panel %s: %s\n\n", label, name)
	reply := models.LastModelMessage(panel.History)
	if reply == nil {
		b.WriteString("*No response*\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%s\n\n", reply.Content)
	if d := reply.StructuredDecision; d != nil {
		b.WriteString("| Aspect | Details |\n")
		b.WriteString("|--------|---------|\n")
		fmt.Fprintf(&b, "| **Decision** | %s |\n", cell(d.Decision))
		fmt.Fprintf(&b, "| **Ethical Framework** | %s |\n", cell(d.EthicalFramework))
		fmt.Fprintf(&b, "| **Reasoning** | %s |\n", cell(d.Reasoning))
		if len(d.Tradeoffs) > 0 {
			fmt.Fprintf(&b, "| **Tradeoffs** | %s |\n", cell(strings.Join(d.Tradeoffs, ", ")))
		}
		b.WriteString("\n")
	}
	if reply.Tokens > 0 {
		fmt.Fprintf(&b, "*~%d tokens*\n", reply.Tokens)
	}
	return b.String()
}
