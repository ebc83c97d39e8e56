package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"alignstudio/internal/models"
	"alignstudio/internal/repositories"
)

const (
	exportTimestampLayout = "2006-01-02T15:04:05.000Z07:00"
	exportDisplayLayout   = "Monday, January 2, 2006 at 03:04:05 PM MST"
	comparisonCellLimit   = 200
)

var (
	ErrExperimentNotFound = errors.New("experiment not found")

	filenameUnsafe = regexp.MustCompile(`(?i)[^a-z0-9]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// ExportFilename builds "<name>_<unix millis>.<ext>" with every
// non-alphanumeric character of name replaced by "_".
func ExportFilename(scenarioName, ext string, at time.Time) string {
	return fmt.Sprintf("%s_%d.%s", filenameUnsafe.ReplaceAllString(scenarioName, "_"), at.UnixMilli(), ext)
}

type ExperimentService struct {
	repo repositories.ExperimentRepository
	now  func() time.Time
}

func NewExperimentService(repo repositories.ExperimentRepository) *ExperimentService {
	return &ExperimentService{repo: repo, now: time.Now}
}

// SetClock replaces the time source used for timestamps and filenames.
func (s *ExperimentService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// BuildExport converts a run snapshot into the versioned export document.
func (s *ExperimentService) BuildExport(snap RunSnapshot) (*models.ExperimentExport, error) {
	if snap.Scenario == nil {
		return nil, ErrNoActiveScenario
	}
	items := snap.Scenario.InformationItems
	if items == nil {
		items = []models.InformationItem{}
	}
	return &models.ExperimentExport{
		Version: models.ExperimentFormatVersion,
		Scenario: models.ExperimentScenario{
			Name:             snap.Scenario.Name,
			SystemPromptA:    snap.PanelA.SystemPrompt,
			SystemPromptB:    snap.PanelB.SystemPrompt,
			InformationItems: items,
		},
		PanelA:       exportPanel(snap.PanelA),
		PanelB:       exportPanel(snap.PanelB),
		StudentNotes: snap.Notes,
		Timestamp:    s.now().UTC().Format(exportTimestampLayout),
		UserPrompt:   snap.UserPrompt,
	}, nil
}

func exportPanel(p PanelState) models.ExperimentPanel {
	name := p.ModelName
	if name == "" {
		name = p.Model
	}
	history := p.History
	if history == nil {
		history = []models.ChatMessage{}
	}
	return models.ExperimentPanel{
		Provider:    p.Provider,
		Model:       p.Model,
		ModelName:   name,
		ChatHistory: history,
	}
}

// ExportJSON returns the indented JSON export and its suggested filename.
func (s *ExperimentService) ExportJSON(snap RunSnapshot) ([]byte, string, error) {
	export, err := s.BuildExport(snap)
	if err != nil {
		return nil, "", err
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode experiment: %w", err)
	}
	return data, ExportFilename(export.Scenario.Name, "json", s.now()), nil
}

// ExportMarkdown renders a human-readable report of the run and its
// suggested filename.
func (s *ExperimentService) ExportMarkdown(snap RunSnapshot) (string, string, error) {
	export, err := s.BuildExport(snap)
	if err != nil {
		return "", "", err
	}
	now := s.now()
	return renderMarkdownReport(export, now.Format(exportDisplayLayout)), ExportFilename(export.Scenario.Name, "md", now), nil
}

func renderMarkdownReport(e *models.ExperimentExport, generated string) string {
	var b strings.Builder
	historyA := e.PanelA.ChatHistory
	historyB := e.PanelB.ChatHistory
	userMessages := models.CountRole(historyA, models.RoleUser)
	notes := strings.TrimSpace(e.StudentNotes) != ""

	fmt.Fprintf(&b, "# %s\n\n", e.Scenario.Name)
	b.WriteString("> **Experiment Export**  \n")
	fmt.Fprintf(&b, "> Generated: %s  \n", generated)
	fmt.Fprintf(&b, "> Exchanges: %d | Model A Responses: %d | Model B Responses: %d\n\n",
		userMessages, models.CountRole(historyA, models.RoleModel), models.CountRole(historyB, models.RoleModel))

	b.WriteString("## Table of Contents\n\n")
	b.WriteString("1. [Experiment Overview](#experiment-overview)\n")
	b.WriteString("2. [Scenario Configuration](#scenario-configuration)\n")
	b.WriteString("3. [Conversation Comparison](#conversation-comparison)\n")
	fmt.Fprintf(&b, "4. [Model A: %s](#model-a-%s)\n", e.PanelA.ModelName, anchor(e.PanelA.ModelName))
	fmt.Fprintf(&b, "5. [Model B: %s](#model-b-%s)\n", e.PanelB.ModelName, anchor(e.PanelB.ModelName))
	if notes {
		b.WriteString("6. [Student Notes & Analysis](#student-notes--analysis)\n")
	}
	b.WriteString("\n---\n\n")

	b.WriteString("## Experiment Overview\n\n")
	b.WriteString("| Aspect | Details |\n")
	b.WriteString("|--------|----------|\n")
	fmt.Fprintf(&b, "| **Scenario** | %s |\n", e.Scenario.Name)
	fmt.Fprintf(&b, "| **Model A** | %s - %s |\n", e.PanelA.Provider, e.PanelA.ModelName)
	fmt.Fprintf(&b, "| **Model B** | %s - %s |\n", e.PanelB.Provider, e.PanelB.ModelName)
	fmt.Fprintf(&b, "| **Initial Prompt** | %s |\n", e.UserPrompt)
	fmt.Fprintf(&b, "| **Information Blocks** | %d |\n", len(e.Scenario.InformationItems))
	fmt.Fprintf(&b, "| **Total Exchanges** | %d |\n\n", userMessages)

	b.WriteString("## Scenario Configuration\n\n")
	fmt.Fprintf(&b, "### System Prompt A\n\n```text\n%s\n```\n\n", e.Scenario.SystemPromptA)
	fmt.Fprintf(&b, "### System Prompt B\n\n```text\n%s\n```\n\n", e.Scenario.SystemPromptB)
	if len(e.Scenario.InformationItems) > 0 {
		b.WriteString("### Information Blocks\n\n")
		for i, item := range e.Scenario.InformationItems {
			title := item.Title
			if title == "" {
				title = "Untitled"
			}
			fmt.Fprintf(&b, "#### %d. %s\n\n", i+1, title)
			fmt.Fprintf(&b, "**Type:** %s\n\n", item.Type)
			fmt.Fprintf(&b, "%s\n\n", item.Content)
		}
	}

	if len(historyA) > 0 && len(historyB) > 0 {
		b.WriteString("## Conversation Comparison\n\n")
		b.WriteString("### Side-by-Side Exchange View\n\n")
		for i := 0; i < max(len(historyA), len(historyB)); i++ {
			msgA := messageAt(historyA, i)
			msgB := messageAt(historyB, i)
			switch {
			case roleIs(msgA, models.RoleUser) || roleIs(msgB, models.RoleUser):
				prompt := ""
				if roleIs(msgA, models.RoleUser) {
					prompt = msgA.Content
				} else if msgB != nil {
					prompt = msgB.Content
				}
				fmt.Fprintf(&b, "#### Exchange %d\n\n", i/2+1)
				b.WriteString("**User Prompt:**\n\n")
				fmt.Fprintf(&b, "> %s\n\n", prompt)
			case roleIs(msgA, models.RoleModel) || roleIs(msgB, models.RoleModel):
				b.WriteString("| Model A | Model B |\n")
				b.WriteString("|---------|----------|\n")
				fmt.Fprintf(&b, "| %s | %s |\n\n", comparisonCell(msgA), comparisonCell(msgB))
			}
		}
	}

	writePanelDetail(&b, "A", e.PanelA)
	writePanelDetail(&b, "B", e.PanelB)

	if notes {
		b.WriteString("---\n\n")
		b.WriteString("## Student Notes & Analysis\n\n")
		fmt.Fprintf(&b, "%s\n\n", e.StudentNotes)
	}

	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "*Export generated by Alignment Studio on %s*\n", generated)
	return b.String()
}

func writePanelDetail(b *strings.Builder, label string, panel models.ExperimentPanel) {
	b.WriteString("---\n\n")
	fmt.Fprintf(b, "## Model %s: %s\n\n", label, panel.ModelName)
	fmt.Fprintf(b, "**Provider:** %s  \n", panel.Provider)
	fmt.Fprintf(b, "**Model ID:** %s\n\n", panel.Model)

	if len(panel.ChatHistory) == 0 {
		b.WriteString("*No conversation recorded*\n\n")
		return
	}
	for i, msg := range panel.ChatHistory {
		if msg.Role == models.RoleUser {
			fmt.Fprintf(b, "### 💬 User Message %d\n\n", i/2+1)
			fmt.Fprintf(b, "%s\n\n", msg.Content)
			continue
		}
		fmt.Fprintf(b, "### 🤖 Model Response %d\n\n", (i+1)/2)
		fmt.Fprintf(b, "%s\n\n", msg.Content)

		d := msg.StructuredDecision
		if d == nil {
			continue
		}
		b.WriteString("#### 📊 Structured Analysis\n\n")
		b.WriteString("| Aspect | Details |\n")
		b.WriteString("|--------|----------|\n")
		fmt.Fprintf(b, "| **Decision** | %s |\n", d.Decision)
		fmt.Fprintf(b, "| **Ethical Framework** | %s |\n", d.EthicalFramework)
		fmt.Fprintf(b, "| **Reasoning** | %s |\n", d.Reasoning)
		if len(d.Tradeoffs) > 0 {
			fmt.Fprintf(b, "| **Tradeoffs** | %s |\n", strings.Join(d.Tradeoffs, ", "))
		}
		b.WriteString("\n")
	}
}

func messageAt(history []models.ChatMessage, i int) *models.ChatMessage {
	if i < len(history) {
		return &history[i]
	}
	return nil
}

func roleIs(msg *models.ChatMessage, role models.ChatRole) bool {
	return msg != nil && msg.Role == role
}

func comparisonCell(msg *models.ChatMessage) string {
	content := "*No response*"
	if msg != nil && msg.Content != "" {
		content = msg.Content
	}
	if runes := []rune(content); len(runes) > comparisonCellLimit {
		content = string(runes[:comparisonCellLimit]) + "..."
	}
	return strings.ReplaceAll(content, "\n", " ")
}

func anchor(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(name), "-")
}

// Import decodes a JSON export produced by ExportJSON.
func (s *ExperimentService) Import(data []byte) (*models.ExperimentExport, error) {
	var export models.ExperimentExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to import experiment, ensure the file is a valid JSON export: %w", err)
	}
	if export.Version == "" {
		export.Version = models.ExperimentFormatVersion
	}
	return &export, nil
}

// Save stores the run under name (defaulting to the scenario name and time).
func (s *ExperimentService) Save(ctx context.Context, name string, snap RunSnapshot) (*models.Experiment, error) {
	export, err := s.BuildExport(snap)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(export)
	if err != nil {
		return nil, fmt.Errorf("failed to encode experiment: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("%s (%s)", export.Scenario.Name, s.now().Format("2006-01-02 15:04"))
	}
	experiment := &models.Experiment{
		Name:         name,
		ScenarioName: export.Scenario.Name,
		PanelA:       models.ModelConfig{Provider: export.PanelA.Provider, Model: export.PanelA.Model}.String(),
		PanelB:       models.ModelConfig{Provider: export.PanelB.Provider, Model: export.PanelB.Model}.String(),
		PayloadJSON:  string(payload),
	}
	if err := s.repo.Create(ctx, experiment); err != nil {
		return nil, fmt.Errorf("failed to save experiment: %w", err)
	}
	return experiment, nil
}

func (s *ExperimentService) List(ctx context.Context, limit, offset int) ([]models.Experiment, error) {
	return s.repo.List(ctx, limit, offset)
}

// Get loads a saved experiment's export document.
func (s *ExperimentService) Get(ctx context.Context, id uint) (*models.ExperimentExport, error) {
	experiment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if experiment == nil {
		return nil, ErrExperimentNotFound
	}
	return s.Import([]byte(experiment.PayloadJSON))
}

func (s *ExperimentService) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}
