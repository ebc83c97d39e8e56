package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"alignstudio/internal/events"
	"alignstudio/internal/models"
	"alignstudio/internal/services"
)

type runOptions struct {
	scenario string
	panelA   string
	panelB   string
	prompt   string
	export   string
	save     string
	notes    string
	analyze  bool
	stream   bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario against two models",
	Long: `Run sends the scenario's prompt to panels A and B concurrently and prints
both replies with their structured decisions.

Models are given as provider:model, for example gemini:gemini-2.5-flash or
ollama:llama3.1:8b. An empty model uses the provider default.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runComparison(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.scenario, "scenario", "s", "", "scenario name (required)")
	f.StringVar(&runOpts.panelA, "a", "", "panel A model as provider:model")
	f.StringVar(&runOpts.panelB, "b", "", "panel B model as provider:model")
	f.StringVarP(&runOpts.prompt, "prompt", "p", "", "user prompt (defaults to the scenario's suggested prompt)")
	f.StringVar(&runOpts.export, "export", "", "write the experiment to a .json or .md file")
	f.StringVar(&runOpts.save, "save", "", "save the experiment in the database under this name")
	f.StringVar(&runOpts.notes, "notes", "", "notes stored with the experiment")
	f.BoolVar(&runOpts.analyze, "analyze", false, "run the alignment analysis on both replies")
	f.BoolVar(&runOpts.stream, "stream", false, "print streamed chunks to stderr while the panels run")
	_ = runCmd.MarkFlagRequired("scenario")
}

// parsePanel accepts "provider" or "provider:model".
func parsePanel(value string) (provider, model string, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", nil
	}
	if cfg, ok := models.ParseModelConfig(value); ok {
		return cfg.Provider, cfg.Model, nil
	}
	provider = models.NormalizeProvider(strings.TrimSuffix(value, ":"))
	if provider == "" {
		return "", "", fmt.Errorf("invalid model selector %q", value)
	}
	return provider, "", nil
}

// streamPrinter writes chunks with a panel header whenever the speaking
// panel changes.
type streamPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	last string
}

func (p *streamPrinter) emit(ctx context.Context, name string, evt events.PanelEvent) {
	if name != events.PanelChunk || evt.Chunk == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != evt.Panel {
		fmt.Fprintf(p.w, "\n[%s] ", evt.Panel)
		p.last = evt.Panel
	}
	fmt.Fprint(p.w, evt.Chunk)
}

func runComparison(ctx context.Context, out, errOut io.Writer, opts runOptions) error {
	svc := current.comparison

	sc, err := current.db.Scenarios.FindByName(ctx, opts.scenario)
	if err != nil {
		return fmt.Errorf("%w: %s", err, opts.scenario)
	}
	if _, err := svc.SelectScenario(sc.ID); err != nil {
		return err
	}

	for _, panel := range []struct {
		id       string
		selector string
	}{{services.PanelA, opts.panelA}, {services.PanelB, opts.panelB}} {
		provider, model, err := parsePanel(panel.selector)
		if err != nil {
			return err
		}
		if provider == "" {
			continue
		}
		if provider == models.ProviderOllama {
			if _, status := current.db.ModelConfigs.RefreshOllamaModels(ctx, current.keys.ResolveCredentials().OllamaBaseURL); status != "" {
				fmt.Fprintln(errOut, status)
			}
		}
		if err := svc.SetPanelModel(panel.id, provider, model); err != nil {
			return err
		}
	}
	if opts.prompt != "" {
		svc.SetUserPrompt(opts.prompt)
	}

	if opts.stream {
		printer := &streamPrinter{w: errOut}
		events.SetCustomPanelEmitter(printer.emit)
		defer func() {
			events.SetCustomPanelEmitter(nil)
			fmt.Fprintln(errOut)
		}()
	}
	events.SetCustomEmitter(func(ctx context.Context, name string, evt events.StatusEvent) {
		if evt.Type == events.EventError || evt.Type == events.EventWarn {
			fmt.Fprintf(errOut, "[%s] %s\n", evt.Panel, evt.Message)
		}
	})
	defer events.SetCustomEmitter(nil)

	if err := svc.StartTest(); err != nil {
		return err
	}
	if opts.notes != "" {
		svc.SetNotes(opts.notes)
	}

	snap := svc.Snapshot()
	printMarkdown(out, panelMarkdown(services.PanelA, snap.PanelA))
	printMarkdown(out, panelMarkdown(services.PanelB, snap.PanelB))

	if opts.analyze {
		for _, id := range []string{services.PanelA, services.PanelB} {
			analysis, err := svc.AnalyzePanel(id)
			if err != nil {
				fmt.Fprintf(errOut, "[%s] analysis skipped: %v\n", id, err)
				continue
			}
			printMarkdown(out, fmt.Sprintf("# Analysis of Panel %s\n\n%s\n", id, analysis))
		}
	}

	if opts.save != "" {
		saved, err := current.db.Experiments.Save(ctx, opts.save, snap)
		if err != nil {
			return err
		}
		fmt.Fprintf(errOut, "saved experiment #%d %s\n", saved.ID, saved.Name)
	}
	if opts.export != "" {
		if err := exportSnapshot(opts.export, snap); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "exported %s\n", opts.export)
	}
	return nil
}

func exportSnapshot(path string, snap services.RunSnapshot) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		raw, _, err := current.db.Experiments.ExportJSON(snap)
		if err != nil {
			return err
		}
		data = raw
	case ".md", ".markdown":
		text, _, err := current.db.Experiments.ExportMarkdown(snap)
		if err != nil {
			return err
		}
		data = []byte(text)
	default:
		return fmt.Errorf("unsupported export extension %q (use .json or .md)", filepath.Ext(path))
	}
	return os.WriteFile(path, data, 0o644)
}
