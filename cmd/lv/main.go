package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/loomview/internal/datasource"
	"github.com/vanderheijden86/loomview/pkg/config"
	"github.com/vanderheijden86/loomview/pkg/loader"
	"github.com/vanderheijden86/loomview/pkg/model"
	"github.com/vanderheijden86/loomview/pkg/ui"
	"github.com/vanderheijden86/loomview/pkg/version"
	"github.com/vanderheijden86/loomview/pkg/viz"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	helpFlag := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	watchFlag := flag.Bool("watch", true, "Reload the view when the document changes on disk")
	exportFlag := flag.String("export", "", "Write exports (comma-separated format=path) and exit")
	robotFlag := flag.Bool("robot", false, "Print the render snapshot as JSON to stdout and exit")
	choiceFlag := flag.String("choice", "", "Hierarchy choice id (skips the interactive picker)")
	compareFlag := flag.String("compare", "", "Compare the document against a second path and exit")
	collapseAll := flag.Bool("collapse-all", false, "Start with every container collapsed")
	initConfig := flag.Bool("init-config", false, "Write the default config file and exit")
	flag.Parse()

	// CPU profiling support
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *helpFlag {
		fmt.Println("Usage: lv [options] [path]")
		fmt.Println()
		fmt.Println("An interactive terminal explorer for hierarchical graph documents.")
		fmt.Println("path may be a graph JSON file, an exported SQLite snapshot, or a")
		fmt.Println("directory to search. It defaults to the current directory.")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("lv %s\n", version.Version)
		os.Exit(0)
	}

	if *initConfig {
		if err := config.Save(config.DefaultConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", config.ConfigPath())
		os.Exit(0)
	}

	if *compareFlag != "" && (*robotFlag || *exportFlag != "") {
		fmt.Fprintln(os.Stderr, "Error: -compare cannot be combined with -robot or -export")
		os.Exit(2)
	}

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		// Non-fatal: fall back to defaults and keep going.
		fmt.Fprintf(os.Stderr, "Warning: ignoring config: %v\n", cfgErr)
		cfg = config.DefaultConfig()
	}

	path := flag.Arg(0)
	if path == "" {
		path = "."
	}

	if *compareFlag != "" {
		os.Exit(runCompare(path, *compareFlag))
	}

	choice := *choiceFlag
	doc, src, issues, err := loadDocument(path, choice)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading document: %v\n", err)
		fmt.Fprintln(os.Stderr, "Pass a graph JSON file, an exported snapshot, or a directory containing one.")
		os.Exit(1)
	}

	headless := *robotFlag || *exportFlag != ""
	if choice == "" && len(doc.HierarchyChoices) > 1 && !headless && term.IsTerminal(int(os.Stdout.Fd())) {
		choice = promptHierarchyChoice(doc.HierarchyChoices)
		if choice != "" && choice != doc.HierarchyChoices[0].ID {
			doc, src, issues, err = loadDocument(path, choice)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reloading with hierarchy %q: %v\n", choice, err)
				os.Exit(1)
			}
		}
	}

	if report := formatIssues(issues, 5); report != "" {
		fmt.Fprint(os.Stderr, report)
	}

	coord := viz.New(viz.WithLayoutConfig(cfg.Layout))
	if _, err := coord.Load(doc, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error building visualization: %v\n", err)
		os.Exit(1)
	}
	if cfg.Behavior.CollapseAllOnLoad || *collapseAll {
		if _, err := coord.CollapseAllContainers(nil, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: collapse-all failed: %v\n", err)
		}
	}

	if headless {
		code := runHeadless(coord, doc, cfg, *robotFlag, *exportFlag)
		dumpTimings()
		os.Exit(code)
	}

	m := ui.NewModel(coord, src.Path, cfg).WithHierarchyChoice(choice)
	if !*watchFlag {
		m = m.WithoutWatcher()
	}

	err = runTUIProgram(m)
	dumpTimings()
	if err != nil {
		fmt.Printf("Error running loomview: %v\n", err)
		os.Exit(1)
	}
}

// loadDocument resolves path to the best available source and parses it,
// forwarding loader warnings to stderr.
func loadDocument(path, choice string) (*model.Document, datasource.Source, []model.ValidationIssue, error) {
	opts := loader.ParseOptions{
		HierarchyChoice: choice,
		WarningHandler: func(msg string) {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
		},
	}
	return datasource.LoadPath(path, opts)
}

// promptHierarchyChoice asks the user to pick one of the document's grouping
// schemes. Returns "" when the form is cancelled.
func promptHierarchyChoice(choices []model.HierarchyChoice) string {
	options := make([]huh.Option[string], 0, len(choices))
	for _, c := range choices {
		name := c.Name
		if name == "" {
			name = c.ID
		}
		label := fmt.Sprintf("%s (%d containers)", name, len(c.Containers))
		options = append(options, huh.NewOption(label, c.ID))
	}

	selected := choices[0].ID
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("This document offers multiple hierarchies").
			Description("Pick how elements should be grouped.").
			Options(options...).
			Value(&selected),
	)).WithTheme(huh.ThemeDracula())

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return ""
	}
	return selected
}

func runTUIProgram(m ui.Model) error {
	// WithoutSignalHandler lets us own SIGINT/SIGTERM handling below so the
	// terminal is always restored before exit.
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithoutSignalHandler())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		p.Quit()
		// If the program does not wind down promptly, force it.
		time.Sleep(5 * time.Second)
		p.Kill()
	}()

	// Test hook: auto-close after N ms so e2e tests can exercise the full
	// program lifecycle without a pty.
	if ms := os.Getenv("LV_TUI_AUTOCLOSE_MS"); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil && n > 0 {
			go func() {
				time.Sleep(time.Duration(n) * time.Millisecond)
				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}
