package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"jordanella.com/game-helper-go/internal/config"
	"jordanella.com/game-helper-go/internal/session"
	"jordanella.com/game-helper-go/internal/tools"
)

// options are the command line flags
type options struct {
	tool        string
	list        bool
	history     int
	timeout     time.Duration
	importMacro string
	exportMacro string
	maintenance maintenance
}

func main() {
	var opts options
	configPath := flag.String("config", "Settings.ini", "Path to Settings.ini")
	flag.StringVar(&opts.tool, "tool", "", "Name or ID of the profile to run")
	flag.BoolVar(&opts.list, "list", false, "List profiles and exit")
	flag.IntVar(&opts.history, "history", 0, "Print the last N recorded runs and exit")
	flag.DurationVar(&opts.timeout, "timeout", 0, "Stop the run after this long (0 = no limit)")
	flag.StringVar(&opts.importMacro, "macro", "", "Import a macro YAML file as a new profile and run it")
	flag.StringVar(&opts.exportMacro, "export", "", "Write the -tool macro to a YAML file and exit")
	flag.StringVar(&opts.maintenance.backup, "backup", "", "Copy the run database to this path and exit")
	flag.BoolVar(&opts.maintenance.vacuum, "vacuum", false, "Compact the run database and exit")
	flag.BoolVar(&opts.maintenance.info, "db-info", false, "Print the run database schema version and row counts and exit")
	flag.IntVar(&opts.maintenance.rollback, "rollback-db", 0, "Revert the run database schema to this version and exit")
	flag.Parse()

	cfg, err := config.LoadFromINI(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	sess, err := session.Open(cfg, session.Options{Console: os.Stdout})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	code := run(sess, opts)
	sess.Close()
	os.Exit(code)
}

func run(sess *session.Session, opts options) int {
	switch {
	case opts.list:
		listProfiles(sess.Manager)
		return 0
	case opts.history > 0:
		return printHistory(sess, opts.history)
	case opts.maintenance.requested():
		if sess.DB == nil {
			log.Println("Run history is not available")
			return 1
		}
		if err := opts.maintenance.apply(sess.DB, os.Stdout); err != nil {
			log.Println(err)
			return 1
		}
		return 0
	case opts.exportMacro != "":
		return exportMacro(sess.Manager, opts.tool, opts.exportMacro)
	case opts.importMacro != "":
		m, err := sess.Manager.ImportMacro(opts.importMacro)
		if err != nil {
			log.Println(err)
			return 1
		}
		log.Printf("Imported %s as %s", opts.importMacro, m.Name())
		opts.tool = m.ID()
	case opts.tool == "":
		log.Println("No profile given; use -tool NAME, -macro FILE or -list")
		return 2
	}

	tool, err := findTool(sess.Manager, opts.tool)
	if err != nil {
		log.Println(err)
		return 2
	}

	if sess.Config.StopOnWindowLoss {
		sess.Watcher.WithStopOnLoss(sess.Manager)
	}
	sess.Watcher.Start()
	defer sess.Watcher.Stop()

	sess.Emergency.WithStopCallback(func(stopped int) {
		log.Printf("Emergency stop: %d tool(s) stopped", stopped)
	})
	sess.Emergency.Start()
	defer sess.Emergency.Stop()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	if err := sess.Manager.Start(tool.ID()); err != nil {
		log.Println(err)
		return 1
	}
	log.Printf("Running %s (%s); press %s in game or Ctrl+C to stop", tool.Name(), tool.Kind().Label(), sess.Config.EmergencyKey)

	status := waitForRun(tool, interrupt, opts.timeout)
	fmt.Printf("%s: %s\n", tool.Name(), status)

	if err := sess.SaveProfiles(); err != nil {
		log.Printf("Warning: Failed to save profiles: %v", err)
	}
	if strings.HasPrefix(status, "Error") {
		return 1
	}
	return 0
}

// waitForRun prints status changes until the tool stops
func waitForRun(tool tools.Tool, interrupt <-chan os.Signal, timeout time.Duration) string {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	last := ""
	for {
		select {
		case <-interrupt:
			log.Println("Interrupted, stopping")
			tool.Stop()
		case <-deadline:
			log.Println("Timeout reached, stopping")
			tool.Stop()
		case <-ticker.C:
		}

		if status := tool.Status(); status != last {
			log.Printf("Status: %s", status)
			last = status
		}
		if !tool.IsRunning() {
			tool.Wait(2 * time.Second)
			return tool.Status()
		}
	}
}

func exportMacro(m *tools.Manager, nameOrID, path string) int {
	if nameOrID == "" {
		log.Println("-export needs -tool NAME")
		return 2
	}
	t, err := findTool(m, nameOrID)
	if err != nil {
		log.Println(err)
		return 2
	}
	macro, ok := t.(*tools.Macro)
	if !ok {
		log.Printf("%s is a %s, not a macro", t.Name(), t.Kind().Label())
		return 2
	}
	if err := macro.Export(path); err != nil {
		log.Println(err)
		return 1
	}
	fmt.Printf("Wrote %s to %s\n", macro.Name(), path)
	return 0
}

func findTool(m *tools.Manager, nameOrID string) (tools.Tool, error) {
	if t, err := m.Get(nameOrID); err == nil {
		return t, nil
	}
	t, err := m.FindByName(nameOrID)
	if err != nil {
		return nil, fmt.Errorf("no profile named %q (use -list)", nameOrID)
	}
	return t, nil
}

func listProfiles(m *tools.Manager) {
	for _, kind := range tools.Kinds {
		fmt.Printf("%s:\n", kind.Label())
		for _, t := range m.ToolsOfKind(kind) {
			fmt.Printf("  %-24s %s\n", t.Name(), t.ID())
		}
	}
}

func printHistory(sess *session.Session, limit int) int {
	if sess.DB == nil {
		log.Println("Run history is not available")
		return 1
	}
	runs, err := sess.DB.RecentRuns(limit)
	if err != nil {
		log.Printf("Failed to read history: %v", err)
		return 1
	}
	for _, r := range runs {
		duration := "-"
		if r.DurationMs != nil {
			duration = (time.Duration(*r.DurationMs) * time.Millisecond).String()
		}
		fmt.Printf("%s  %-20s %-10s %-8s x%-4d %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.ToolName, r.Outcome, duration, r.Iterations, r.Status)
	}
	return 0
}
