package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	configPath := flag.String("config", "", "Config file path (default ~/.drover/config.json)")
	sessionID := flag.String("session", "", "Resume a session by id, or 'latest' for the most recent one")
	listSessions := flag.Bool("list", false, "List stored sessions and exit")
	oneShot := flag.String("p", "", "Run a single prompt non-interactively and exit")
	workDir := flag.String("workdir", "", "Working directory for the agent's terminal (default: current directory)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if err := run(runOptions{
		configPath:   *configPath,
		sessionID:    *sessionID,
		listSessions: *listSessions,
		oneShot:      *oneShot,
		workDir:      *workDir,
		debug:        *debug,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "drover: %v\n", err)
		os.Exit(1)
	}
}
