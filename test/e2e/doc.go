/*
Command openwisp-e2e runs the acceptance suite against a deployed OpenWISP
docker stack.

# Package Structure

	test/e2e/
	├── main.go      Entry point: exit status
	├── root.go      Root command: flags, configuration, wiring, run
	├── commands.go  scenarios and history subcommands
	└── doc.go       This file

# Wiring

	config ──► logging (stderr + rotating logs file)
	       ──► compose.Client (pkg/command ExecRunner)
	       ──► workflow.Library ──► harness.ResourceTracker
	       ──► verifier.Verifier
	       ──► browser.Factory (chromium, firefox)
	       ──► harness.Runner ──► probe, Collector
	                         └──► report.PrintSummary, store, report.WriteXLSX

# Usage

	openwisp-e2e --app-url https://dashboard.example.com --logs
	openwisp-e2e --config config.json --scenario radius --scenario "containers down"
	openwisp-e2e scenarios
	openwisp-e2e history results.duckdb --failed

The process exits with status 1 when any scenario failed or the stack never
became ready.
*/
package main
