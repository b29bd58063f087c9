// Package main defines the CLI structure using kong.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Config string `short:"c" help:"Config file path (default: ./growwit.toml)" type:"path"`
	Debug  bool   `help:"Record agent output in sessions and spans"`

	Serve    ServeCmd    `cmd:"" help:"Serve the campaign API"`
	Generate GenerateCmd `cmd:"" help:"Generate a campaign for a product"`
	Craft    CraftCmd    `cmd:"" help:"Craft posts from a saved strategy"`
	Parse    ParseCmd    `cmd:"" help:"Parse a saved campaign report"`
	Agents   AgentsCmd   `cmd:"" help:"List agent definitions and their models"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	Addr string `help:"Listen address (overrides config and PORT)"`
}

// GenerateCmd runs one campaign pass from the terminal.
type GenerateCmd struct {
	Name        string `short:"n" required:"" help:"Product name"`
	Description string `short:"d" required:"" help:"Product description"`
	Goal        string `short:"g" default:"discussion" help:"Campaign goal (discussion, dms, profile, traffic, calls)"`
	JSON        bool   `help:"Print the structured result as JSON instead of streaming"`
}

// CraftCmd writes ready-to-post drafts for a saved strategy.
type CraftCmd struct {
	Strategy    string `arg:"" help:"Strategy file (- for stdin)"`
	Posts       int    `short:"p" default:"4" help:"Posts per month"`
	Name        string `short:"n" help:"Product name"`
	Description string `short:"d" help:"Product description"`
	JSON        bool   `help:"Print posts and actions as JSON"`
}

// ParseCmd parses a saved report.
type ParseCmd struct {
	File  string `arg:"" help:"Report file (- for stdin)"`
	JSON  bool   `help:"Print the parsed report as JSON"`
	Width int    `default:"80" help:"Wrap post bodies at this width"`
}

// AgentsCmd lists agent definitions.
type AgentsCmd struct{}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
