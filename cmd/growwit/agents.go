package main

import (
	"fmt"

	"github.com/vinayprograms/growwit/internal/agentdef"
)

// Run lists the agent definitions with the model each profile resolves to.
func (c *AgentsCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	defs, err := agentdef.LoadSet(cfg.Agents.Dir)
	if err != nil {
		return err
	}
	for _, name := range defs.Names() {
		def := defs[name]
		llmCfg := cfg.GetProfile(def.Profile)
		source := "embedded"
		if def.Path != "" {
			source = def.Path
		}
		fmt.Printf("%s %s\n", headerStyle.Render(name), dimStyle.Render("("+source+")"))
		fmt.Printf("  %s %s/%s\n", labelStyle.Render("model:"), llmCfg.Provider, llmCfg.Model)
		if len(def.Tools) > 0 {
			fmt.Printf("  %s %v\n", labelStyle.Render("tools:"), def.Tools)
		}
	}
	return nil
}
