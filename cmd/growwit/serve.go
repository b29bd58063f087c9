package main

import (
	"context"

	"github.com/vinayprograms/growwit/internal/config"
	"github.com/vinayprograms/growwit/internal/server"
)

// Run serves the API until the process is interrupted.
func (c *ServeCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	srv := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		MaxConnections:  cfg.Server.MaxConnections,
		CORSOrigin:      cfg.Server.CORSOrigin,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		ShutdownTimeout: config.Seconds(cfg.Timeouts.Shutdown),
	}, rt.pipeline)
	rt.logger.Info("starting growwit", map[string]interface{}{
		"version": version,
		"addr":    cfg.Server.Addr,
		"agents":  rt.agents.Names(),
	})
	return srv.ListenAndServe(ctx)
}
