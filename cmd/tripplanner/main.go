// Command tripplanner plans trips with one reasoning agent per concern:
// weather, flights and hotels.
//
//	tripplanner [serve]                 run the HTTP API (default)
//	tripplanner plan -from Paris -to Rome -start 2030-06-01 -end 2030-06-07
//	tripplanner secrets set NAME        store a credential in the encrypted secrets file
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tripplanner/pkg/apperr"
	"tripplanner/pkg/config"
	"tripplanner/pkg/logx"
	"tripplanner/pkg/trip"
	"tripplanner/pkg/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches the subcommand and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return serveCommand(args, stderr)
	case "plan":
		return planCommand(args, stdout, stderr)
	case "secrets":
		return secretsCommand(args, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "tripplanner %s (commit %s)\n", version.Version, version.Commit)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q (want serve, plan, secrets or version)\n", cmd)
		return 2
	}
}

// commonFlags are shared by serve and plan.
type commonFlags struct {
	configPath string
	projectDir string
	debug      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", config.DefaultConfigFile, "Path to the YAML config file")
	fs.StringVar(&c.projectDir, "projectdir", ".", "Directory holding the encrypted secrets")
	fs.BoolVar(&c.debug, "debug", false, "Enable debug logging")
}

// setup loads secrets and configuration.
func (c *commonFlags) setup(stderr io.Writer) (*config.Config, bool) {
	if c.debug {
		logx.SetDebug(true)
	}
	if _, err := unlockSecrets(c.projectDir); err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return nil, false
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return nil, false
	}
	return cfg, true
}

func serveCommand(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, ok := common.setup(stderr)
	if !ok {
		return 1
	}

	application, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.server().ListenAndServe(ctx, cfg.Server.Addr()); err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}

// planFlags mirror the fields of a trip request.
type planFlags struct {
	from, to, start, end string
	travellers, budget   string
}

func (p *planFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&p.from, "from", "", "Origin city")
	fs.StringVar(&p.to, "to", "", "Destination city")
	fs.StringVar(&p.start, "start", "", "Start date (YYYY-MM-DD)")
	fs.StringVar(&p.end, "end", "", "End date (YYYY-MM-DD)")
	fs.StringVar(&p.travellers, "travellers", "1", "Number of travellers")
	fs.StringVar(&p.budget, "budget", "", "Total budget")
}

func (p *planFlags) request() (trip.Request, error) {
	return trip.NewRequest(trip.RawRequest{
		From:       p.from,
		To:         p.to,
		Start:      p.start,
		End:        p.end,
		Travellers: trip.Number(p.travellers),
		Budget:     trip.Number(p.budget),
	})
}

func planCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	var plan planFlags
	common.register(fs)
	plan.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	req, err := plan.request()
	if err != nil {
		return writeJSON(stdout, stderr, apperr.ToBody(err), 1)
	}

	cfg, ok := common.setup(stderr)
	if !ok {
		return 1
	}
	application, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Agent.RequestTimeout)
	defer cancel()

	result := application.planner.PlanTrip(ctx, req)
	return writeJSON(stdout, stderr, result, 0)
}

func writeJSON(stdout, stderr io.Writer, v any, code int) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "❌ failed to encode output: %v\n", err)
		return 1
	}
	return code
}
