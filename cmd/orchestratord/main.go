// Command orchestratord is the example composition root wiring together
// config, agentregistry, mapping, hooks, rendezvous, runlog, sequence,
// facade, and transport into one running process. Grounded on the
// teacher's example/cmd/assistant/main.go: flag-parsed host/port, clue/log
// for structured logging, a signal-driven graceful shutdown over a shared
// error channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goa.design/clue/log"

	"github.com/normcode/orchestrator/agentregistry"
	"github.com/normcode/orchestrator/config"
	"github.com/normcode/orchestrator/facade"
	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/mapping"
	"github.com/normcode/orchestrator/rendezvous"
	"github.com/normcode/orchestrator/runlog"
	"github.com/normcode/orchestrator/sequence"
	"github.com/normcode/orchestrator/state"
	"github.com/normcode/orchestrator/telemetry"
	"github.com/normcode/orchestrator/tools"
	"github.com/normcode/orchestrator/transport"
)

func main() {
	var (
		hostF      = flag.String("host", "localhost", "server host")
		httpPortF  = flag.String("http-port", "8080", "HTTP port")
		configF    = flag.String("config", "orchestrator.yaml", "path to the orchestrator configuration document")
		baseDirF   = flag.String("base-dir", ".", "default per-agent base directory")
		dbgF       = flag.Bool("debug", false, "enable debug logs")
		runLogCapF = flag.Int("run-log-capacity", 10000, "max events retained per run in the in-memory run log")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
	}

	doc, err := config.Load(*configF)
	if err != nil {
		log.Fatalf(ctx, err, "loading configuration %q", *configF)
	}

	logger := telemetry.NewClueLogger()
	tracer := telemetry.NewClueTracer()
	metrics := telemetry.NewClueMetrics()
	bus := hooks.NewBus()

	registry := agentregistry.New(*baseDirF, bus, logger, agentregistry.Factories{})
	registry.SetMetrics(metrics)

	defaultAgent := doc.DefaultAgent
	if defaultAgent == "" {
		defaultAgent = agentregistry.DefaultAgentID
	}
	mapper := mapping.New(defaultAgent)
	mapper.SetLogger(logger)
	// LoadProjectAgents registers the agent roster and its mapping rules
	// as one unit; BuildMappingService is not used here too, since it
	// would add the same rules a second time. Pins have no registry-side
	// counterpart, so they are applied directly.
	if err := registry.LoadProjectAgents(doc.ProjectAgentConfig(), mapper); err != nil {
		log.Fatalf(ctx, err, "loading project agents")
	}
	for _, p := range doc.Pins {
		mapper.SetExplicit(p.FlowIndex, p.AgentID)
	}

	rz := rendezvous.New(bus)
	store := runlog.NewMemoryStore(*runLogCapF)

	f := facade.New(doc, registry, mapper, bus, rz, store, exampleSteps(), logger, nil, tracer, metrics)
	defer f.Close()

	srv := transport.NewServer(f, bus, logger)
	mux := http.NewServeMux()
	mux.Handle("/observe", srv)

	errc := make(chan error, 1)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	addr := net.JoinHostPort(*hostF, *httpPortF)
	u := &url.URL{Scheme: "http", Host: addr}
	httpServer := &http.Server{Addr: u.Host, Handler: mux, ReadHeaderTimeout: 60 * time.Second}

	go func() {
		log.Printf(ctx, "orchestratord listening on %q", u.Host)
		errc <- httpServer.ListenAndServe()
	}()

	log.Printf(ctx, "exit: %v", <-errc)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf(ctx, "failed to shutdown cleanly: %v", err)
	}
}

// exampleSteps returns a minimal sequence.Registry exercising the wiring
// above. What each step kind actually computes (IWI, MFP, and the rest of
// spec.md §3's closed StepDescriptor set) is out of scope for the core per
// spec.md §1 — "the domain-specific step logic... beyond its contract" is
// an external collaborator. A real deployment supplies its own
// sequence.Registry built from its own step implementations.
func exampleSteps() sequence.Registry {
	return sequence.MapRegistry{
		"IWI": recordAndContinue,
		"MFP": recordAndContinue,
	}
}

func recordAndContinue(ctx context.Context, st *state.ReferenceInterpretationState, desc state.StepDescriptor, bound tools.Bundle) error {
	st.Record(desc)
	return nil
}
