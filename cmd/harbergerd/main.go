package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"

	"harberger/config"
	"harberger/core/events"
	"harberger/core/state"
	"harberger/core/types"
	"harberger/native/feerecord"
	"harberger/native/pricing"
	"harberger/native/purchase"
	"harberger/native/registry"
	"harberger/native/settlement"
	"harberger/observability/logging"
	"harberger/rpc"
)

// slogEmitter forwards engine events to the structured log.
type slogEmitter struct {
	log *slog.Logger
}

func (e slogEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	e.log.Info("engine event", "type", evt.EventType())
}

func main() {
	configPath := flag.String("config", "harberger.toml", "path to the daemon configuration")
	env := flag.String("env", "", "deployment environment tag for logs")
	flag.Parse()

	if err := run(*configPath, *env); err != nil {
		fmt.Fprintf(os.Stderr, "harbergerd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, env string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	if err := config.Validate(cfg, now); err != nil {
		return err
	}

	var sink io.Writer
	if cfg.LogFile != "" {
		sink = &lumberjack.Logger{Filename: cfg.LogFile, MaxSize: 100, MaxBackups: 5, Compress: true}
	}
	log := logging.Setup("harbergerd", env, sink)

	curve, err := buildCurve(cfg)
	if err != nil {
		return err
	}
	authority, _ := types.ParseAddress(cfg.Engine.Authority)
	collector, _ := types.ParseAddress(cfg.Engine.Collector)
	adapterAddr, _ := types.ParseAddress(cfg.Engine.AdapterAddress)
	settlementAddr, _ := types.ParseAddress(cfg.Engine.SettlementEngine)

	record := feerecord.NewRecord()
	reg := registry.New()
	ledger := state.NewLedger()
	engine, err := purchase.NewEngine(record, reg, curve, ledger, authority, collector)
	if err != nil {
		return err
	}
	adapter, err := settlement.NewAdapter(engine, adapterAddr, settlementAddr)
	if err != nil {
		return err
	}
	emitter := slogEmitter{log: log}
	engine.SetEmitter(emitter)
	reg.SetEmitter(emitter)
	adapter.SetEmitter(emitter)

	log.Info("engine configured",
		"variant", cfg.Engine.Variant,
		"feeBps", cfg.Engine.FeeBps,
		"settlementEngine", settlementAddr.Hex(),
	)
	if cfg.MetricsAddress != "" && cfg.MetricsAddress != cfg.ListenAddress {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info("starting metrics server", "addr", cfg.MetricsAddress)
			if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
	}
	server := rpc.NewServer(engine, adapter, log)
	return server.Start(cfg.ListenAddress)
}

func buildCurve(cfg *config.Config) (pricing.Curve, error) {
	switch cfg.Engine.Variant {
	case config.VariantStatic:
		return pricing.NewStaticCurve(cfg.Engine.FeeBps)
	case config.VariantEphemeral:
		s := cfg.Engine.Schedule
		schedule, err := pricing.NewSchedule(s.ConfirmationOpen, s.ConfirmationDeadline, s.AuctionDeadline, s.FinalDeadline)
		if err != nil {
			return nil, err
		}
		return pricing.NewEphemeralCurve(cfg.Engine.FeeBps, schedule)
	default:
		return nil, fmt.Errorf("unknown curve variant %q", cfg.Engine.Variant)
	}
}
