// Command tabled runs the table lobby and its operator HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"holdem-arena/internal/admin"
	"holdem-arena/internal/config"
	"holdem-arena/internal/ledger"
	"holdem-arena/internal/lobby"
	"holdem-arena/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tabled: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	listen := flag.String("listen", "", "admin listen address (overrides LISTEN_ADDR)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	logs, err := logging.New(logging.Config{Dir: cfg.LogDir, Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer logs.Close()
	log := logs.Logger(logging.SubMain)

	svc, mode, err := ledger.NewServiceFromEnv(cfg.LedgerMode, logs.Logger(logging.SubLedger))
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer svc.Close()
	log.Infof("ledger mode: %s", mode)

	lby, err := lobby.New(lobby.Config{
		Ledger:        svc,
		Template:      cfg.TableTemplate(),
		Blinds:        cfg.Blinds,
		Rake:          cfg.Rake,
		Log:           logs.Logger(logging.SubLobby),
		TableLog:      logs.Logger(logging.SubTable),
		TournamentLog: logs.Logger(logging.SubTournament),
	})
	if err != nil {
		return err
	}
	for i := 0; i < cfg.CashTables; i++ {
		t, err := lby.CreateCash(lobby.CashSpec{})
		if err != nil {
			return fmt.Errorf("open cash table: %w", err)
		}
		log.Infof("opened cash table %s", t.ID())
	}
	if tc := cfg.Tournament; tc.Enabled() {
		t, err := lby.CreateTournament(lobby.TournamentSpec{
			ID:            tc.TableID,
			TournamentID:  tc.ID,
			Entries:       tc.Entries(time.Now()),
			FinalDuration: tc.FinalDuration,
			Break:         tc.Break,
			StartingStack: tc.StartingStack,
			MaxSeats:      tc.MaxSeats,
		})
		if err != nil {
			return fmt.Errorf("open tournament table: %w", err)
		}
		log.Infof("opened tournament %s on table %s", tc.ID, t.ID())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(ctx, cancel, log.Infof)

	srv := admin.New(admin.Config{Lobby: lby, Levels: logs, Log: logs.Logger(logging.SubAdmin)})
	serveErr := srv.ListenAndServe(ctx, cfg.ListenAddr)
	if serveErr != nil {
		log.Errorf("admin server: %v", serveErr)
	}

	log.Infof("closing tables")
	closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer closeCancel()
	if err := lby.Close(closeCtx); err != nil {
		log.Warnf("tables did not close cleanly: %v", err)
	}
	log.Infof("shutdown complete")
	return serveErr
}

func watchSignals(ctx context.Context, cancel context.CancelFunc, logf func(string, ...any)) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)
	select {
	case sig := <-c:
		logf("received %v, shutting down", sig)
		cancel()
	case <-ctx.Done():
	}
}
