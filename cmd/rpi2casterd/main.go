// This package provides the rpi2casterd daemon entry point: it loads
// configuration, brings up the GPIO chip and valve banks, constructs
// every configured Interface, and serves the JSON/HTTP façade until a
// termination signal is received.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/elegantandrogyne/rpi2casterd/internal/config"
	"github.com/elegantandrogyne/rpi2casterd/internal/gpioctl"
	"github.com/elegantandrogyne/rpi2casterd/internal/httpapi"
	"github.com/elegantandrogyne/rpi2casterd/internal/iface"
	"github.com/elegantandrogyne/rpi2casterd/internal/supervisor"
	"github.com/elegantandrogyne/rpi2casterd/internal/valvebank"
)

var (
	configPath = flag.String("config", "/etc/rpi2casterd.conf", "path to the daemon configuration file")
	gpioChip   = flag.String("gpio-chip", "gpiochip0", "gpiod chip name")
	verbose    = flag.Bool("verbose", false, "enable debug logging")
)

func main() {
	flag.Parse()

	logger, err := buildLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if err := run(log); err != nil {
		log.Errorw("fatal error during bring-up", "error", err)
		os.Exit(1)
	}
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(log *zap.SugaredLogger) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	gpio, err := gpioctl.NewController(*gpioChip)
	if err != nil {
		return fmt.Errorf("opening gpio chip: %w", err)
	}

	super, err := supervisor.New(gpio, cfg.Daemon, log)
	if err != nil {
		return fmt.Errorf("setting up supervisor: %w", err)
	}

	interfaces := make(map[string]httpapi.Interface, len(cfg.Interfaces))
	for name, ifaceCfg := range cfg.Interfaces {
		bank, err := newValveBank(ifaceCfg)
		if err != nil {
			return fmt.Errorf("setting up valve bank for interface %s: %w", name, err)
		}
		i, err := iface.New(name, ifaceCfg, gpio, bank, log.Named(name))
		if err != nil {
			return fmt.Errorf("setting up interface %s: %w", name, err)
		}
		super.AddInterface(i)
		interfaces[name] = i
	}

	server := httpapi.New(interfaces, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErrs := make(chan error, 1)
	go func() {
		serveErrs <- server.Listen(cfg.Daemon.ListenAddress)
	}()

	select {
	case <-ctx.Done():
		log.Infow("received termination signal, tearing down")
	case err := <-serveErrs:
		if err != nil {
			log.Errorw("http listener stopped unexpectedly", "error", err)
		}
	}

	if err := server.Shutdown(); err != nil {
		log.Warnw("http server shutdown", "error", err)
	}
	return super.Teardown()
}

func newValveBank(cfg *config.InterfaceConfig) (valvebank.Bank, error) {
	bankCfg := cfg.ValveBankConfig()
	switch cfg.OutputDriver {
	case "smbus":
		return valvebank.NewPeriphBank(bankCfg)
	case "wiringpi":
		return valvebank.NewRPIOBank(bankCfg)
	default:
		return nil, fmt.Errorf("unknown output driver %q", cfg.OutputDriver)
	}
}
