package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ClarkGuan/installsyscert/internal/adb"
	"github.com/ClarkGuan/installsyscert/internal/certstore"
	"github.com/ClarkGuan/installsyscert/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "installsyscert: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configFile string
	cfg        config.Config
	pemFile    string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	var flagCfg config.Config

	fs := pflag.NewFlagSet("installsyscert", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: installsyscert [flags] <certificate.pem>\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&flagCfg.CertPath, "cert-path", config.DefaultCertPath, "CA certificate directory on the device")
	fs.StringVarP(&flagCfg.DeviceSerial, "device-serial", "s", "", "serial of the device to use (default: the only attached device)")
	fs.StringVar(&flagCfg.ADBPath, "adb", config.DefaultADBPath, "adb executable")
	fs.BoolVar(&flagCfg.Root, "root", false, "restart adbd as root before installing")
	fs.BoolVar(&flagCfg.Remount, "remount", false, "remount /system read-write before installing")
	fs.BoolVarP(&flagCfg.Debug, "debug", "d", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errors.New("no certificate file (PEM) path specified")
	}
	opts.pemFile = fs.Arg(0)

	cfg := config.Default()
	if opts.configFile != "" {
		var err error
		if cfg, err = config.LoadFile(cfg, opts.configFile); err != nil {
			return opts, err
		}
	}
	cfg = config.ApplyEnv(cfg)

	if fs.Changed("cert-path") {
		cfg.CertPath = flagCfg.CertPath
	}
	if fs.Changed("device-serial") {
		cfg.DeviceSerial = flagCfg.DeviceSerial
	}
	if fs.Changed("adb") {
		cfg.ADBPath = flagCfg.ADBPath
	}
	if fs.Changed("root") {
		cfg.Root = flagCfg.Root
	}
	if fs.Changed("remount") {
		cfg.Remount = flagCfg.Remount
	}
	if fs.Changed("debug") {
		cfg.Debug = flagCfg.Debug
	}

	opts.cfg = cfg.Normalize()
	return opts, opts.cfg.Validate()
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg := opts.cfg

	logger := newLogger(stderr, cfg.Debug)
	slog.SetDefault(logger)

	logger.Info("installing", "file", opts.pemFile)
	content, err := os.ReadFile(opts.pemFile)
	if err != nil {
		return err
	}

	logger.Info("finding adb device")
	client := adb.NewClient(adb.ExecRunner{Path: cfg.ADBPath})
	device, err := client.Device(ctx, cfg.DeviceSerial)
	if err != nil {
		return fmt.Errorf("adb device selection failed: %w", err)
	}
	defer device.Close()
	logger.Info("found device", "serial", device.Serial())

	return installOn(ctx, device, cfg, content, logger)
}

// target is the device surface the driver needs; *adb.Device satisfies it.
type target interface {
	certstore.Transport
	Root(ctx context.Context) error
	Remount(ctx context.Context) error
}

func installOn(ctx context.Context, device target, cfg config.Config, content []byte, logger *slog.Logger) error {
	if cfg.Root {
		logger.Debug("restarting adbd as root")
		if err := device.Root(ctx); err != nil {
			return fmt.Errorf("adb root failed: %w", err)
		}
	}
	if cfg.Remount {
		logger.Debug("remounting system partition")
		if err := device.Remount(ctx); err != nil {
			return fmt.Errorf("adb remount failed: %w", err)
		}
	}

	installer := certstore.NewInstaller(device, logger)
	sum, err := installer.InstallAll(ctx, content, cfg.CertPath)
	if err != nil {
		return err
	}
	logger.Info("done",
		"installed", sum.Installed,
		"already_installed", sum.AlreadyInstalled,
		"skipped", sum.Skipped)
	return nil
}
