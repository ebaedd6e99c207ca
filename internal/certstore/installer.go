package certstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// Transport is the view of the device file system the installer needs.
type Transport interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
}

// TransportError wraps a failed device operation. It is never retried.
type TransportError struct {
	Op   string
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Outcome is the terminal state of one successful install.
type Outcome int

const (
	Installed Outcome = iota + 1
	AlreadyInstalled
)

func (o Outcome) String() string {
	switch o {
	case Installed:
		return "installed"
	case AlreadyInstalled:
		return "already installed"
	default:
		return "unknown"
	}
}

// Result describes where a certificate ended up.
type Result struct {
	Outcome Outcome
	Path    string
	Probes  int
}

type slot int

const (
	slotFree slot = iota
	slotIdentical
	slotCollision
)

// Installer copies certificates into a hashed CA directory on a device.
type Installer struct {
	transport Transport
	logger    *slog.Logger
}

func NewInstaller(transport Transport, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{transport: transport, logger: logger}
}

// Install writes data to the first free base.N slot, N counting up from 0.
// A slot already holding identical bytes ends the search without writing.
func (in *Installer) Install(ctx context.Context, base string, data []byte) (Result, error) {
	for iteration := 0; ; iteration++ {
		path := base + "." + strconv.Itoa(iteration)
		s, err := in.probe(ctx, path, data)
		if err != nil {
			return Result{}, err
		}
		switch s {
		case slotFree:
			in.logger.Info("copying certificate", "path", path)
			if err := in.transport.Write(ctx, path, data); err != nil {
				return Result{}, &TransportError{Op: "write", Path: path, Err: err}
			}
			return Result{Outcome: Installed, Path: path, Probes: iteration + 1}, nil
		case slotIdentical:
			return Result{Outcome: AlreadyInstalled, Path: path, Probes: iteration + 1}, nil
		default:
			in.logger.Info("collision detected, trying next iteration", "path", path)
		}
	}
}

func (in *Installer) probe(ctx context.Context, path string, data []byte) (slot, error) {
	exists, err := in.transport.Exists(ctx, path)
	if err != nil {
		return 0, &TransportError{Op: "exists", Path: path, Err: err}
	}
	if !exists {
		return slotFree, nil
	}
	existing, err := in.transport.Read(ctx, path)
	if err != nil {
		return 0, &TransportError{Op: "read", Path: path, Err: err}
	}
	if bytes.Equal(existing, data) {
		return slotIdentical, nil
	}
	return slotCollision, nil
}
