package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrClosed is returned by calls on a Device after Close.
var ErrClosed = errors.New("adb device session closed")

// CertFileMode is the mode pushed files get. adb push carries the local mode
// over, and apps must be able to read the CA store.
const CertFileMode os.FileMode = 0o644

// Device is a session bound to one device serial. Every call blocks until
// adb returns.
type Device struct {
	runner Runner
	serial string
}

func (d *Device) Serial() string {
	return d.serial
}

func (d *Device) run(ctx context.Context, args ...string) ([]byte, error) {
	if d.serial == "" {
		return nil, ErrClosed
	}
	return d.runner.Run(ctx, nil, append([]string{"-s", d.serial}, args...)...)
}

// Root restarts adbd with root permissions and waits for it to come back.
func (d *Device) Root(ctx context.Context) error {
	if _, err := d.run(ctx, "root"); err != nil {
		return err
	}
	_, err := d.run(ctx, "wait-for-device")
	return err
}

// Remount makes /system writable.
func (d *Device) Remount(ctx context.Context) error {
	_, err := d.run(ctx, "remount")
	return err
}

// Exists reports whether a file exists at path on the device.
func (d *Device) Exists(ctx context.Context, path string) (bool, error) {
	out, err := d.run(ctx, "shell", fmt.Sprintf("test -e %s && echo 1 || echo 0", shellQuote(path)))
	if err != nil {
		return false, err
	}
	switch strings.TrimSpace(string(out)) {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected output checking %s: %q", path, out)
	}
}

// Read returns the full contents of path on the device.
func (d *Device) Read(ctx context.Context, path string) ([]byte, error) {
	out, err := d.run(ctx, "exec-out", "cat "+shellQuote(path))
	if err != nil {
		return nil, err
	}
	// Without shell protocol v2 adb exits 0 and cat's stderr lands in stdout.
	if bytes.HasPrefix(out, []byte("cat: ")) {
		return nil, fmt.Errorf("reading %s: %s", path, bytes.TrimSpace(out))
	}
	return out, nil
}

// Write stores data at path on the device. adb push needs a local file, so
// the bytes are staged in a temporary file first.
func (d *Device) Write(ctx context.Context, path string, data []byte) error {
	tmp, err := os.CreateTemp("", "installsyscert-*.pem")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(CertFileMode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	_, err = d.run(ctx, "push", tmp.Name(), path)
	return err
}

// Close ends the session. Later calls fail with ErrClosed.
func (d *Device) Close() error {
	d.serial = ""
	return nil
}

func shellQuote(s string) string {
	if !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()*?[]{}!#~") && s != "" {
		return s
	}
	var b bytes.Buffer
	b.WriteByte('\'')
	b.WriteString(strings.ReplaceAll(s, "'", `'\''`))
	b.WriteByte('\'')
	return b.String()
}
