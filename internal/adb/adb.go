// Package adb drives the adb executable to talk to an attached Android device.
package adb

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

var (
	ErrNoDevice        = errors.New("no online adb device found")
	ErrMultipleDevices = errors.New("more than one adb device online, specify a serial")
)

// StateDevice is the state adb reports for a device ready to accept commands.
const StateDevice = "device"

// Runner executes one adb invocation and returns its standard output.
type Runner interface {
	Run(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error)
}

// CommandError is returned when adb exits unsuccessfully.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("adb %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs the adb binary found at Path (or on $PATH).
type ExecRunner struct {
	Path string
}

func (r ExecRunner) Run(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error) {
	name := r.Path
	if name == "" {
		name = "adb"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = os.Environ()
	if err := cmd.Run(); err != nil {
		return nil, &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

// DeviceInfo is one line of `adb devices`.
type DeviceInfo struct {
	Serial string
	State  string
}

// Client lists and selects devices.
type Client struct {
	runner Runner
}

func NewClient(runner Runner) *Client {
	return &Client{runner: runner}
}

func (c *Client) linesOf(ctx context.Context, args ...string) ([]string, error) {
	out, err := c.runner.Run(ctx, nil, args...)
	if err != nil {
		return nil, err
	}
	var ret []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); len(line) > 0 {
			ret = append(ret, line)
		}
	}
	return ret, scanner.Err()
}

// Devices returns every device adb knows about, in any state.
func (c *Client) Devices(ctx context.Context) ([]DeviceInfo, error) {
	lines, err := c.linesOf(ctx, "devices")
	if err != nil {
		return nil, err
	}
	var ret []DeviceInfo
	for _, line := range lines {
		// daemon startup chatter and the header
		if strings.HasPrefix(line, "*") || strings.HasPrefix(line, "List of devices") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		ret = append(ret, DeviceInfo{Serial: fields[0], State: fields[1]})
	}
	return ret, nil
}

// Device opens a session on the device with the given serial, or on the only
// online device when serial is empty.
func (c *Client) Device(ctx context.Context, serial string) (*Device, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return nil, err
	}

	if serial != "" {
		for _, d := range devices {
			if d.Serial != serial {
				continue
			}
			if d.State != StateDevice {
				return nil, fmt.Errorf("device %s is %s", serial, d.State)
			}
			return &Device{runner: c.runner, serial: serial}, nil
		}
		return nil, fmt.Errorf("device %s: %w", serial, ErrNoDevice)
	}

	var online []string
	for _, d := range devices {
		if d.State == StateDevice {
			online = append(online, d.Serial)
		}
	}
	switch len(online) {
	case 0:
		return nil, ErrNoDevice
	case 1:
		return &Device{runner: c.runner, serial: online[0]}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrMultipleDevices, strings.Join(online, ", "))
	}
}
