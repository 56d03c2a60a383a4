package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner abstracts process execution for the engine lifecycles.
type CommandRunner interface {
	// Run executes argv to completion and returns the combined output.
	Run(ctx context.Context, argv []string) (string, error)
	// Start launches argv detached, output redirected to logPath.
	Start(ctx context.Context, argv []string, logPath string) (Process, error)
}

// Process is a handle on a started command.
type Process interface {
	Kill() error
}

// OSRunner executes commands on the host.
type OSRunner struct{}

// Run executes argv with combined output capture.
func (OSRunner) Run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("empty argv")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if msg != "" {
			return out.String(), fmt.Errorf("run %q failed: %w: %s", argv, err, msg)
		}
		return out.String(), fmt.Errorf("run %q failed: %w", argv, err)
	}
	return out.String(), nil
}

// Start launches argv without waiting, writing combined output to logPath.
func (OSRunner) Start(ctx context.Context, argv []string, logPath string) (Process, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log %s: %w", logPath, err)
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("start %q failed: %w", argv, err)
	}
	return &osProcess{cmd: cmd, log: logFile}, nil
}

type osProcess struct {
	cmd *exec.Cmd
	log *os.File
}

func (p *osProcess) Kill() error {
	err := p.cmd.Process.Kill()
	// Reap in the background; the process may take a moment to die.
	go func() {
		p.cmd.Wait()
		p.log.Close()
	}()
	return err
}
