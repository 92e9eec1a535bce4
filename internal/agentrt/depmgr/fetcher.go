package depmgr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ShellFetcher is the production Fetcher: it shells out to
// docker/npm/pip/venv to install artifacts. Arguments are fixed per
// kind and never built by interpolating user-supplied strings.
type ShellFetcher struct{}

// NewShellFetcher creates a production Fetcher.
func NewShellFetcher() *ShellFetcher { return &ShellFetcher{} }

func (f *ShellFetcher) IsCommandAvailable(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

func (f *ShellFetcher) Install(ctx context.Context, kind Kind, name, dest string) (string, string, error) {
	switch kind {
	case KindBinary:
		return f.installBinary(ctx, name, dest)
	case KindContainerImage:
		return f.installContainerImage(ctx, name)
	case KindNodePackage:
		return f.installNodePackage(ctx, name, dest)
	case KindPythonPackage:
		return f.installPythonPackage(ctx, name, dest)
	default:
		return "", "", fmt.Errorf("depmgr: unknown dependency kind %q", kind)
	}
}

func (f *ShellFetcher) installBinary(ctx context.Context, name, dest string) (string, string, error) {
	if !f.IsCommandAvailable(name) {
		return "", "", fmt.Errorf("depmgr: binary %q not found on PATH", name)
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", "", err
	}
	version := runVersionProbe(ctx, path)
	_ = dest
	return path, version, nil
}

func (f *ShellFetcher) installContainerImage(ctx context.Context, image string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "docker", "pull", image)
	if err := cmd.Run(); err != nil {
		return "", "", fmt.Errorf("depmgr: docker pull %s: %w", image, err)
	}
	return image, "latest", nil
}

func (f *ShellFetcher) installNodePackage(ctx context.Context, pkg, dest string) (string, string, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", "", err
	}
	cmd := exec.CommandContext(ctx, "npm", "install", "--prefix", dest, pkg)
	if err := cmd.Run(); err != nil {
		return "", "", fmt.Errorf("depmgr: npm install %s: %w", pkg, err)
	}
	return dest, "", nil
}

func (f *ShellFetcher) installPythonPackage(ctx context.Context, pkg, dest string) (string, string, error) {
	if err := exec.CommandContext(ctx, "python3", "-m", "venv", dest).Run(); err != nil {
		return "", "", fmt.Errorf("depmgr: create venv for %s: %w", pkg, err)
	}
	pip := dest + "/bin/pip"
	if err := exec.CommandContext(ctx, pip, "install", pkg).Run(); err != nil {
		return "", "", fmt.Errorf("depmgr: pip install %s: %w", pkg, err)
	}
	return dest, "", nil
}

func runVersionProbe(ctx context.Context, path string) string {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "--version")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(out.String())
}

// MockFetcher is a test double that records Install calls and
// returns canned results, for exercising Manager without shelling
// out to docker/npm/pip.
type MockFetcher struct {
	Installed []string
	Path      string
	Version   string
	Available map[string]bool
	Err       error
}

func (f *MockFetcher) Install(ctx context.Context, kind Kind, name, dest string) (string, string, error) {
	if f.Err != nil {
		return "", "", f.Err
	}
	f.Installed = append(f.Installed, name)
	path := f.Path
	if path == "" {
		path = dest
	}
	return path, f.Version, nil
}

func (f *MockFetcher) IsCommandAvailable(cmd string) bool {
	if f.Available == nil {
		return true
	}
	return f.Available[cmd]
}
