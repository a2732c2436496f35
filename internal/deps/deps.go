package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// Requirement defines an external tool slidecue invokes.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, are passed to the tool to report its version.
	VersionArgs []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// Missing reports whether a required tool could not be found.
func (s Status) Missing() bool {
	return !s.Available && !s.Optional
}

// CheckBinaries resolves each requirement on PATH and, for tools that
// declare VersionArgs, records the first line of their version output.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = resolved
		status.Available = true
		if len(req.VersionArgs) > 0 {
			status.Version = probeVersion(ctx, resolved, req.VersionArgs)
		}
		results = append(results, status)
	}
	return results
}

// AnyMissing reports whether a required tool is unavailable.
func AnyMissing(statuses []Status) bool {
	for _, s := range statuses {
		if s.Missing() {
			return true
		}
	}
	return false
}

func probeVersion(ctx context.Context, path string, args []string) string {
	probeCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(probeCtx, path, args...).CombinedOutput() //nolint:gosec
	if err != nil && len(out) == 0 {
		return ""
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}
