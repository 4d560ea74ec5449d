package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"lapse/internal/config"
)

// Requirement defines an external dependency lapse relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Path        string `json:"path,omitempty"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the binaries the configuration refers to: the encoder
// and every camera hook script.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{{
		Name:        "FFmpeg",
		Command:     cfg.FFmpeg.Binary,
		Description: "Encodes rendered timelapses",
	}}
	for _, cam := range cfg.Cameras {
		label := cam.Name
		if strings.TrimSpace(label) == "" {
			label = cam.GUID
		}
		if script := strings.TrimSpace(cam.BeforeRenderScript); script != "" {
			reqs = append(reqs, Requirement{
				Name:        fmt.Sprintf("Before render script (%s)", label),
				Command:     script,
				Description: "Runs before each render for this camera",
				Optional:    true,
			})
		}
		if script := strings.TrimSpace(cam.AfterRenderScript); script != "" {
			reqs = append(reqs, Requirement{
				Name:        fmt.Sprintf("After render script (%s)", label),
				Command:     script,
				Description: "Runs after each render for this camera",
				Optional:    true,
			})
		}
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
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
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = resolved
		if err := checkExecutable(resolved); err != nil {
			status.Available = false
			status.Detail = err.Error()
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Check evaluates every requirement named by cfg.
func Check(cfg *config.Config) []Status {
	return CheckBinaries(Requirements(cfg))
}

// MissingRequired returns the required dependencies that are unavailable.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
