// Package guard decides whether a page request may proceed, based on a
// declarative path policy.
package guard

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicy []byte

type Action int

const (
	Allow Action = iota
	RedirectLogin
	RedirectOnboarding
)

func (a Action) String() string {
	switch a {
	case RedirectLogin:
		return "redirect_login"
	case RedirectOnboarding:
		return "redirect_onboarding"
	}
	return "allow"
}

type Decision struct {
	Action   Action
	Location string
}

type ProtectedPrefix struct {
	Prefix            string `yaml:"prefix"`
	RequireOnboarding bool   `yaml:"require_onboarding"`
}

type Policy struct {
	LoginPath      string            `yaml:"login_path"`
	OnboardingPath string            `yaml:"onboarding_path"`
	SkipPrefixes   []string          `yaml:"skip_prefixes"`
	PublicPaths    []string          `yaml:"public_paths"`
	Protected      []ProtectedPrefix `yaml:"protected"`

	public map[string]struct{}
}

// Load reads the policy at path, or the built-in policy when path is empty.
func Load(path string) (*Policy, error) {
	data := defaultPolicy
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read guard policy: %w", err)
		}
	}
	return Parse(data)
}

func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse guard policy: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.public = make(map[string]struct{}, len(p.PublicPaths))
	for _, path := range p.PublicPaths {
		p.public[path] = struct{}{}
	}
	return &p, nil
}

func (p *Policy) validate() error {
	if p.LoginPath == "" || p.OnboardingPath == "" {
		return errors.New("guard policy: login_path and onboarding_path are required")
	}
	for _, pp := range p.Protected {
		if !strings.HasPrefix(pp.Prefix, "/") {
			return fmt.Errorf("guard policy: protected prefix %q must start with /", pp.Prefix)
		}
		if pp.RequireOnboarding && hasPathPrefix(p.OnboardingPath, pp.Prefix) {
			return fmt.Errorf("guard policy: %q requires onboarding but contains the onboarding path", pp.Prefix)
		}
	}
	return nil
}

// Skipped reports whether path is outside the guard entirely.
func (p *Policy) Skipped(path string) bool {
	if path == "/" || strings.Contains(path, ".") {
		return true
	}
	for _, prefix := range p.SkipPrefixes {
		if hasPathPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Match returns the protected rule covering path, if any.
func (p *Policy) Match(path string) (ProtectedPrefix, bool) {
	if p.Skipped(path) {
		return ProtectedPrefix{}, false
	}
	if _, ok := p.public[path]; ok {
		return ProtectedPrefix{}, false
	}
	for _, pp := range p.Protected {
		if hasPathPrefix(path, pp.Prefix) {
			return pp, true
		}
	}
	return ProtectedPrefix{}, false
}

// Evaluate decides the request. setupComplete is only consulted for rules
// that require onboarding; an error from it lets the request through.
func (p *Policy) Evaluate(path string, hasSession bool, setupComplete func() (bool, error)) Decision {
	rule, ok := p.Match(path)
	if !ok {
		return Decision{Action: Allow}
	}
	if !hasSession {
		return Decision{Action: RedirectLogin, Location: p.LoginPath}
	}
	if !rule.RequireOnboarding {
		return Decision{Action: Allow}
	}
	done, err := setupComplete()
	if err != nil || done {
		return Decision{Action: Allow}
	}
	return Decision{Action: RedirectOnboarding, Location: p.OnboardingPath}
}

// hasPathPrefix matches whole segments: /dashboard covers /dashboard/x but
// not /dashboards.
func hasPathPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || strings.HasSuffix(prefix, "/") || path[len(prefix)] == '/'
}
