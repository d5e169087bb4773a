package manifest

import (
	"regexp"
	"runtime"
)

const (
	ActionAllow    = "allow"
	ActionDisallow = "disallow"
)

type Rule struct {
	Action   string          `json:"action"`
	OS       *OSRule         `json:"os,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}

type OSRule struct {
	Name    string `json:"name,omitempty"`
	Arch    string `json:"arch,omitempty"`
	Version string `json:"version,omitempty"`
}

// Platform is the host a manifest is evaluated against. OSName uses the
// manifest vocabulary: windows, osx or linux.
type Platform struct {
	OSName    string
	Arch      string
	OSVersion string
	Features  map[string]bool
}

func CurrentPlatform() Platform {
	return Platform{OSName: OSName(runtime.GOOS), Arch: Arch(runtime.GOARCH)}
}

func OSName(goos string) string {
	switch goos {
	case "darwin":
		return "osx"
	case "windows":
		return "windows"
	}
	return "linux"
}

func Arch(goarch string) string {
	switch goarch {
	case "386":
		return "x86"
	case "amd64":
		return "x86_64"
	case "arm64":
		return "arm64"
	}
	return goarch
}

// Bits is the value substituted for ${arch} in native classifier keys.
func (p Platform) Bits() string {
	switch p.Arch {
	case "x86", "arm":
		return "32"
	}
	return "64"
}

// Allowed evaluates rules in order; every matching rule overwrites the verdict.
// No rules means allowed.
func Allowed(rules []Rule, p Platform) bool {
	if len(rules) == 0 {
		return true
	}
	allowed := false
	for _, r := range rules {
		if r.matches(p) {
			allowed = r.Action == ActionAllow
		}
	}
	return allowed
}

func (r Rule) matches(p Platform) bool {
	if r.OS != nil {
		if r.OS.Name != "" && r.OS.Name != p.OSName {
			return false
		}
		if r.OS.Arch != "" && r.OS.Arch != p.Arch {
			return false
		}
		if r.OS.Version != "" && p.OSVersion != "" {
			re, err := regexp.Compile(r.OS.Version)
			if err != nil || !re.MatchString(p.OSVersion) {
				return false
			}
		}
	}
	for k, v := range r.Features {
		if p.Features[k] != v {
			return false
		}
	}
	return true
}
