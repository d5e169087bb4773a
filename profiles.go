package mc_launch_engine

import (
	launch_args "github.com/mrmelon54/mc-launch-engine/launch-args"
	"path/filepath"
)

type ProfilesConfig map[string]Profile

type Profile struct {
	ProfileDetails `yaml:",inline"`
	Account        launch_args.Account `yaml:"account"`
}

// ProfileDetails is the part of a profile that is safe to show.
type ProfileDetails struct {
	Name         string   `yaml:"name" json:"name"`
	Version      string   `yaml:"version" json:"version"`
	GameDir      string   `yaml:"gameDir" json:"game_dir"`
	JavaPath     string   `yaml:"javaPath" json:"java_path,omitempty"`
	MinMemory    int      `yaml:"minMemory" json:"min_memory,omitempty"`
	MaxMemory    int      `yaml:"maxMemory" json:"max_memory,omitempty"`
	Width        int      `yaml:"width" json:"width,omitempty"`
	Height       int      `yaml:"height" json:"height,omitempty"`
	ExtraJVMArgs []string `yaml:"extraJvmArgs" json:"extra_jvm_args,omitempty"`
}

// LaunchAccount falls back to an offline account for profiles that only
// name a player.
func (p Profile) LaunchAccount() launch_args.Account {
	if p.Account.Kind == "" || p.Account.Kind == launch_args.AccountOffline || p.Account.UUID == "" {
		return launch_args.OfflineAccount(p.Account.Username)
	}
	return p.Account
}

// LaunchConfig overlays the profile on the launcher wide defaults in base.
func (p Profile) LaunchConfig(base launch_args.Config) launch_args.Config {
	c := base
	if p.GameDir != "" {
		c.GameDir = p.GameDir
		// relative game dirs live under the base game dir
		if !filepath.IsAbs(c.GameDir) && base.GameDir != "" {
			c.GameDir = filepath.Join(base.GameDir, c.GameDir)
		}
	}
	if p.JavaPath != "" {
		c.JavaPath = p.JavaPath
	}
	if p.MinMemory > 0 {
		c.MinMemoryMB = p.MinMemory
	}
	if p.MaxMemory > 0 {
		c.MaxMemoryMB = p.MaxMemory
	}
	if p.Width > 0 && p.Height > 0 {
		c.Width, c.Height = p.Width, p.Height
	}
	c.ExtraJVMArgs = append(append([]string(nil), base.ExtraJVMArgs...), p.ExtraJVMArgs...)
	return c
}
