package main

import (
	launch_args "github.com/mrmelon54/mc-launch-engine/launch-args"
	"github.com/mrmelon54/mc-launch-engine/launcher"
	mod_files "github.com/mrmelon54/mc-launch-engine/mod-files"
	"path/filepath"
)

type Config struct {
	Listen     string             `yaml:"listen"`
	Launcher   launcher.Config    `yaml:"launcher"`
	Launch     launch_args.Config `yaml:"launch"`
	HistoryDB  string             `yaml:"historyDb"`
	Modrinth   mod_files.Config   `yaml:"modrinth"`
	Curseforge mod_files.Config   `yaml:"curseforge"`
}

// Defaults fills unset paths relative to wd, the directory holding config.yml.
func (c Config) Defaults(wd string) Config {
	if abs, err := filepath.Abs(wd); err == nil {
		wd = abs
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Launcher.RootDir == "" {
		c.Launcher.RootDir = filepath.Join(wd, "minecraft")
	} else if !filepath.IsAbs(c.Launcher.RootDir) {
		c.Launcher.RootDir = filepath.Join(wd, c.Launcher.RootDir)
	}
	c.Launcher = c.Launcher.Defaults()
	if c.Launch.GameDir == "" {
		c.Launch.GameDir = c.Launcher.RootDir
	} else if !filepath.IsAbs(c.Launch.GameDir) {
		c.Launch.GameDir = filepath.Join(wd, c.Launch.GameDir)
	}
	if c.Launch.LauncherName == "" {
		c.Launch.LauncherName = launch_args.VersionBrand
	}
	if c.HistoryDB == "" {
		c.HistoryDB = filepath.Join(wd, "history.sqlite3.db")
	} else if !filepath.IsAbs(c.HistoryDB) {
		c.HistoryDB = filepath.Join(wd, c.HistoryDB)
	}
	if c.Modrinth.Dir == "" {
		c.Modrinth.Dir = c.Launcher.ModsDir
	}
	if c.Curseforge.Dir == "" {
		c.Curseforge.Dir = c.Launcher.ModsDir
	}
	return c
}
