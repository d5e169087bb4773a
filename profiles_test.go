package mc_launch_engine

import (
	launch_args "github.com/mrmelon54/mc-launch-engine/launch-args"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
	"path/filepath"
	"testing"
)

const profilesYml = `
vanilla:
  name: Vanilla
  version: 1.20.4
  maxMemory: 4096
  extraJvmArgs: ["-XX:+UseG1GC"]
  account:
    username: Steve
modded:
  name: Modded
  version: 1.20.1-forge-47.2.0
  gameDir: /games/modded
  width: 1280
  height: 720
  account:
    username: Alex
    uuid: 069a79f4-44e9-4726-a5be-fca90e38aaf5
    accessToken: secret
    kind: Microsoft
`

func TestProfilesConfig(t *testing.T) {
	var p ProfilesConfig
	assert.NoError(t, yaml.Unmarshal([]byte(profilesYml), &p))
	assert.Len(t, p, 2)

	base := launch_args.Config{GameDir: "/mc", JavaPath: "java", MaxMemoryMB: 2048, ExtraJVMArgs: []string{"-Dbase=1"}}

	vanilla := p["vanilla"]
	assert.Equal(t, "1.20.4", vanilla.Version)
	acc := vanilla.LaunchAccount()
	assert.Equal(t, launch_args.AccountOffline, acc.Kind)
	assert.Equal(t, launch_args.OfflineAccount("Steve").UUID, acc.UUID)
	c := vanilla.LaunchConfig(base)
	assert.Equal(t, "/mc", c.GameDir)
	assert.Equal(t, 4096, c.MaxMemoryMB)
	assert.Equal(t, []string{"-Dbase=1", "-XX:+UseG1GC"}, c.ExtraJVMArgs)
	assert.Equal(t, []string{"-Dbase=1"}, base.ExtraJVMArgs)

	modded := p["modded"]
	acc = modded.LaunchAccount()
	assert.Equal(t, launch_args.AccountMicrosoft, acc.Kind)
	assert.Equal(t, "secret", acc.AccessToken)
	c = modded.LaunchConfig(base)
	assert.Equal(t, "/games/modded", c.GameDir)
	assert.Equal(t, 1280, c.Width)
	assert.Equal(t, 2048, c.MaxMemoryMB)

	modded.GameDir = "instances/modded"
	c = modded.LaunchConfig(base)
	assert.Equal(t, filepath.Join("/mc", "instances/modded"), c.GameDir)
}
