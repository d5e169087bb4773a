package launch_args

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	ZeroUUID     = "00000000-0000-0000-0000-000000000000"
	VersionBrand = "mc-launch-engine"
)

var placeholder = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)

// tokenTable maps placeholder names to their value for one launch.
type tokenTable map[string]string

func (b *Builder) tokens(in buildInput) tokenTable {
	uuid := in.account.UUID
	userType := in.account.UserType()
	if in.manifest.AssetIndexID() == "pre-1.6" {
		uuid = ZeroUUID
		userType = "legacy"
	}
	t := tokenTable{
		"auth_player_name":    in.account.Username,
		"auth_uuid":           undashed(uuid),
		"auth_access_token":   in.account.AccessToken,
		"auth_session":        "token:" + in.account.AccessToken + ":" + undashed(uuid),
		"auth_xuid":           in.account.XUID,
		"clientid":            in.account.ClientID,
		"user_type":           userType,
		"user_properties":     "{}",
		"version_name":        in.manifest.ID,
		"version_type":        VersionBrand,
		"game_directory":      in.cfg.GameDir,
		"assets_root":         in.assetsRoot,
		"game_assets":         in.gameAssets,
		"assets_index_name":   in.manifest.AssetIndexID(),
		"library_directory":   in.libraryDir,
		"classpath_separator": in.separator,
		"natives_directory":   in.nativesDir,
		"launcher_name":       in.cfg.LauncherName,
		"launcher_version":    in.cfg.LauncherVersion,
		"client_jar":          in.clientJar,
		"primary_jar":         in.clientJar,
		"classpath":           in.classpath,
	}
	if in.cfg.Width > 0 && in.cfg.Height > 0 {
		t["resolution_width"] = strconv.Itoa(in.cfg.Width)
		t["resolution_height"] = strconv.Itoa(in.cfg.Height)
	}
	return t
}

// Substitute replaces every known placeholder in s. Unknown placeholders are
// left in place for the caller to drop.
func (t tokenTable) Substitute(s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := t[m[2:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

func unresolved(s string) bool {
	return strings.Contains(s, "${")
}
