package routes

import (
	"encoding/json"
	"errors"
	"github.com/julienschmidt/httprouter"
	mc_launch_engine "github.com/mrmelon54/mc-launch-engine"
	launch_args "github.com/mrmelon54/mc-launch-engine/launch-args"
	"github.com/mrmelon54/mc-launch-engine/launcher"
	"github.com/mrmelon54/mc-launch-engine/manifest"
	resolve_versions "github.com/mrmelon54/mc-launch-engine/resolve-versions"
	"go.uber.org/zap"
	"net/http"
	"sync/atomic"
)

type routeCtx struct {
	launcher    *launcher.Launcher
	profilesYml *atomic.Pointer[mc_launch_engine.ProfilesConfig]
	launchConf  func() launch_args.Config
	log         *zap.Logger
}

// Router serves the launcher over http. metrics is mounted at /metrics when
// it is not nil.
func Router(l *launcher.Launcher, profilesYml *atomic.Pointer[mc_launch_engine.ProfilesConfig], launchConf func() launch_args.Config, metrics http.Handler, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	base := routeCtx{l, profilesYml, launchConf, log}

	r := httprouter.New()
	r.GET("/profiles", base.profilesGet)
	r.GET("/profiles/:name", base.profileGet)
	r.GET("/versions/:id", base.versionGet)
	r.GET("/versions/:id/args", base.versionArgsGet)
	r.POST("/versions/:id/acquire", base.versionAcquirePost)
	r.GET("/history/:id", base.historyGet)
	if metrics != nil {
		r.Handler(http.MethodGet, "/metrics", metrics)
	}
	return r
}

func (r routeCtx) profile(name string) (mc_launch_engine.Profile, bool) {
	p, ok := (*r.profilesYml.Load())[name]
	return p, ok
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(v)
}

// resolveError writes the status for an error from resolving a version.
func (r routeCtx) resolveError(rw http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, manifest.ErrManifestNotFound), errors.Is(err, resolve_versions.ErrUnknownVersion):
		http.Error(rw, "404 Not Found", http.StatusNotFound)
	default:
		r.log.Error("Failed to resolve version", zap.String("version", id), zap.Error(err))
		http.Error(rw, "Failed to resolve version", http.StatusInternalServerError)
	}
}
