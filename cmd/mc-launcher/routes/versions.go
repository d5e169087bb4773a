package routes

import (
	"errors"
	"github.com/julienschmidt/httprouter"
	asset_engine "github.com/mrmelon54/mc-launch-engine/asset-engine"
	launch_args "github.com/mrmelon54/mc-launch-engine/launch-args"
	"go.uber.org/zap"
	"net/http"
	"strings"
	"time"
)

const redacted = "[redacted]"

func (r routeCtx) versionGet(rw http.ResponseWriter, req *http.Request, params httprouter.Params) {
	id := params.ByName("id")
	m, err := r.launcher.Resolve(req.Context(), id)
	if err != nil {
		r.resolveError(rw, id, err)
		return
	}
	writeJSON(rw, m)
}

// versionArgsGet plans a launch from what is on disk. The profile query
// parameter selects the account and settings, otherwise an offline player
// is used with the launcher defaults.
func (r routeCtx) versionArgsGet(rw http.ResponseWriter, req *http.Request, params httprouter.Params) {
	id := params.ByName("id")
	account := launch_args.OfflineAccount("Player")
	cfg := r.launchConf()
	if name := req.URL.Query().Get("profile"); name != "" {
		p, ok := r.profile(name)
		if !ok {
			http.Error(rw, "404 Not Found", http.StatusNotFound)
			return
		}
		account = p.LaunchAccount()
		cfg = p.LaunchConfig(cfg)
	}

	args, _, err := r.launcher.Plan(req.Context(), id, account, cfg)
	switch {
	case errors.Is(err, launch_args.ErrMissingClientJar):
		http.Error(rw, "Version is not acquired", http.StatusConflict)
		return
	case err != nil:
		r.resolveError(rw, id, err)
		return
	}
	args = redact(args, account.AccessToken)
	writeJSON(rw, struct {
		*launch_args.LaunchArgs
		CommandLine string `json:"command_line"`
	}{args, args.CommandLine()})
}

// redact hides the access token wherever it appears in the rendered
// arguments, including inside composite values like the legacy session.
func redact(args *launch_args.LaunchArgs, token string) *launch_args.LaunchArgs {
	if token == "" || token == "0" {
		return args
	}
	out := *args
	out.JVM = redactAll(args.JVM, token)
	out.Game = redactAll(args.Game, token)
	return &out
}

func redactAll(in []string, token string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ReplaceAll(s, token, redacted)
	}
	return out
}

func (r routeCtx) versionAcquirePost(rw http.ResponseWriter, req *http.Request, params httprouter.Params) {
	id := params.ByName("id")
	m, err := r.launcher.Resolve(req.Context(), id)
	if err != nil {
		r.resolveError(rw, id, err)
		return
	}
	// acquiring can outlast the server write timeout
	_ = http.NewResponseController(rw).SetWriteDeadline(time.Time{})
	prep, err := r.launcher.Acquire(req.Context(), m, nil)
	switch {
	case errors.Is(err, asset_engine.ErrAssetIndexFetchFailed):
		http.Error(rw, "Failed to fetch asset index", http.StatusBadGateway)
		return
	case err != nil:
		r.log.Error("Failed to acquire version", zap.String("version", id), zap.Error(err))
		http.Error(rw, "Failed to acquire version", http.StatusInternalServerError)
		return
	}
	writeJSON(rw, prep.Result)
}
