package routes

import (
	"github.com/julienschmidt/httprouter"
	mc_launch_engine "github.com/mrmelon54/mc-launch-engine"
	"net/http"
)

func (r routeCtx) profilesGet(rw http.ResponseWriter, req *http.Request, params httprouter.Params) {
	profiles := *r.profilesYml.Load()
	a := make(map[string]mc_launch_engine.ProfileDetails)
	for k, v := range profiles {
		a[k] = v.ProfileDetails
	}
	writeJSON(rw, a)
}

func (r routeCtx) profileGet(rw http.ResponseWriter, req *http.Request, params httprouter.Params) {
	p, ok := r.profile(params.ByName("name"))
	if !ok {
		http.Error(rw, "404 Not Found", http.StatusNotFound)
		return
	}
	writeJSON(rw, p.ProfileDetails)
}
