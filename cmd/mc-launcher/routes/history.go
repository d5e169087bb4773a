package routes

import (
	"github.com/julienschmidt/httprouter"
	"github.com/mrmelon54/mc-launch-engine/history"
	"go.uber.org/zap"
	"net/http"
	"strconv"
)

func (r routeCtx) historyGet(rw http.ResponseWriter, req *http.Request, params httprouter.Params) {
	if r.launcher.History == nil {
		http.Error(rw, "History unavailable", http.StatusServiceUnavailable)
		return
	}
	id := params.ByName("id")
	limit := 20
	if s := req.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(rw, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	acquisitions, err := r.launcher.History.ListAcquisitions(req.Context(), id, limit)
	if err != nil {
		r.log.Error("Database Error", zap.Error(err))
		http.Error(rw, "Database Error", http.StatusInternalServerError)
		return
	}
	launches, err := r.launcher.History.ListLaunches(req.Context(), id, limit)
	if err != nil {
		r.log.Error("Database Error", zap.Error(err))
		http.Error(rw, "Database Error", http.StatusInternalServerError)
		return
	}
	if acquisitions == nil {
		acquisitions = []history.Acquisition{}
	}
	if launches == nil {
		launches = []history.Launch{}
	}
	writeJSON(rw, struct {
		Acquisitions []history.Acquisition `json:"acquisitions"`
		Launches     []history.Launch      `json:"launches"`
	}{acquisitions, launches})
}
