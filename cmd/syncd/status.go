package main

import (
	"encoding/json"
	"net/http"

	"github.com/floatdeck/datasync/internal/classify"
	"github.com/floatdeck/datasync/internal/journal"
	"github.com/floatdeck/datasync/internal/link"
	"github.com/floatdeck/datasync/internal/reconcile"
	"github.com/floatdeck/datasync/internal/snapshot"
	"github.com/floatdeck/datasync/internal/version"
)

// createStatusHandler exposes link status and store snapshots to the
// presentation layer. Reads only; all mutation funnels through the
// classifier.
func createStatusHandler(
	sup *link.Supervisor,
	cl *classify.Classifier,
	stores reconcile.Stores,
	loader *snapshot.Loader,
	jw *journal.Writer,
) http.Handler {
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		st := sup.Status()
		if st.State == link.StateFailed {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		writeJSON(w, map[string]any{
			"status": "ok",
			"link":   st.State,
		})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		st := sup.Status()
		lastErr := ""
		if st.LastErr != nil {
			lastErr = st.LastErr.Error()
		}

		resp := map[string]any{
			"version": version.String(),
			"link": map[string]any{
				"state":    st.State,
				"attempt":  st.Attempt,
				"last_err": lastErr,
			},
			"classifier":   cl.Stats(),
			"trigger_mode": loader.TriggerMode(),
			"stores": map[string]any{
				"orders":         stores.Orders.Len(),
				"float_groups":   stores.Floats.Len(),
				"toplist_groups": stores.Toplists.Len(),
				"buy_feed":       stores.Signals.Len(),
			},
		}
		if jw != nil {
			resp["journal"] = jw.Stats()
		}
		writeJSON(w, resp)
	})

	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, stores.Orders.Records())
	})

	mux.HandleFunc("/float-lists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, stores.Floats.Groups())
	})

	mux.HandleFunc("/toplists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, stores.Toplists.Groups())
	})

	mux.HandleFunc("/buy-feed", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, stores.Signals.Feed())
	})

	return mux
}
