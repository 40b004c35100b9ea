package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"ingestd/pkg/api/handlers"
	"ingestd/pkg/ingest"
)

// Handler builds the JSON API router:
//   - POST /ingest            admit an id list with a priority
//   - GET  /status/{id}       current ingestion status
//   - GET  /healthz           liveness
func Handler(svc *ingest.Service) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	handlers.RegisterIngest(r, svc)
	return r
}
