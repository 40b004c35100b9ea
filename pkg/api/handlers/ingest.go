package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"ingestd/pkg/ingest"
	"ingestd/pkg/logger"
	"ingestd/pkg/models"
	"ingestd/pkg/validation"
)

// RegisterIngest registers ingestion admission and status routes on the
// provided router.
func RegisterIngest(r *mux.Router, svc *ingest.Service) {
	h := &ingestHandlers{svc: svc}
	r.HandleFunc("/ingest", h.createIngestion).Methods(http.MethodPost)
	r.HandleFunc("/status/{id}", h.getStatus).Methods(http.MethodGet)
}

type ingestHandlers struct {
	svc *ingest.Service
}

type createRequest struct {
	IDs      []int64         `json:"ids"`
	Priority models.Priority `json:"priority"`
}

type createResponse struct {
	IngestionID string `json:"ingestion_id"`
}

// createIngestion handles POST /ingest. Validation runs here, before the
// core is invoked: a malformed request is rejected with 400 and no state is
// created.
func (h *ingestHandlers) createIngestion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if err := validation.ValidateCreateRequest(req.IDs, req.Priority); err != nil {
		logger.Warn("ingestion_rejected", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := h.svc.CreateIngestion(req.IDs, req.Priority)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createResponse{IngestionID: id})
}

// getStatus handles GET /status/{id}. An unknown id maps to 404; the lookup
// itself never mutates state.
func (h *ingestHandlers) getStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id := mux.Vars(r)["id"]
	resp, err := h.svc.GetStatus(id)
	if err != nil {
		if errors.Is(err, validation.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ingestion not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
