package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/hubenschmidt/go-wikidex/core"
	"github.com/hubenschmidt/go-wikidex/vector"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "empty documents")
		return
	}

	docs := make([]core.Document, len(req.Documents))
	texts := make([]string, len(req.Documents))
	for i, doc := range req.Documents {
		docs[i] = core.NormalizeDocument(doc)
		texts[i] = docs[i].Text
	}

	vectors, err := s.embedder.Embed(r.Context(), texts)
	if err != nil {
		serverError(w, "upsert", err)
		return
	}
	for i := range docs {
		docs[i].Embedding = vectors[i]
	}

	ids, err := s.store.Upsert(r.Context(), docs)
	if err != nil {
		serverError(w, "upsert", err)
		return
	}

	writeJSON(w, UpsertResponse{IDs: ids})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Queries) == 0 {
		writeError(w, http.StatusBadRequest, "empty queries")
		return
	}

	queries := make([]core.Query, len(req.Queries))
	texts := make([]string, len(req.Queries))
	for i, q := range req.Queries {
		queries[i] = core.NormalizeQuery(q, s.defaultTopK, s.maxTopK)
		texts[i] = queries[i].Query
	}

	vectors, err := s.embedder.Embed(r.Context(), texts)
	if err != nil {
		serverError(w, "query", err)
		return
	}
	for i := range queries {
		queries[i].Embedding = vectors[i]
	}

	results, err := s.store.Query(r.Context(), queries)
	if err != nil {
		serverError(w, "query", err)
		return
	}

	// Dispatch one backfill task per query. The response does not wait
	// on it: a failed or dropped task only means the coverage gap stays
	// until a later query tries again.
	if s.backfiller != nil {
		for _, result := range results {
			names := make([]string, 0, len(result.Results))
			for i := range result.Results {
				if name := result.Results[i].Name(); name != "" {
					names = append(names, name)
				}
			}
			s.backfiller.Submit(result.Query, names)
		}
	}

	writeJSON(w, QueryResponse{Results: results})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sel := vector.DeleteSelector{IDs: req.IDs, Filter: req.Filter, All: req.DeleteAll}
	if err := sel.Validate(); err != nil {
		// The selector error states which contract was broken: nothing
		// set vs more than one mode set.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	success, err := s.store.Delete(r.Context(), sel)
	if err != nil {
		if errors.Is(err, core.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		serverError(w, "delete", err)
		return
	}

	writeJSON(w, DeleteResponse{Success: success})
}

func (s *Server) handleBackfillMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, s.metrics.Snapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// serverError logs the cause and returns a generic 500: backend detail
// never reaches the client.
func serverError(w http.ResponseWriter, op string, err error) {
	log.Printf("[server] %s: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal service error")
}
