package server

import "github.com/hubenschmidt/go-wikidex/core"

type UpsertRequest struct {
	Documents []core.Document `json:"documents"`
}

type UpsertResponse struct {
	IDs []string `json:"ids"`
}

type QueryRequest struct {
	Queries []core.Query `json:"queries"`
}

type QueryResponse struct {
	Results []core.QueryResult `json:"results"`
}

type DeleteRequest struct {
	IDs       []string             `json:"ids,omitempty"`
	Filter    *core.MetadataFilter `json:"filter,omitempty"`
	DeleteAll bool                 `json:"delete_all,omitempty"`
}

type DeleteResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
