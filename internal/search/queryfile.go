// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/torrify/pkg/types"
)

// QueryFile is the on-disk form of a search and its answer. A saved search
// can be rendered again later without touching the network.
type QueryFile struct {
	Params  types.SearchParams `yaml:"params"`
	Results []types.Result     `yaml:"results"`
	Sources []SourceSummary    `yaml:"sources"`
	Summary QuerySummary       `yaml:"summary"`
}

// SourceSummary is the per-adapter outcome stored in a query file.
type SourceSummary struct {
	Source    string          `yaml:"source"`
	Success   bool            `yaml:"success"`
	Count     int             `yaml:"count"`
	Error     string          `yaml:"error,omitempty"`
	ErrorKind types.ErrorKind `yaml:"error_kind,omitempty"`
	ElapsedMS int64           `yaml:"elapsed_ms"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Query             string    `yaml:"query"`
	Total             int       `yaml:"total"`
	DuplicatesRemoved int       `yaml:"duplicates_removed"`
	Cached            bool      `yaml:"cached"`
	ExecutionTimeMS   int64     `yaml:"execution_time_ms"`
	Timestamp         time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves the parameters and response to a YAML file.
func WriteQueryFile(path string, p types.SearchParams, resp types.SearchResponse, now time.Time) error {
	qf := QueryFile{
		Params:  p,
		Results: resp.Results,
		Summary: QuerySummary{
			Query:             resp.Query,
			Total:             resp.TotalCount,
			DuplicatesRemoved: resp.DuplicatesRemoved,
			Cached:            resp.Cached,
			ExecutionTimeMS:   resp.ExecutionTimeMS,
			Timestamp:         now.UTC(),
		},
	}
	for _, st := range resp.Sources {
		qf.Sources = append(qf.Sources, SourceSummary{
			Source:    st.Source,
			Success:   st.Success,
			Count:     st.Count,
			Error:     st.Error,
			ErrorKind: st.ErrorKind,
			ElapsedMS: st.ElapsedMS,
		})
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// Response rebuilds the response the file was saved from.
func (qf *QueryFile) Response() types.SearchResponse {
	resp := types.SearchResponse{
		Results:           qf.Results,
		TotalCount:        qf.Summary.Total,
		Query:             qf.Summary.Query,
		Cached:            qf.Summary.Cached,
		DuplicatesRemoved: qf.Summary.DuplicatesRemoved,
		ExecutionTimeMS:   qf.Summary.ExecutionTimeMS,
	}
	for _, s := range qf.Sources {
		resp.Sources = append(resp.Sources, types.AdapterResult{
			Source:    s.Source,
			Success:   s.Success,
			Count:     s.Count,
			Error:     s.Error,
			ErrorKind: s.ErrorKind,
			ElapsedMS: s.ElapsedMS,
		})
	}
	return resp.Clone()
}
