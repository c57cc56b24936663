package domain

import (
	"sort"
	"strings"
)

type DocType string

const (
	DocTypeDecision   DocType = "decision"
	DocTypeRegulation DocType = "regulation"
)

// Source tags name the raw document folders and artifact groups.
const (
	SourceDecisions   = "decisions"
	SourceRegulations = "regulations"
)

// SourceTag returns the artifact group a document of this type belongs to.
func (t DocType) SourceTag() string {
	if t == DocTypeRegulation {
		return SourceRegulations
	}
	return SourceDecisions
}

// DocumentMetadata is derived from document or query text. Empty string
// fields are absent and never serialized.
type DocumentMetadata struct {
	Year            string  `json:"year,omitempty"`
	DocType         DocType `json:"doc_type"`
	Location        string  `json:"location,omitempty"`
	CarNum          string  `json:"car_num,omitempty"`
	AllInvolvedCars string  `json:"all_involved_cars,omitempty"`
}

// Payload returns the present fields as a flat string map, the shape stored
// next to each vector.
func (m DocumentMetadata) Payload() map[string]string {
	out := map[string]string{"doc_type": string(m.DocType)}
	if m.Year != "" {
		out["year"] = m.Year
	}
	if m.Location != "" {
		out["location"] = m.Location
	}
	if m.CarNum != "" {
		out["car_num"] = m.CarNum
	}
	if m.AllInvolvedCars != "" {
		out["all_involved_cars"] = m.AllInvolvedCars
	}
	return out
}

// CarListSeparator joins car numbers in AllInvolvedCars.
const CarListSeparator = ", "

// Cars splits AllInvolvedCars back into car numbers.
func (m DocumentMetadata) Cars() []string {
	if m.AllInvolvedCars == "" {
		return []string{}
	}
	return strings.Split(m.AllInvolvedCars, CarListSeparator)
}

// MetadataFilter is a conjunction of exact-match conditions. A nil or empty
// filter matches everything.
type MetadataFilter map[string]string

// Keys returns the filter keys in stable order.
func (f MetadataFilter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ChunkRecord is one chunk of a source document. Embedding is empty until
// the embed stage has run.
type ChunkRecord struct {
	ID   string `json:"id"`
	File string `json:"file"`
	Text string `json:"chunk"`
	DocumentMetadata
	Embedding []float32 `json:"embedding,omitempty"`
}

type IngestOutcome string

const (
	OutcomeAlreadyProcessed IngestOutcome = "already_processed"
	OutcomeChunked          IngestOutcome = "chunked"
	OutcomeSkipped          IngestOutcome = "skipped"
	OutcomeCorrupted        IngestOutcome = "corrupted"
	OutcomeEmbedded         IngestOutcome = "embedded"
	OutcomeStored           IngestOutcome = "stored"
	OutcomeFailed           IngestOutcome = "failed"
)

// IngestedDocument describes a document fetched by URL and pushed through
// the single-document pipeline.
type IngestedDocument struct {
	URL       string           `json:"url"`
	Filename  string           `json:"filename"`
	LocalPath string           `json:"local_path"`
	Metadata  DocumentMetadata `json:"metadata"`
	Outcome   IngestOutcome    `json:"outcome"`
}
