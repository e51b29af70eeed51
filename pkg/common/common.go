package common

import (
	"fmt"
	"strings"
)

// NodeKind identifies the closed set of node types managed in the
// knowledge graph. Every node carries a natural key derived from its
// content, which is what makes repeated loads merge instead of duplicate.
type NodeKind string

const (
	NodePresentation NodeKind = "Presentation"
	NodeSlide        NodeKind = "Slide"
	NodeTopic        NodeKind = "Topic"
	NodeKeyword      NodeKind = "Keyword"
	NodeEntity       NodeKind = "Entity"
)

// EdgeKind identifies the closed set of relationship types between nodes.
type EdgeKind string

const (
	// EdgeContains links a presentation to one of its slides.
	EdgeContains EdgeKind = "CONTAINS"
	// EdgeCovers links a presentation to a topic found anywhere in the
	// document. Weight is the number of mentions within that document.
	EdgeCovers EdgeKind = "COVERS"
	// EdgeMentions links a slide to a topic found on that slide.
	EdgeMentions EdgeKind = "MENTIONS"
	// EdgeContainsKeyword links a slide to a ranked keyword.
	EdgeContainsKeyword EdgeKind = "CONTAINS_KEYWORD"
	// EdgeReferences links a slide to a named entity.
	EdgeReferences EdgeKind = "REFERENCES"
	// EdgeRelatedTo links two topics that co-occur in the same slide or
	// document. Weight is the accumulated co-occurrence count. The edge is
	// stored once per unordered pair.
	EdgeRelatedTo EdgeKind = "RELATED_TO"
)

// EntityType tags a named entity with a coarse classification.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityProduct      EntityType = "product"
	EntityTechnology   EntityType = "technology"
	EntityUnknown      EntityType = "unknown"
)

// Presentation represents one slide deck. The natural key is the
// normalized absolute file path, so reloading the same file merges into
// the existing node instead of creating a second one.
type Presentation struct {
	Key         string            `json:"key"`
	Filename    string            `json:"filename"`
	Title       string            `json:"title"`
	TotalSlides int               `json:"total_slides"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Slide represents a single slide of a presentation. Slides belong to
// exactly one presentation and are keyed by presentation key plus the
// 1-based slide number.
type Slide struct {
	PresentationKey string `json:"presentation_key"`
	Number          int    `json:"number"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	RawText         string `json:"raw_text"`
}

// Key returns the slide's natural key.
func (s Slide) Key() string {
	return fmt.Sprintf("%s:%d", s.PresentationKey, s.Number)
}

// Topic is a matched vocabulary topic with its mention count within the
// scope it was extracted from (slide, document, or the whole graph).
type Topic struct {
	Name     string `json:"name"`
	Mentions int    `json:"mentions"`
}

// Keyword is a ranked term or phrase with its raw frequency.
type Keyword struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
}

// Entity is a named entity with its type tag and mention count.
// Entities are keyed by type and normalized name together, so "Go" the
// technology and "Go" the product would remain distinct nodes.
type Entity struct {
	Name     string     `json:"name"`
	Type     EntityType `json:"type"`
	Mentions int        `json:"mentions"`
}

// Key returns the entity's natural key.
func (e Entity) Key() string {
	return string(e.Type) + ":" + NormalizeName(e.Name)
}

// Edge is a merge request for one relationship. Edges are identified by
// kind plus both endpoint keys; applying the same edge again increments
// its weight instead of creating a parallel edge.
type Edge struct {
	Kind     EdgeKind `json:"kind"`
	FromKind NodeKind `json:"from_kind"`
	FromKey  string   `json:"from_key"`
	ToKind   NodeKind `json:"to_kind"`
	ToKey    string   `json:"to_key"`
	Weight   int      `json:"weight"`
}

// GraphDelta is the full set of node and edge merge requests produced by
// analyzing one file. A delta is applied against the store as a single
// logical unit of work.
type GraphDelta struct {
	Presentation Presentation `json:"presentation"`
	Slides       []Slide      `json:"slides"`
	Topics       []Topic      `json:"topics"`
	Keywords     []Keyword    `json:"keywords"`
	Entities     []Entity     `json:"entities"`
	Edges        []Edge       `json:"edges"`
}

// NormalizeName folds a topic, keyword, or entity name into its natural
// key form: trimmed, inner whitespace collapsed, lower case.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
