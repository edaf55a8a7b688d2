// Package datacite implements the DataCite REST API adapter.
//
// DataCite registers DOIs for datasets, software and other research
// outputs. Responses follow JSON:API: searches return a data array, DOI
// lookups a single data object.
//
// API documentation: https://support.datacite.org/docs/api
package datacite

import (
	"encoding/json"
)

// ListResponse is the envelope returned by /dois.
type ListResponse struct {
	Data []Resource `json:"data"`
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
}

// SingleResponse is the envelope returned by /dois/{doi}.
type SingleResponse struct {
	Data Resource `json:"data"`
}

// Resource is a JSON:API resource object.
type Resource struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Attributes Attributes `json:"attributes"`
}

// Attributes holds the DataCite metadata of a DOI.
type Attributes struct {
	DOI             string        `json:"doi"`
	Titles          []Title       `json:"titles"`
	Creators        []Creator     `json:"creators"`
	Publisher       Publisher     `json:"publisher"`
	PublicationYear int           `json:"publicationYear"`
	Types           Types         `json:"types"`
	URL             string        `json:"url"`
	Descriptions    []Description `json:"descriptions"`
	Container       Container     `json:"container"`
}

// Title is a title entry. Entries with a TitleType are subtitles or
// translations; the untyped one is the main title.
type Title struct {
	Title     string `json:"title"`
	TitleType string `json:"titleType,omitempty"`
}

// Creator is a person or organisation credited with the resource.
type Creator struct {
	Name       string `json:"name"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	NameType   string `json:"nameType"`
}

// Publisher is rendered as a plain string by default and as an object
// when the publisher=true parameter is sent. Both forms are accepted.
type Publisher struct {
	Name string `json:"name"`
}

// UnmarshalJSON accepts either "Dryad" or {"name": "Dryad"}.
func (p *Publisher) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Name = s
		return nil
	}
	type plain Publisher
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*p = Publisher(obj)
	return nil
}

// Types carries the resource type vocabularies.
type Types struct {
	ResourceTypeGeneral string `json:"resourceTypeGeneral"`
	ResourceType        string `json:"resourceType"`
	Citeproc            string `json:"citeproc"`
}

// Description is an abstract or other description.
type Description struct {
	Description     string `json:"description"`
	DescriptionType string `json:"descriptionType"`
}

// Container describes the enclosing journal or series.
type Container struct {
	Type           string `json:"type"`
	Title          string `json:"title"`
	Volume         string `json:"volume"`
	Issue          string `json:"issue"`
	FirstPage      string `json:"firstPage"`
	LastPage       string `json:"lastPage"`
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifierType"`
}
