package decoders

import (
	"errors"
	"time"
)

const (
	SourceWikipedia = "wikipedia"

	// WikipediaTimestampLayout is the MediaWiki API timestamp format.
	WikipediaTimestampLayout = "2006-01-02T15:04:05Z"
)

type WikipediaEdit struct {
	UserID           int64     `json:"userid"`
	User             string    `json:"user"`
	PageID           int64     `json:"pageid"`
	RevID            int64     `json:"revid"`
	ParentID         int64     `json:"parentid"`
	Namespace        int       `json:"ns"`
	Title            string    `json:"title"`
	Timestamp        string    `json:"timestamp"`
	Comment          string    `json:"comment,omitempty"`
	Size             int       `json:"size,omitempty"`
	TimestampCleaned time.Time `json:"timestamp_cleaned"`
}

type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type wikipediaResponse struct {
	Error *APIError `json:"error"`
	Query *struct {
		UserContribs []WikipediaEdit `json:"usercontribs"`
	} `json:"query"`
}

// DecodeWikipediaContributions decodes a list=usercontribs response and sets
// TimestampCleaned on every edit. A malformed timestamp fails the whole batch.
func DecodeWikipediaContributions(data []byte) ([]WikipediaEdit, error) {
	response, err := DecodeJSON[wikipediaResponse](SourceWikipedia, data)
	if err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, decodeError(SourceWikipedia, "api error %s: %s", response.Error.Code, response.Error.Info)
	}
	if response.Query == nil {
		return nil, &DecodeError{Source: SourceWikipedia, Err: errors.New("missing query object")}
	}

	edits := response.Query.UserContribs
	if edits == nil {
		edits = make([]WikipediaEdit, 0)
	}
	for i := range edits {
		cleaned, err := parseTimestamp(SourceWikipedia, WikipediaTimestampLayout, i, "timestamp", edits[i].Timestamp)
		if err != nil {
			return nil, err
		}
		edits[i].TimestampCleaned = cleaned
	}
	return edits, nil
}
