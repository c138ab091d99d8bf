package feeds

import (
	"context"
	"fmt"
	"labcomm/config"
	"labcomm/decoders"
	"net/url"
	"strconv"
)

// WikipediaEdits renders the recent non-minor article edits of the lab's
// Wikipedia account.
type WikipediaEdits struct {
	fetcher  Fetcher
	apiURL   string
	username string
	count    int
}

func NewWikipediaEdits(cfg config.WikipediaConfig, fetcher Fetcher) *WikipediaEdits {
	count := cfg.Count
	if count < 1 {
		count = 50
	}
	return &WikipediaEdits{
		fetcher:  fetcher,
		apiURL:   cfg.APIURL,
		username: cfg.Username,
		count:    count,
	}
}

func (w *WikipediaEdits) URL() string {
	values := url.Values{
		"action":      {"query"},
		"list":        {"usercontribs"},
		"format":      {"json"},
		"ucuser":      {w.username},
		"uclimit":     {strconv.Itoa(w.count)},
		"ucnamespace": {"0"},
		"ucprop":      {"ids|title|timestamp|comment|size"},
		"ucshow":      {"!minor"},
	}
	return w.apiURL + "?" + values.Encode()
}

func (w *WikipediaEdits) Edits(ctx context.Context) ([]decoders.WikipediaEdit, error) {
	body, err := w.fetcher.Fetch(ctx, w.URL())
	if err != nil {
		return nil, err
	}
	return decoders.DecodeWikipediaContributions(body)
}

// Context renders the edits under pages. When Wikipedia cannot be reached or
// answers with something undecodable the page still renders, carrying an
// error message that names the configured username instead of pages.
func (w *WikipediaEdits) Context(ctx context.Context) Context {
	result := Context{"username": w.username}

	edits, err := w.Edits(ctx)
	if err != nil {
		text := placeholder(
			decoders.SourceWikipedia,
			fmt.Sprintf("No Response from Wikipedia.  Are you sure that %s is a valid username?", w.username),
			err,
		)
		result["messages"] = []Message{{Level: "error", Text: text}}
		return result
	}

	result["pages"] = edits
	return result
}
