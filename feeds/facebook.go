package feeds

import (
	"context"
	"labcomm/config"
	"labcomm/decoders"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// FacebookEdge is one sub-feed of the lab page.
type FacebookEdge struct {
	Key    string
	Path   string
	Limit  int
	Fields string
	Extra  url.Values
}

// FacebookNews renders the lab page's posts, shared links and uploaded
// photos as laboratory news. Each edge is fetched independently; a failing
// edge only degrades its own key.
type FacebookNews struct {
	fetcher     Fetcher
	graphBase   string
	pageID      string
	accessToken string
	edges       []FacebookEdge
}

func NewFacebookNews(cfg config.FacebookConfig, fetcher Fetcher) *FacebookNews {
	return &FacebookNews{
		fetcher:     fetcher,
		graphBase:   strings.TrimRight(cfg.GraphBase, "/"),
		pageID:      cfg.PageID,
		accessToken: cfg.AccessToken,
		// Milestones are not fetched; uploaded photos take their place.
		edges: []FacebookEdge{
			{
				Key:    "posts",
				Path:   "posts",
				Limit:  cfg.PostsLimit,
				Fields: "id,message,story,created_time,permalink_url,full_picture",
			},
			{
				Key:    "links",
				Path:   "links",
				Limit:  cfg.LinksLimit,
				Fields: "id,message,name,link,picture,created_time",
			},
			{
				Key:    "photos",
				Path:   "photos",
				Limit:  cfg.PhotosLimit,
				Fields: "id,name,link,picture,created_time",
				Extra:  url.Values{"type": []string{"uploaded"}},
			},
		},
	}
}

func (f *FacebookNews) Edges() []FacebookEdge {
	return f.edges
}

func (f *FacebookNews) URL(edge FacebookEdge) string {
	values := url.Values{}
	for key, value := range edge.Extra {
		values[key] = value
	}
	values.Set("access_token", f.accessToken)
	if edge.Fields != "" {
		values.Set("fields", edge.Fields)
	}
	if edge.Limit > 0 {
		values.Set("limit", strconv.Itoa(edge.Limit))
	}
	return f.graphBase + "/" + url.PathEscape(f.pageID) + "/" + edge.Path + "?" + values.Encode()
}

func (f *FacebookNews) Feed(ctx context.Context, edge FacebookEdge) (decoders.FacebookFeed, error) {
	body, err := f.fetcher.Fetch(ctx, f.URL(edge))
	if err != nil {
		return decoders.FacebookFeed{}, err
	}
	return decoders.DecodeFacebookFeed(body)
}

func (f *FacebookNews) Context(ctx context.Context) Context {
	results := make([]any, len(f.edges))

	var wg sync.WaitGroup
	for i, edge := range f.edges {
		wg.Add(1)
		go func(i int, edge FacebookEdge) {
			defer wg.Done()
			feed, err := f.Feed(ctx, edge)
			if err != nil {
				results[i] = placeholder(decoders.SourceFacebook, FacebookUnavailable, err)
				return
			}
			results[i] = feed
		}(i, edge)
	}
	wg.Wait()

	result := Context{}
	for i, edge := range f.edges {
		result[edge.Key] = results[i]
	}
	// Templates written against the general stream read it as statuses.
	result["statuses"] = result["posts"]
	return result
}
