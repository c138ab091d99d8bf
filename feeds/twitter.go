package feeds

import (
	"context"
	"github.com/dghubble/oauth1"
	"labcomm/config"
	"labcomm/decoders"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// TwitterTimeline renders the most recent posts of the lab account, replies
// excluded and retweets included.
type TwitterTimeline struct {
	fetcher    Fetcher
	apiBase    string
	screenName string
	count      int
}

// NewTwitterClient returns an HTTP client that signs every request with the
// configured OAuth1 consumer and access credentials.
func NewTwitterClient(cfg config.TwitterConfig) *http.Client {
	oauthConfig := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
	return oauthConfig.Client(oauth1.NoContext, token)
}

// NewTwitterTimeline expects a fetcher whose client signs requests, see
// NewTwitterClient.
func NewTwitterTimeline(cfg config.TwitterConfig, fetcher Fetcher) *TwitterTimeline {
	count := cfg.Count
	if count < 1 {
		count = 50
	}
	return &TwitterTimeline{
		fetcher:    fetcher,
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		screenName: cfg.ScreenName,
		count:      count,
	}
}

func (t *TwitterTimeline) URL() string {
	values := url.Values{}
	if t.screenName != "" {
		values.Set("screen_name", t.screenName)
	}
	values.Set("count", strconv.Itoa(t.count))
	values.Set("exclude_replies", "true")
	values.Set("include_rts", "true")
	return t.apiBase + "/statuses/user_timeline.json?" + values.Encode()
}

func (t *TwitterTimeline) Timeline(ctx context.Context) ([]decoders.Tweet, error) {
	body, err := t.fetcher.Fetch(ctx, t.URL())
	if err != nil {
		return nil, err
	}
	return decoders.DecodeTweets(body)
}

func (t *TwitterTimeline) Context(ctx context.Context) Context {
	var timeline any
	tweets, err := t.Timeline(ctx)
	if err != nil {
		timeline = placeholder(decoders.SourceTwitter, TwitterUnavailable, err)
	} else {
		timeline = tweets
	}
	return Context{
		"timeline":    timeline,
		"screen_name": t.screenName,
	}
}
