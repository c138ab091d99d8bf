package decoders

import "time"

const SourceTwitter = "twitter"

type TwitterUser struct {
	ID         int64  `json:"id"`
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
}

type Tweet struct {
	ID                int64       `json:"id"`
	IDStr             string      `json:"id_str"`
	Text              string      `json:"text"`
	CreatedAt         string      `json:"created_at"`
	RetweetCount      int         `json:"retweet_count"`
	FavoriteCount     int         `json:"favorite_count"`
	InReplyToStatusID *int64      `json:"in_reply_to_status_id"`
	User              TwitterUser `json:"user"`
	RetweetedStatus   *Tweet      `json:"retweeted_status,omitempty"`
	CreatedAtCleaned  time.Time   `json:"created_at_cleaned"`
}

// DecodeTweets decodes a statuses/user_timeline response. created_at uses
// the Ruby date layout, e.g. "Sun Mar 02 10:15:00 +0000 2014".
func DecodeTweets(data []byte) ([]Tweet, error) {
	tweets, err := DecodeJSON[[]Tweet](SourceTwitter, data)
	if err != nil {
		return nil, err
	}
	if tweets == nil {
		tweets = make([]Tweet, 0)
	}
	for i := range tweets {
		cleaned, err := parseTimestamp(SourceTwitter, time.RubyDate, i, "created_at", tweets[i].CreatedAt)
		if err != nil {
			return nil, err
		}
		tweets[i].CreatedAtCleaned = cleaned
	}
	return tweets, nil
}
