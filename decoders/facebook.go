package decoders

import "time"

const (
	SourceFacebook = "facebook"

	// FacebookTimeLayout is the Graph API created_time format, e.g.
	// 2014-03-02T10:15:00+0000.
	FacebookTimeLayout = "2006-01-02T15:04:05-0700"
)

type FacebookItem struct {
	ID                 string    `json:"id"`
	Message            string    `json:"message,omitempty"`
	Story              string    `json:"story,omitempty"`
	Name               string    `json:"name,omitempty"`
	Link               string    `json:"link,omitempty"`
	Picture            string    `json:"picture,omitempty"`
	FullPicture        string    `json:"full_picture,omitempty"`
	PermalinkURL       string    `json:"permalink_url,omitempty"`
	CreatedTime        string    `json:"created_time,omitempty"`
	CreatedTimeCleaned time.Time `json:"created_time_cleaned"`
}

type FacebookPaging struct {
	Previous string `json:"previous,omitempty"`
	Next     string `json:"next,omitempty"`
}

type FacebookFeed struct {
	Data   []FacebookItem  `json:"data"`
	Paging *FacebookPaging `json:"paging,omitempty"`
}

type facebookResponse struct {
	FacebookFeed
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// DecodeFacebookFeed decodes a Graph API edge listing. Items without a
// created_time keep a zero CreatedTimeCleaned; a malformed one fails the batch.
func DecodeFacebookFeed(data []byte) (FacebookFeed, error) {
	response, err := DecodeJSON[facebookResponse](SourceFacebook, data)
	if err != nil {
		return FacebookFeed{}, err
	}
	if response.Error != nil {
		return FacebookFeed{}, decodeError(SourceFacebook, "graph error %d (%s): %s", response.Error.Code, response.Error.Type, response.Error.Message)
	}

	feed := response.FacebookFeed
	if feed.Data == nil {
		feed.Data = make([]FacebookItem, 0)
	}
	for i := range feed.Data {
		if feed.Data[i].CreatedTime == "" {
			continue
		}
		cleaned, err := parseTimestamp(SourceFacebook, FacebookTimeLayout, i, "created_time", feed.Data[i].CreatedTime)
		if err != nil {
			return FacebookFeed{}, err
		}
		feed.Data[i].CreatedTimeCleaned = cleaned
	}
	return feed, nil
}
