package feeds

import (
	"context"
	log "github.com/sirupsen/logrus"
	"labcomm/monitoring"
)

// Placeholders rendered in place of content whose source is unavailable.
const (
	TwitterUnavailable           = "Twitter API is not Available."
	FacebookUnavailable          = "Facebook API is not Available."
	LabRulesUnavailable          = "Lab Rules File is not Available."
	PublicationPolicyUnavailable = "Publication Policy File is not Available."
	DataSharingPolicyUnavailable = "Data Sharing Policy File is not Available."
	PostUnavailable              = "Post is not Available."
)

// Context is the template-ready mapping a page hands to the rendering layer.
type Context map[string]any

// Merge copies every key of other into c.
func (c Context) Merge(other Context) Context {
	for key, value := range other {
		c[key] = value
	}
	return c
}

// Page produces the context of one page. Implementations never fail: an
// unavailable source is rendered as a placeholder.
type Page interface {
	Context(ctx context.Context) Context
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Message is a request-level notice shown above the page content.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

func placeholder(source string, text string, err error) string {
	monitoring.Placeholders.WithLabelValues(source).Inc()
	log.WithField("source", source).Infof("Rendering placeholder: %v", err)
	return text
}
