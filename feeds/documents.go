package feeds

import (
	"context"
	"labcomm/config"
	"labcomm/decoders"
)

const SourceDocuments = "documents"

// Document renders a remote markdown file verbatim. The source URL is always
// part of the context so the page can link to it, even when the fetch failed.
type Document struct {
	fetcher     Fetcher
	key         string
	url         string
	placeholder string
}

func NewDocument(key string, sourceURL string, unavailable string, fetcher Fetcher) *Document {
	return &Document{
		fetcher:     fetcher,
		key:         key,
		url:         sourceURL,
		placeholder: unavailable,
	}
}

func NewLabRules(cfg config.DocumentsConfig, fetcher Fetcher) *Document {
	return NewDocument("lab_rules", cfg.LabRulesURL, LabRulesUnavailable, fetcher)
}

func NewPublicationPolicy(cfg config.DocumentsConfig, fetcher Fetcher) *Document {
	return NewDocument("publication_policy", cfg.PublicationPolicyURL, PublicationPolicyUnavailable, fetcher)
}

func NewDataSharingPolicy(cfg config.DocumentsConfig, fetcher Fetcher) *Document {
	return NewDocument("data_sharing_policy", cfg.DataSharingPolicyURL, DataSharingPolicyUnavailable, fetcher)
}

func (d *Document) Context(ctx context.Context) Context {
	return Context{
		d.key:             fetchText(ctx, d.fetcher, d.url, d.placeholder),
		d.key + "_source": d.url,
	}
}

// PostBody fetches the external markdown body of a post.
type PostBody struct {
	fetcher Fetcher
}

func NewPostBody(fetcher Fetcher) *PostBody {
	return &PostBody{fetcher: fetcher}
}

// Body returns the text at link, or the post placeholder.
func (p *PostBody) Body(ctx context.Context, link string) string {
	return fetchText(ctx, p.fetcher, link, PostUnavailable)
}

func fetchText(ctx context.Context, fetcher Fetcher, sourceURL string, unavailable string) string {
	body, err := fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return placeholder(SourceDocuments, unavailable, err)
	}
	return decoders.DecodeText(body)
}
