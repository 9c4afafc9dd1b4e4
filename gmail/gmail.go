// Package gmail implements the mailbox client boundary on top of the
// Gmail REST API.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/LucasBadico/mailbook/model"
)

const userID = "me"

// SourceTag is the front-matter source value for documents exported
// through this backend.
const SourceTag = "gmail"

// Options configure the Gmail client.
type Options struct {
	// CredentialsPath points at the OAuth desktop client secret JSON.
	CredentialsPath string
	// TokenPath is where the authorized user token is cached.
	TokenPath string
}

// Client talks to the Gmail API for a single authorized user.
type Client struct {
	svc *gmailapi.Service
}

// NewClient authorizes against the Gmail API and returns a ready
// client. A missing credentials file fails here, before any remote
// call.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	ts, err := tokenSource(ctx, opts.CredentialsPath, opts.TokenPath)
	if err != nil {
		return nil, err
	}

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// ListMessageIDs returns one page of message identifiers matching the
// Gmail search query.
func (c *Client) ListMessageIDs(ctx context.Context, query, pageToken string, pageSize int64) ([]string, string, error) {
	call := c.svc.Users.Messages.List(userID).Q(query).MaxResults(pageSize).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("list messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, resp.NextPageToken, nil
}

// GetMessage fetches one message in full format and maps it onto the
// model types.
func (c *Client) GetMessage(ctx context.Context, id string) (model.Message, error) {
	msg, err := c.svc.Users.Messages.Get(userID, id).Format("full").Context(ctx).Do()
	if err != nil {
		return model.Message{}, fmt.Errorf("get message %s: %w", id, err)
	}
	return toModel(msg), nil
}

// GetRawMessage fetches one message's raw RFC 822 bytes.
func (c *Client) GetRawMessage(ctx context.Context, id string) ([]byte, error) {
	msg, err := c.svc.Users.Messages.Get(userID, id).Format("raw").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get raw message %s: %w", id, err)
	}

	data := msg.Raw
	if rem := len(data) % 4; rem != 0 {
		data += strings.Repeat("=", 4-rem)
	}
	raw, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode raw message %s: %w", id, err)
	}
	return raw, nil
}

func toModel(msg *gmailapi.Message) model.Message {
	m := model.Message{
		ID:           msg.Id,
		InternalDate: strconv.FormatInt(msg.InternalDate, 10),
		Payload:      toPart(msg.Payload),
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			m.Headers = append(m.Headers, model.Header{Name: h.Name, Value: h.Value})
		}
	}
	return m
}

func toPart(p *gmailapi.MessagePart) *model.MessagePart {
	if p == nil {
		return nil
	}
	part := &model.MessagePart{MimeType: p.MimeType}
	if p.Body != nil {
		part.Data = p.Body.Data
	}
	for _, child := range p.Parts {
		part.Parts = append(part.Parts, toPart(child))
	}
	return part
}
