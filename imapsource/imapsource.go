// Package imapsource implements the mailbox client boundary against a
// generic IMAP server. The search query becomes an IMAP TEXT search;
// pagination slices the cached UID list using a numeric offset as the
// continuation token, so the paging contract matches the Gmail backend.
package imapsource

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message"

	"github.com/LucasBadico/mailbook/model"
)

// SourceTag is the front-matter source value for documents exported
// through this backend.
const SourceTag = "imap"

// Options configure the IMAP connection.
type Options struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	InsecureSkipVerify bool
	Folder             string
}

// Client is a connected, authenticated IMAP session on one folder.
type Client struct {
	opts   Options
	logger *slog.Logger
	cl     *imapclient.Client

	// uids caches the search result across pages; the continuation
	// token is an offset into this slice.
	uids  []imapv2.UID
	query string
}

// Dial connects, logs in and selects the folder read-only.
func Dial(opts Options, logger *slog.Logger) (*Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("imap host is empty")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("imap port must be positive")
	}
	if opts.Folder == "" {
		opts.Folder = "INBOX"
	}

	address := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	options := &imapclient.Options{}
	if opts.UseTLS {
		options.TLSConfig = &tls.Config{
			ServerName:         opts.Host,
			InsecureSkipVerify: opts.InsecureSkipVerify,
		}
	}

	var (
		cl  *imapclient.Client
		err error
	)
	if opts.UseTLS {
		cl, err = imapclient.DialTLS(address, options)
	} else {
		cl, err = imapclient.DialInsecure(address, options)
	}
	if err != nil {
		return nil, fmt.Errorf("dial imap %s: %w", address, err)
	}

	if err := cl.Login(opts.Username, opts.Password).Wait(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("imap login failed: %w", err)
	}

	if _, err := cl.Select(opts.Folder, &imapv2.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("select %s: %w", opts.Folder, err)
	}

	if logger != nil {
		logger.Debug("imap connection established", "address", address, "user", opts.Username, "folder", opts.Folder, "tls", opts.UseTLS)
	}

	return &Client{opts: opts, logger: logger, cl: cl}, nil
}

// Close logs out and closes the connection.
func (c *Client) Close() error {
	if c.cl == nil {
		return nil
	}
	if err := c.cl.Logout().Wait(); err != nil && c.logger != nil {
		c.logger.Warn("imap logout failed", "err", err)
	}
	return c.cl.Close()
}

// ListMessageIDs runs the search on the first page and serves later
// pages from the cached UID list.
func (c *Client) ListMessageIDs(_ context.Context, query, pageToken string, pageSize int64) ([]string, string, error) {
	if pageToken == "" || query != c.query {
		if err := c.search(query); err != nil {
			return nil, "", err
		}
	}

	start := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil {
			return nil, "", fmt.Errorf("bad page token %q: %w", pageToken, err)
		}
		start = n
	}
	if start > len(c.uids) {
		start = len(c.uids)
	}

	end := start + int(pageSize)
	if end > len(c.uids) {
		end = len(c.uids)
	}

	ids := make([]string, 0, end-start)
	for _, uid := range c.uids[start:end] {
		ids = append(ids, strconv.FormatUint(uint64(uid), 10))
	}

	next := ""
	if end < len(c.uids) {
		next = strconv.Itoa(end)
	}
	return ids, next, nil
}

func (c *Client) search(query string) error {
	criteria := &imapv2.SearchCriteria{}
	if query != "" {
		criteria.Text = []string{query}
	}

	data, err := c.cl.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return fmt.Errorf("imap search: %w", err)
	}

	c.uids = data.AllUIDs()
	c.query = query
	return nil
}

// GetMessage fetches one message's raw content plus INTERNALDATE and
// maps it onto the model types.
func (c *Client) GetMessage(_ context.Context, id string) (model.Message, error) {
	raw, internalDate, err := c.fetchRaw(id)
	if err != nil {
		return model.Message{}, err
	}

	msg := model.Message{ID: id, InternalDate: internalDate}

	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		// Undecodable structure still yields a message; the body
		// walk will simply find nothing.
		return msg, nil
	}

	msg.Headers = collectHeaders(entity)
	msg.Payload = buildPart(entity)
	return msg, nil
}

// GetRawMessage fetches one message's raw RFC 822 bytes.
func (c *Client) GetRawMessage(_ context.Context, id string) ([]byte, error) {
	raw, _, err := c.fetchRaw(id)
	return raw, err
}

func (c *Client) fetchRaw(id string) ([]byte, string, error) {
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, "", fmt.Errorf("bad message id %q: %w", id, err)
	}
	uidSet := imapv2.UIDSetNum(imapv2.UID(n))

	bodySection := &imapv2.FetchItemBodySection{Peek: true}
	fetchOpts := &imapv2.FetchOptions{
		UID:          true,
		InternalDate: true,
		BodySection:  []*imapv2.FetchItemBodySection{bodySection},
	}

	msgs, err := c.cl.Fetch(uidSet, fetchOpts).Collect()
	if err != nil {
		return nil, "", fmt.Errorf("fetch uid %s: %w", id, err)
	}
	if len(msgs) == 0 {
		return nil, "", fmt.Errorf("message uid %s not found", id)
	}
	buf := msgs[0]

	internalDate := ""
	if !buf.InternalDate.IsZero() {
		internalDate = strconv.FormatInt(buf.InternalDate.UnixMilli(), 10)
	}

	return buf.FindBodySection(bodySection), internalDate, nil
}

// collectHeaders returns the entity's header fields in wire order.
func collectHeaders(entity *message.Entity) []model.Header {
	var headers []model.Header
	fields := entity.Header.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		headers = append(headers, model.Header{Name: fields.Key(), Value: value})
	}
	// Fields iterates newest-first; reverse to restore wire order so
	// first-match-wins lookups see the top of the header block.
	for i, j := 0, len(headers)-1; i < j; i, j = i+1, j-1 {
		headers[i], headers[j] = headers[j], headers[i]
	}
	return headers
}

// buildPart converts a go-message entity tree into the MessagePart
// shape shared with the Gmail backend: leaves carry base64url-encoded
// payloads, containers carry ordered children.
func buildPart(entity *message.Entity) *model.MessagePart {
	mediaType, _, err := entity.Header.ContentType()
	if err != nil {
		mediaType = "text/plain"
	}
	part := &model.MessagePart{MimeType: mediaType}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			child, err := mr.NextPart()
			if err != nil {
				break
			}
			part.Parts = append(part.Parts, buildPart(child))
		}
		return part
	}

	body, err := io.ReadAll(entity.Body)
	if err == nil && len(body) > 0 {
		part.Data = base64.URLEncoding.EncodeToString(body)
	}
	return part
}
