// Package email turns flagged mailbox messages into todos. A message
// flagged on any mail client shows up as a todo on the next poll, then
// is marked seen so it is captured exactly once.
package email

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
)

// Message is a captured mail message, reduced to what a todo needs.
type Message struct {
	UID     uint32
	Subject string
	From    string
	Date    time.Time
	Body    string
}

// Client wraps go-imap v2 for the capture mailbox. Each operation
// dials, authenticates, and logs out; polls are minutes apart so a
// held-open connection buys nothing.
type Client struct {
	addr     string
	username string
	password string
	mailbox  string
}

// NewClient creates an IMAP client for the given server. addr may omit
// the port, in which case the implicit-TLS port 993 is used.
func NewClient(addr, username, password, mailbox string) *Client {
	if !strings.Contains(addr, ":") {
		addr += ":993"
	}
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return &Client{
		addr:     addr,
		username: username,
		password: password,
		mailbox:  mailbox,
	}
}

func (c *Client) connect(_ context.Context) (*imapclient.Client, error) {
	client, err := imapclient.DialTLS(c.addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", c.addr, err)
	}
	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authenticating %s: %w", c.username, err)
	}
	if _, err := client.Select(c.mailbox, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", c.mailbox, err)
	}
	return client, nil
}

// FetchFlagged returns messages that are flagged and not yet seen,
// with their plain-text bodies, oldest first.
func (c *Client) FetchFlagged(ctx context.Context, limit int) ([]Message, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	criteria := &imap.SearchCriteria{
		Flag:    []imap.Flag{imap.FlagFlagged},
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching flagged messages: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[:limit]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var msgs []Message
	for {
		raw := fetchCmd.Next()
		if raw == nil {
			break
		}
		buf, err := raw.Collect()
		if err != nil {
			continue
		}
		msg := Message{UID: uint32(buf.UID)}
		if buf.Envelope != nil {
			msg.Subject = buf.Envelope.Subject
			msg.Date = buf.Envelope.Date
			if len(buf.Envelope.From) > 0 {
				from := buf.Envelope.From[0]
				if from.Name != "" {
					msg.From = from.Name
				} else {
					msg.From = from.Addr()
				}
			}
		}
		if body := buf.FindBodySection(bodySection); body != nil {
			msg.Body = textBody(body)
		}
		msgs = append(msgs, msg)
	}

	if err := fetchCmd.Close(); err != nil {
		return msgs, fmt.Errorf("fetching flagged messages: %w", err)
	}
	return msgs, nil
}

// MarkSeen adds the \Seen flag so the message is excluded from future
// capture searches.
func (c *Client) MarkSeen(ctx context.Context, uid uint32) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	storeCmd := client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("marking UID %d seen: %w", uid, err)
	}
	return nil
}

// textBody extracts the text/plain part of a raw RFC 2822 message. A
// message that cannot be MIME-parsed is returned as-is.
func textBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(string(raw))
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if !strings.HasPrefix(contentType, "text/plain") {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		return strings.TrimSpace(string(body))
	}
	return ""
}
