// Package mailbox reads the single message the pipeline processes per
// run from an IMAP server. Only the raw RFC 822 bytes of the first
// message in the configured mailbox are consumed; all interpretation
// happens downstream.
package mailbox

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// Client wraps go-imap v2 for connecting to and reading from an IMAP
// server over implicit TLS.
type Client struct {
	host     string
	port     int
	user     string
	password string
	mailbox  string
}

// New creates a new IMAP client configuration.
func New(host string, port int, user, password, mailbox string) *Client {
	return &Client{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		mailbox:  mailbox,
	}
}

// connect dials the server and authenticates. The caller is
// responsible for calling Logout on the returned client.
func (c *Client) connect(_ context.Context) (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)

	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.user, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authenticating %s: %w", c.user, err)
	}

	return client, nil
}

// Fetch connects, selects the configured mailbox, and returns the raw
// RFC 822 bytes of message number 1, or nil when the mailbox is empty.
// When expunge is set, a successfully fetched message is marked seen
// and deleted and the mailbox is expunged before logout, so the next
// run sees the next message.
func (c *Client) Fetch(ctx context.Context, expunge bool) ([]byte, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	selData, err := client.Select(c.mailbox, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", c.mailbox, err)
	}
	if selData.NumMessages == 0 {
		return nil, nil
	}

	seqSet := imap.SeqSetNum(1)

	// Peek so that reading alone does not flag the message; the
	// expunge path below marks it explicitly.
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(seqSet, &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})

	msg := fetchCmd.Next()
	if msg == nil {
		_ = fetchCmd.Close()
		return nil, nil
	}

	buf, err := msg.Collect()
	if err != nil {
		_ = fetchCmd.Close()
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching message: %w", err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("message 1 has no body")
	}

	if expunge {
		if err := c.archive(client, seqSet); err != nil {
			return nil, err
		}
	}

	return raw, nil
}

// archive marks the message seen and deleted and expunges the mailbox.
func (c *Client) archive(client *imapclient.Client, seqSet imap.SeqSet) error {
	storeCmd := client.Store(seqSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen, imap.FlagDeleted},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("flagging message: %w", err)
	}

	if _, err := client.Expunge().Collect(); err != nil {
		return fmt.Errorf("expunging mailbox: %w", err)
	}

	return nil
}
