// Package slackapi adapts the Slack Web API to the messaging interfaces.
package slackapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/hay-kot/pulse/internal/core/messaging"
)

const (
	// DefaultPageSize is the conversations.history page limit.
	DefaultPageSize = 200
	// DefaultRateLimitRetries is how many times a rate limited page is retried.
	DefaultRateLimitRetries = 3
	// DefaultRequestTimeout bounds a single API call.
	DefaultRequestTimeout = 30 * time.Second

	channelPageSize = 1000
)

// Options configures a Client.
type Options struct {
	Token            string
	APIURL           string
	PageSize         int
	RateLimitRetries int
	Logger           zerolog.Logger
}

// Identity is the result of auth.test.
type Identity struct {
	URL    string
	Team   string
	TeamID string
	User   string
	UserID string
}

// Client implements messaging.HistoryFetcher and messaging.ChannelLister.
type Client struct {
	api      *slack.Client
	pageSize int
	retries  int
	logger   zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a Client. An empty APIURL uses the public Slack endpoint.
func New(opts Options) *Client {
	slackOpts := []slack.Option{
		slack.OptionHTTPClient(&http.Client{Timeout: DefaultRequestTimeout}),
	}
	if opts.APIURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(opts.APIURL))
	}

	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.RateLimitRetries < 0 {
		opts.RateLimitRetries = 0
	}

	return &Client{
		api:      slack.New(opts.Token, slackOpts...),
		pageSize: opts.PageSize,
		retries:  opts.RateLimitRetries,
		logger:   opts.Logger,
		sleep:    sleepContext,
	}
}

// AuthTest verifies the token.
func (c *Client) AuthTest(ctx context.Context) (Identity, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("auth test: %w", err)
	}

	return Identity{
		URL:    resp.URL,
		Team:   resp.Team,
		TeamID: resp.TeamID,
		User:   resp.User,
		UserID: resp.UserID,
	}, nil
}

// Channels lists every non-archived public channel, most members first.
func (c *Client) Channels(ctx context.Context) ([]messaging.Channel, error) {
	var channels []messaging.Channel
	cursor := ""

	for {
		var (
			page []slack.Channel
			next string
		)

		err := c.withRetry(ctx, "conversations.list", func() error {
			var err error
			page, next, err = c.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
				Cursor:          cursor,
				ExcludeArchived: true,
				Limit:           channelPageSize,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list channels: %w", err)
		}

		for _, ch := range page {
			channels = append(channels, messaging.Channel{
				ID:         ch.ID,
				Name:       ch.Name,
				IsMember:   ch.IsMember,
				NumMembers: ch.NumMembers,
			})
		}

		if next == "" {
			break
		}
		cursor = next
	}

	sort.SliceStable(channels, func(i, j int) bool {
		return channels[i].NumMembers > channels[j].NumMembers
	})

	c.logger.Debug().Int("channels", len(channels)).Msg("listed channels")

	return channels, nil
}

// FetchHistory fetches one page of channel history. A rate limited request is
// retried after the delay requested by the server.
func (c *Client) FetchHistory(ctx context.Context, req messaging.HistoryRequest) (messaging.HistoryPage, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = c.pageSize
	}

	params := &slack.GetConversationHistoryParameters{
		ChannelID: req.ChannelID,
		Cursor:    req.Cursor,
		Oldest:    FormatTimestamp(req.Oldest),
		Limit:     limit,
	}

	var resp *slack.GetConversationHistoryResponse
	err := c.withRetry(ctx, "conversations.history", func() error {
		var err error
		resp, err = c.api.GetConversationHistoryContext(ctx, params)
		return err
	})
	if err != nil {
		return messaging.HistoryPage{}, fmt.Errorf("conversations.history %s: %w", req.ChannelID, err)
	}

	page := messaging.HistoryPage{
		Messages: make([]messaging.Message, 0, len(resp.Messages)),
	}
	if resp.HasMore {
		page.NextCursor = resp.ResponseMetaData.NextCursor
	}

	for i := range resp.Messages {
		msg, err := convertMessage(req.ChannelID, &resp.Messages[i])
		if err != nil {
			c.logger.Warn().Err(err).Str("channel", req.ChannelID).Msg("dropping message")
			continue
		}
		page.Messages = append(page.Messages, msg)
	}

	return page, nil
}

func (c *Client) withRetry(ctx context.Context, method string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slack.RateLimitedError
		if !errors.As(err, &rle) || attempt >= c.retries {
			return err
		}

		c.logger.Debug().
			Str("method", method).
			Dur("retry_after", rle.RetryAfter).
			Int("attempt", attempt+1).
			Msg("rate limited")

		if err := c.sleep(ctx, rle.RetryAfter); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func convertMessage(channelID string, m *slack.Message) (messaging.Message, error) {
	if m.Timestamp == "" {
		return messaging.Message{}, &messaging.MalformedMessageError{ChannelID: channelID, Reason: "missing ts"}
	}

	ts, err := ParseTimestamp(m.Timestamp)
	if err != nil {
		return messaging.Message{}, &messaging.MalformedMessageError{ChannelID: channelID, ID: m.Timestamp, Reason: err.Error()}
	}

	subtype := m.SubType
	if subtype == "" && m.BotID != "" {
		subtype = messaging.SubtypeBotMessage
	}

	var reactions []messaging.Reaction
	for _, r := range m.Reactions {
		if r.Name == "" || r.Count <= 0 {
			continue
		}
		reactions = append(reactions, messaging.Reaction{
			EmojiName: r.Name,
			Count:     r.Count,
			UserIDs:   r.Users,
		})
	}

	return messaging.Message{
		ID:        m.Timestamp,
		Timestamp: ts,
		UserID:    m.User,
		Reactions: reactions,
		Subtype:   subtype,
	}, nil
}

// ParseTimestamp parses a Slack "seconds.micros" timestamp.
func ParseTimestamp(ts string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(ts, ".")

	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ts %q", ts)
	}

	var nsec int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		frac, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil || frac < 0 {
			return time.Time{}, fmt.Errorf("invalid ts %q", ts)
		}
		for i := len(fracPart); i < 9; i++ {
			frac *= 10
		}
		nsec = frac
	}

	return time.Unix(sec, nsec), nil
}

// FormatTimestamp renders t as a whole-second Slack timestamp. The zero time
// renders as the empty string.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.Unix(), 10)
}

var (
	_ messaging.HistoryFetcher = (*Client)(nil)
	_ messaging.ChannelLister  = (*Client)(nil)
)
