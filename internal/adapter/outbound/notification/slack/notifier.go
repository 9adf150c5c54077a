package slack

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/logtail/internal/domain/model"
	"github.com/jonny/logtail/internal/domain/port/outbound"
)

// Config holds Slack notifier configuration.
type Config struct {
	BotToken       string
	DefaultChannel string
	Channels       map[string]string // partition -> channel ID
	// APIURL overrides the Slack endpoint; it must end with a slash.
	APIURL string
}

// Notifier implements outbound.EntryNotifier via the Slack API.
type Notifier struct {
	client *slackapi.Client
	config Config
}

var _ outbound.EntryNotifier = (*Notifier)(nil)

// NewNotifier creates a new Slack Notifier.
func NewNotifier(cfg Config) *Notifier {
	var opts []slackapi.Option
	if cfg.APIURL != "" {
		opts = append(opts, slackapi.OptionAPIURL(cfg.APIURL))
	}
	return &Notifier{
		client: slackapi.New(cfg.BotToken, opts...),
		config: cfg,
	}
}

// channelFor returns the channel to post to for a given partition.
func (n *Notifier) channelFor(partition string) string {
	if ch, ok := n.config.Channels[partition]; ok {
		return ch
	}
	return n.config.DefaultChannel
}

// NotifyEntry posts the entry as a Block Kit card.
func (n *Notifier) NotifyEntry(ctx context.Context, entry model.Entry) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channelFor(entry.Partition),
		slackapi.MsgOptionBlocks(BuildEntryBlocks(entry)...),
		slackapi.MsgOptionText(fallbackText(entry), false),
	)
	if err != nil {
		return fmt.Errorf("slack NotifyEntry: %w", err)
	}
	return nil
}

// BuildEntryBlocks renders the message, attributes and key of an entry.
func BuildEntryBlocks(entry model.Entry) []slackapi.Block {
	headline := slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("%s *%s* `%s`\n%s", levelEmoji(entry.Level), strings.ToUpper(string(entry.Level)), entry.Partition, entry.Message),
			false, false),
		nil, nil,
	)
	blocks := []slackapi.Block{headline}

	if len(entry.Attributes) > 0 {
		var fields []*slackapi.TextBlockObject
		for _, k := range slices.Sorted(maps.Keys(entry.Attributes)) {
			fields = append(fields, slackapi.NewTextBlockObject(slackapi.MarkdownType,
				fmt.Sprintf("*%s*\n%s", k, entry.Attributes[k]), false, false))
		}
		// Slack rejects sections with more than ten fields.
		if len(fields) > 10 {
			fields = fields[:10]
		}
		blocks = append(blocks, slackapi.NewSectionBlock(nil, fields, nil))
	}

	blocks = append(blocks, slackapi.NewContextBlock("",
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("%s | key `%s` | id `%s`", entry.Timestamp().Format(time.RFC3339Nano), entry.Key, entry.ID),
			false, false),
	))
	return blocks
}

func fallbackText(entry model.Entry) string {
	return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(entry.Level)), entry.Partition, entry.Message)
}

// levelEmoji maps an entry level to an emoji.
func levelEmoji(level model.Level) string {
	switch level {
	case model.LevelError:
		return ":red_circle:"
	case model.LevelWarn:
		return ":large_yellow_circle:"
	default:
		return ":information_source:"
	}
}
