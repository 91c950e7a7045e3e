package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/irfndi/skupulse/internal/models"
	"github.com/irfndi/skupulse/internal/presentation"
	"github.com/irfndi/skupulse/internal/utils"
)

// MessageSender is the part of *bot.Bot the digest needs.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// DigestSource supplies the reports summarized by the digest.
type DigestSource interface {
	ClassifyDate(ctx context.Context, date time.Time) (*ClassificationResult, error)
	CompareHourly(ctx context.Context, from, to time.Time) (*models.ComparisonResult, error)
}

// DigestConfig configures the daily digest.
type DigestConfig struct {
	ChatIDs  []int64
	Interval time.Duration
	// LookbackDays is the order window passed to the hourly comparison.
	LookbackDays int
	// TopSKUs is how many SKUs are listed per urgent cluster.
	TopSKUs  int
	Location *time.Location
	// Delivery guards the Telegram API calls.
	Delivery CircuitBreakerConfig
}

// DigestReport describes one digest delivery.
type DigestReport struct {
	Date      string `json:"date"`
	Text      string `json:"text"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
}

// DigestService posts a summary of the signal clusters and the hourly order
// comparison to Telegram chats.
type DigestService struct {
	source  DigestSource
	sender  MessageSender
	breaker *CircuitBreaker
	config  DigestConfig
	now     func() time.Time
	logger  *logrus.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// urgent clusters list their top SKUs in the digest.
var digestUrgentTags = []models.SignalTag{
	models.SignalOOSNow,
	models.SignalOOSSoon,
	models.SignalHighDRR,
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// NewDigestService creates a digest service. sender may be nil when no bot
// token is configured; Send then fails.
func NewDigestService(source DigestSource, sender MessageSender, cfg DigestConfig, logger *logrus.Logger) *DigestService {
	if cfg.LookbackDays < 2 {
		cfg.LookbackDays = 2
	}
	if cfg.TopSKUs <= 0 {
		cfg.TopSKUs = 5
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DigestService{
		source:  source,
		sender:  sender,
		breaker: NewCircuitBreaker("telegram", cfg.Delivery, logger),
		config:  cfg,
		now:     time.Now,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Send builds the digest for date and posts it to every configured chat.
// An hourly comparison without enough data leaves its section out.
func (d *DigestService) Send(ctx context.Context, date time.Time) (*DigestReport, error) {
	if d.sender == nil {
		return nil, fmt.Errorf("telegram bot not initialized")
	}
	if len(d.config.ChatIDs) == 0 {
		return nil, utils.NewValidationError("no telegram chats configured")
	}

	classification, err := d.source.ClassifyDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to classify %s: %w", date.Format(time.DateOnly), err)
	}

	from := date.AddDate(0, 0, -(d.config.LookbackDays - 1))
	comparison, err := d.source.CompareHourly(ctx, from, date)
	if err != nil {
		var insufficient *utils.InsufficientDataError
		if !errors.As(err, &insufficient) {
			return nil, fmt.Errorf("failed to compare hourly orders: %w", err)
		}
		d.logger.WithError(err).Info("Digest sent without hourly section")
		comparison = nil
	}

	report := &DigestReport{
		Date: date.Format(time.DateOnly),
		Text: FormatDigest(date, classification, comparison, d.config.TopSKUs),
	}

	for _, chatID := range d.config.ChatIDs {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      report.Text,
			ParseMode: tgmodels.ParseModeMarkdown,
		}
		err := d.breaker.Execute(ctx, func(ctx context.Context) error {
			_, err := d.sender.SendMessage(ctx, params)
			return err
		})
		if err != nil {
			report.Failed++
			d.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send digest")
			continue
		}
		report.Delivered++
	}

	if report.Delivered == 0 {
		return report, fmt.Errorf("failed to send telegram message to any of %d chats", len(d.config.ChatIDs))
	}
	d.logger.WithFields(logrus.Fields{
		"date":      report.Date,
		"delivered": report.Delivered,
		"failed":    report.Failed,
	}).Info("Digest sent")
	return report, nil
}

// DeliveryStats reports the state of the Telegram circuit breaker.
func (d *DigestService) DeliveryStats() CircuitBreakerStats {
	return d.breaker.GetStats()
}

// Start sends the digest for the current day every interval until Stop.
func (d *DigestService) Start() {
	if d.config.Interval <= 0 {
		d.logger.Info("Digest scheduler disabled")
		return
	}
	d.logger.WithField("interval", d.config.Interval.String()).Info("Starting digest scheduler")

	ticker := time.NewTicker(d.config.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-d.ctx.Done():
				return
			case <-ticker.C:
				now := d.now().In(d.config.Location)
				today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
				if _, err := d.Send(d.ctx, today); err != nil {
					d.logger.WithError(err).Error("Scheduled digest failed")
				}
			}
		}
	}()
}

// Stop stops the scheduler.
func (d *DigestService) Stop() {
	d.logger.Info("Stopping digest scheduler")
	d.cancel()
}

// FormatDigest renders the digest text in Telegram Markdown. comparison may
// be nil.
func FormatDigest(date time.Time, classification *ClassificationResult, comparison *models.ComparisonResult, topSKUs int) string {
	p := message.NewPrinter(language.Russian)
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("*SKU digest %s*\n", date.Format(time.DateOnly)))
	sb.WriteString(p.Sprintf("Evaluated %d SKUs", classification.Evaluated))
	if n := len(classification.Skipped); n > 0 {
		sb.WriteString(p.Sprintf(", skipped %d", n))
	}
	sb.WriteString("\n\n")

	wrote := false
	for _, style := range presentation.Styles() {
		count := classification.Clusters[style.Tag]
		if count == 0 {
			continue
		}
		wrote = true
		sb.WriteString(p.Sprintf("%s %s: *%d*\n", style.Emoji, markdownEscaper.Replace(style.Title), count))
	}
	if !wrote {
		sb.WriteString("No signals today\n")
	}

	groups := ClassifiedByTag(classification.SKUs)
	for _, tag := range digestUrgentTags {
		skus := FilterSKUs(groups[tag], &tag, FilterOptions{})
		if len(skus) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n*%s*\n", markdownEscaper.Replace(presentation.Style(tag).Title)))
		for i, sku := range skus {
			if i == topSKUs {
				sb.WriteString(p.Sprintf("…and %d more\n", len(skus)-topSKUs))
				break
			}
			sb.WriteString(p.Sprintf("• %s (%d), stock %d\n",
				markdownEscaper.Replace(sku.Snapshot.SKU), sku.Snapshot.NmID, sku.Snapshot.CurrentStock))
		}
	}

	if comparison != nil {
		sb.WriteString(fmt.Sprintf("\n*Orders %s vs %s*\n", comparison.LatestDate, comparison.PreviousDate))
		t := comparison.Totals
		sb.WriteString(p.Sprintf("Total: %d ₽ vs %d ₽", t.Today.IntPart(), t.Yesterday.IntPart()))
		sb.WriteString(fmt.Sprintf(" (%+d%%)\n", t.DiffPercent))
		if comparison.LastActiveHour >= 0 {
			s := comparison.SameTime
			sb.WriteString(fmt.Sprintf("Through %02d:00: ", comparison.LastActiveHour))
			sb.WriteString(p.Sprintf("%d ₽ vs %d ₽", s.Today.IntPart(), s.Yesterday.IntPart()))
			sb.WriteString(fmt.Sprintf(" (%+d%%)\n", s.DiffPercent))
		}
		if comparison.Staleness.Stale {
			sb.WriteString(p.Sprintf("⚠️ Order data is %d days old\n", comparison.Staleness.DaysSinceLatest))
		}
	}

	return sb.String()
}
