package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MimoJanra/DomainReport/internal/models"
)

const DefaultTelegramAPI = "https://api.telegram.org"

type NotificationSender struct {
	client      *http.Client
	telegramAPI string
}

func NewNotificationSender() *NotificationSender {
	return &NotificationSender{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		telegramAPI: DefaultTelegramAPI,
	}
}

// NotificationMessage is the digest of one report that alerts are built from.
type NotificationMessage struct {
	ReportID          string
	DomainName        string
	Degraded          bool
	UptimeStatus      string
	TotalErrors       int
	ServicesCompleted int
	Errors            []string
	DurationMS        int64
	CreatedAt         string
}

// maxListedErrors caps how many section errors end up in one message.
const maxListedErrors = 5

// MessageFromReport summarises report. A report is degraded when the site
// was unreachable, uptime is down or any provider reported an error.
func MessageFromReport(report models.DomainReport) NotificationMessage {
	msg := NotificationMessage{
		ReportID:          report.ID,
		DomainName:        report.Domain,
		TotalErrors:       report.Summary.TotalErrors,
		ServicesCompleted: report.Summary.ServicesCompleted,
		DurationMS:        report.Summary.AnalysisDuration,
		CreatedAt:         report.Summary.AnalysisTimestamp.UTC().Format(time.RFC3339),
	}
	if report.Uptime != nil {
		msg.UptimeStatus = report.Uptime.Status
	}

	for _, errs := range sectionErrors(report) {
		msg.Errors = append(msg.Errors, errs...)
	}

	msg.Degraded = report.Summary.ServicesCompleted == models.ServicesFailed ||
		msg.UptimeStatus == models.UptimeStatusDown ||
		report.Summary.TotalErrors > 0
	return msg
}

func sectionErrors(r models.DomainReport) [][]string {
	var out [][]string
	if r.PageSpeed != nil {
		out = append(out, r.PageSpeed.Errors)
	}
	if r.Whois != nil {
		out = append(out, r.Whois.Errors)
	}
	if r.TrustAndCRO != nil {
		out = append(out, r.TrustAndCRO.Errors)
	}
	if r.Uptime != nil {
		out = append(out, r.Uptime.Errors)
	}
	return out
}

// ShouldNotify applies the per-setting failure/success switches.
func ShouldNotify(settings models.NotificationSettings, msg NotificationMessage) bool {
	if !settings.Enabled {
		return false
	}
	if msg.Degraded {
		return settings.NotifyOnFailure
	}
	return settings.NotifyOnSuccess
}

func (ns *NotificationSender) SendNotification(ctx context.Context, settings models.NotificationSettings, msg NotificationMessage) error {
	if !settings.Enabled {
		return nil
	}

	switch settings.Type {
	case "telegram":
		return ns.sendTelegram(ctx, settings, msg)
	case "slack":
		return ns.sendSlack(ctx, settings, msg)
	default:
		return fmt.Errorf("unsupported notification type: %s", settings.Type)
	}
}

func (ns *NotificationSender) sendTelegram(ctx context.Context, settings models.NotificationSettings, msg NotificationMessage) error {
	if settings.Token == "" || settings.ChatID == "" {
		return fmt.Errorf("telegram token and chat_id are required")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", ns.telegramAPI, settings.Token)
	payload := map[string]interface{}{
		"chat_id":    settings.ChatID,
		"text":       formatTelegramMessage(msg),
		"parse_mode": "HTML",
	}
	if err := ns.postJSON(ctx, url, payload); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func (ns *NotificationSender) sendSlack(ctx context.Context, settings models.NotificationSettings, msg NotificationMessage) error {
	if settings.WebhookURL == "" {
		return fmt.Errorf("slack webhook_url is required")
	}

	payload := map[string]interface{}{
		"text": formatSlackMessage(msg),
	}
	if err := ns.postJSON(ctx, settings.WebhookURL, payload); err != nil {
		return fmt.Errorf("send slack message: %w", err)
	}
	return nil
}

func (ns *NotificationSender) postJSON(ctx context.Context, url string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ns.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func statusEmoji(msg NotificationMessage) string {
	switch {
	case msg.ServicesCompleted == models.ServicesFailed || msg.UptimeStatus == models.UptimeStatusDown:
		return "❌"
	case msg.Degraded:
		return "⚠️"
	default:
		return "✅"
	}
}

func servicesLabel(msg NotificationMessage) string {
	if msg.ServicesCompleted == models.ServicesFailed {
		return "unreachable"
	}
	return fmt.Sprintf("%d/4", msg.ServicesCompleted)
}

func listedErrors(msg NotificationMessage) ([]string, int) {
	if len(msg.Errors) <= maxListedErrors {
		return msg.Errors, 0
	}
	return msg.Errors[:maxListedErrors], len(msg.Errors) - maxListedErrors
}

func formatTelegramMessage(msg NotificationMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s Domain Report</b>\n\n", statusEmoji(msg))
	fmt.Fprintf(&b, "<b>Domain:</b> %s\n", msg.DomainName)
	if msg.UptimeStatus != "" {
		fmt.Fprintf(&b, "<b>Uptime:</b> %s\n", msg.UptimeStatus)
	}
	fmt.Fprintf(&b, "<b>Services:</b> %s\n", servicesLabel(msg))
	fmt.Fprintf(&b, "<b>Errors:</b> %d\n", msg.TotalErrors)
	fmt.Fprintf(&b, "<b>Duration:</b> %d ms\n", msg.DurationMS)

	errs, more := listedErrors(msg)
	for _, e := range errs {
		fmt.Fprintf(&b, "• %s\n", escapeHTML(e))
	}
	if more > 0 {
		fmt.Fprintf(&b, "… and %d more\n", more)
	}

	fmt.Fprintf(&b, "<b>Time:</b> %s", msg.CreatedAt)
	return b.String()
}

func formatSlackMessage(msg NotificationMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *Domain Report*\n\n", statusEmoji(msg))
	fmt.Fprintf(&b, "*Domain:* %s\n", msg.DomainName)
	if msg.UptimeStatus != "" {
		fmt.Fprintf(&b, "*Uptime:* %s\n", msg.UptimeStatus)
	}
	fmt.Fprintf(&b, "*Services:* %s\n", servicesLabel(msg))
	fmt.Fprintf(&b, "*Errors:* %d\n", msg.TotalErrors)
	fmt.Fprintf(&b, "*Duration:* %d ms\n", msg.DurationMS)

	errs, more := listedErrors(msg)
	for _, e := range errs {
		fmt.Fprintf(&b, "• %s\n", e)
	}
	if more > 0 {
		fmt.Fprintf(&b, "… and %d more\n", more)
	}

	fmt.Fprintf(&b, "*Time:* %s", msg.CreatedAt)
	return b.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }
