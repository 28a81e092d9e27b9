package main

import (
	"fmt"
	"strings"
	"time"

	"equipqr/internal/offline"
	"equipqr/internal/queue"
)

const maxErrorWidth = 48

func buildQueueListRows(items []*queue.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			string(item.Type),
			titleCase(string(item.Status)),
			fmt.Sprintf("%d/%d", item.RetryCount, item.MaxRetries),
			formatTimestamp(item.Timestamp),
			truncate(item.LastError, maxErrorWidth),
		})
	}
	return rows
}

func parseStatusFlags(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok || status == queue.StatusSynced {
			return nil, fmt.Errorf("unknown status %q (use pending, processing, or failed)", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func describeResult(result offline.SyncResult) string {
	return fmt.Sprintf("Synced %d, failed %d, %s remaining", result.Succeeded, result.Failed, pluralItems(result.Remaining))
}

func pluralItems(n int) string {
	return fmt.Sprintf("%d %s", n, pluralWord(n, "item", "items"))
}

func pluralWord(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}

func titleCase(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}

func truncate(value string, width int) string {
	value = strings.TrimSpace(value)
	if width <= 0 || len([]rune(value)) <= width {
		return value
	}
	runes := []rune(value)
	return string(runes[:width-1]) + "…"
}
