package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// Embed colors.
const (
	ColorWarning  = 0xFFCC00
	ColorCritical = 0xFF0000
	ColorResumed  = 0x00FF7F
	ColorGain     = 0x00FF00
	ColorLoss     = 0xFF0000
	ColorEven     = 0xFFFF00
)

const footer = "limitedbot"

// ErrorKind selects the operator error alert.
type ErrorKind string

const (
	ErrorRobloxCookie    ErrorKind = "roblox_cookie"
	ErrorRolimonsFailure ErrorKind = "rolimons_failure"
)

func discordTime(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

// RateLimitMessage announces that sending is paused until resumeAt.
func RateLimitMessage(resumeAt time.Time) Message {
	return Message{
		Title:       "🚨 Trade Rate Limit Reached",
		Description: "The daily trade limit was hit. Outbound offers and counters are paused.",
		Color:       ColorWarning,
		Fields: []Field{
			{Name: "Resuming On", Value: discordTime(resumeAt, "F"), Inline: true},
			{Name: "Time Remaining", Value: discordTime(resumeAt, "R"), Inline: true},
		},
		Footer:    footer,
		Timestamp: time.Now(),
	}
}

// ErrorMessage builds the critical alert for kind observed at now.
func ErrorMessage(kind ErrorKind, now time.Time) Message {
	m := Message{
		Color:     ColorCritical,
		Footer:    footer,
		Timestamp: now,
	}
	switch kind {
	case ErrorRobloxCookie:
		m.Title = "🚨 CRITICAL ERROR: Roblox Cookie Invalid"
		m.Description = "The Roblox session cookie was rejected. All trading is paused."
		m.Fields = append(m.Fields, Field{Name: "Action Required", Value: "Replace the cookie in the configuration and restart."})
	default:
		m.Title = "⚠️ WARNING: Rolimons Data Failure"
		m.Description = "Item values could not be fetched from Rolimons. Trading waits for fresh data."
		m.Fields = append(m.Fields, Field{Name: "Action Required", Value: "Check Rolimons availability. The bot retries automatically."})
	}
	m.Fields = append(m.Fields, Field{Name: "Timestamp", Value: discordTime(now, "F")})
	return m
}

// HoldPausedMessage reports that every tradeable copy is on hold.
func HoldPausedMessage(itemName string) Message {
	return Message{
		Title:       "⏸️ Trade Search Paused",
		Description: "Every item in the inventory is on trade hold.",
		Color:       ColorWarning,
		Fields: []Field{
			{Name: "Item on Hold", Value: itemName},
			{Name: "Action", Value: "The search resumes once an item leaves hold."},
		},
		Footer:    footer,
		Timestamp: time.Now(),
	}
}

// HoldResumedMessage reports that tradeable items are available again.
func HoldResumedMessage() Message {
	return Message{
		Title:       "✅ Trade Search Resumed",
		Description: "Tradeable items are available again.",
		Color:       ColorResumed,
		Footer:      footer,
		Timestamp:   time.Now(),
	}
}

func kindLabel(k domain.TradeKind) string {
	switch k {
	case domain.TradeUpgrade:
		return "Upgrade ☝️"
	case domain.TradeDowngrade:
		return "Downgrade 👎"
	default:
		return "Sidegrade ➖"
	}
}

// TradeMessage reports a finished trade. status is the label shown in
// the title, e.g. "Completed".
func TradeMessage(status string, rec domain.TradeRecord) Message {
	var giving, receiving []string
	var givenRAP, receivedRAP int64
	for _, a := range rec.Assets {
		worth := a.Value
		if worth == domain.UnknownValue {
			worth = a.RAP
		}
		line := fmt.Sprintf("%s (%d)", a.Name, worth)
		if a.Received {
			receiving = append(receiving, line)
			receivedRAP += a.RAP
		} else {
			giving = append(giving, line)
			givenRAP += a.RAP
		}
	}

	color := ColorEven
	switch {
	case rec.Profit > 0:
		color = ColorGain
	case rec.Profit < 0:
		color = ColorLoss
	}

	return Message{
		Title: fmt.Sprintf("%s Trade (%s)", status, kindLabel(rec.Kind)),
		URL:   fmt.Sprintf("https://www.roblox.com/trades#%d", rec.TradeID),
		Color: color,
		Fields: []Field{
			{Name: "Giving", Value: orNone(giving), Inline: true},
			{Name: "Receiving", Value: orNone(receiving), Inline: true},
			{Name: "Profit (RAP)", Value: fmt.Sprintf("Given: %d\nReceived: %d\nProfit: %d", givenRAP, receivedRAP, receivedRAP-givenRAP)},
			{Name: "Created", Value: discordTime(rec.Created, "F")},
		},
		Footer:    footer,
		Timestamp: rec.Updated,
	}
}

// TextMessage is a plain content message with no embed.
func TextMessage(text string) Message {
	return Message{Description: text}
}

func orNone(lines []string) string {
	if len(lines) == 0 {
		return "None"
	}
	return strings.Join(lines, "\n")
}
