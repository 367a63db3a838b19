package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/leighmacdonald/steam-friends/internal/cache"
	"github.com/leighmacdonald/steam-friends/internal/friends"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f4722b"))
	inGameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5885A2")).Bold(true)
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#cccccc"))
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3e3e3e"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8383B")).Bold(true)
)

// ColorFunc picks the colour used to draw a review score.
type ColorFunc func(score int) string

// Console writes a plain text rendition of each event. It is meant for running headless.
type Console struct {
	mu         *sync.Mutex
	out        io.Writer
	scoreColor ColorFunc
}

func NewConsole(out io.Writer, scoreColor ColorFunc) *Console {
	return &Console{mu: &sync.Mutex{}, out: out, scoreColor: scoreColor}
}

func (c *Console) OnSnapshot(snapshot Snapshot) {
	var builder strings.Builder
	builder.WriteString(headerStyle.Render(fmt.Sprintf("%s  %d friends  change #%d",
		snapshot.At.Format("15:04:05"), len(snapshot.Friends), snapshot.Changes)))
	builder.WriteString("\n")

	for _, friend := range snapshot.Friends {
		builder.WriteString(c.line(friend))
		builder.WriteString("\n")
	}

	c.write(builder.String())
}

func (c *Console) line(friend friends.Friend) string {
	style := onlineStyle
	switch {
	case friend.InGame:
		style = inGameStyle
	case friend.Status == friends.Offline:
		style = offlineStyle
	}

	parts := []string{
		style.Render(fmt.Sprintf("%-32s", friend.Name)),
		fmt.Sprintf("%-16s", friend.Status.String()),
		strings.ToUpper(friend.CountryCode),
	}

	if friend.InGame && friend.GameName != "" {
		parts = append(parts, friend.GameName)
	}

	if friend.Score != nil {
		score := fmt.Sprintf("%d%%", *friend.Score)
		if c.scoreColor != nil {
			if color := c.scoreColor(*friend.Score); color != "" {
				score = lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(score)
			}
		}
		parts = append(parts, score)
	}

	if friend.Playtime != nil {
		parts = append(parts, humanize.Comma(int64(*friend.Playtime/60))+"h")
	}

	return strings.Join(parts, "  ")
}

func (c *Console) OnFetchError(fetchErr FetchError) {
	c.write(errorStyle.Render(fmt.Sprintf("%s  fetch failed (%d in a row): %s",
		fetchErr.At.Format("15:04:05"), fetchErr.Failures, fetchErr.Message)) + "\n")
}

func (c *Console) OnCacheUnhealthy(health cache.Health) {
	c.write(errorStyle.Render(fmt.Sprintf("%s  %s cache cannot be saved (%d failures): %s",
		health.At.Format("15:04:05"), health.Cache, health.Failures, health.Error)) + "\n")
}

func (c *Console) write(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = io.WriteString(c.out, text)
}
