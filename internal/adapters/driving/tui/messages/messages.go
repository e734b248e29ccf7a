// Package messages holds the tea.Msg types passed between the TUI views
// and the commands they start.
package messages

import (
	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// ViewType identifies a screen of the TUI.
type ViewType int

const (
	ViewMenu ViewType = iota
	ViewChat
	ViewSearch
	ViewSettings
	ViewHelp
)

var viewNames = [...]string{
	ViewMenu:     "menu",
	ViewChat:     "chat",
	ViewSearch:   "search",
	ViewSettings: "settings",
	ViewHelp:     "help",
}

func (v ViewType) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

// ViewChanged asks the app to switch screens.
type ViewChanged struct {
	View ViewType
}

// SearchCompleted carries the passages found for a search query. Seq
// numbers the searches of one view so late results can be discarded.
type SearchCompleted struct {
	Seq     int
	Results []domain.SearchResult
	Err     error
}

// FragmentReceived is one streamed piece of an answer.
type FragmentReceived struct {
	Text string
}

// TurnCompleted ends a chat turn. Err is set only when the session
// refused the turn; a failed generation is reported in Result.Err.
type TurnCompleted struct {
	Result *domain.TurnResult
	Err    error
}

type ConversationCleared struct {
	Err error
}

// ErrorOccurred reports a failure not tied to a specific view.
type ErrorOccurred struct {
	Err error
}

// SettingsLoaded carries the current settings. Invalid holds the
// validation failure of otherwise readable settings.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Invalid  error
	Err      error
}

type SettingsSaved struct {
	Err error
}
