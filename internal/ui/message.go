package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/smartwake/internal/assets"
	"github.com/desertthunder/smartwake/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgAlarmsLoaded MsgKind = iota
	MsgDetailLoaded
	MsgActionDone
	MsgTick
)

// alarmRow is one alarm plus its next occurrence, if any.
type alarmRow struct {
	alarm *models.Alarm
	next  *time.Time
}

type detail struct {
	alarm       *models.Alarm
	occurrences []time.Time
	readiness   assets.Readiness
}

// alarmsLoadedMsg is the constructor for [MsgAlarmsLoaded]
func alarmsLoadedMsg(rows []alarmRow, err error) Msg {
	return Msg{
		kind: MsgAlarmsLoaded,
		data: struct {
			rows []alarmRow
			err  error
		}{rows, err},
	}
}

// detailLoadedMsg is the constructor for [MsgDetailLoaded]
func detailLoadedMsg(d *detail, err error) Msg {
	return Msg{
		kind: MsgDetailLoaded,
		data: struct {
			detail *detail
			err    error
		}{d, err},
	}
}

// actionDoneMsg is the constructor for [MsgActionDone]. status is shown in the footer.
func actionDoneMsg(status string, err error) Msg {
	return Msg{
		kind: MsgActionDone,
		data: struct {
			status string
			err    error
		}{status, err},
	}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}
