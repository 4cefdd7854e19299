package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/smartwake/internal/recurrence"
)

var (
	_ list.Item = alarmItem{}
)

// alarmItem wraps an [alarmRow] to implement [list.Item].
type alarmItem struct {
	row alarmRow
}

func (i alarmItem) FilterValue() string { return i.row.alarm.Label }
func (i alarmItem) Title() string {
	a := i.row.alarm
	if !a.Enabled {
		return fmt.Sprintf("%s %s (off)", a.Time, a.Label)
	}
	return fmt.Sprintf("%s %s", a.Time, a.Label)
}
func (i alarmItem) Description() string {
	desc := recurrence.Describe(i.row.alarm)
	if i.row.next != nil {
		desc = fmt.Sprintf("%s • next %s", desc, i.row.next.Format("Mon Jan 2 15:04"))
	}
	if i.row.alarm.RealTimeAdaptation {
		desc += " • adaptive"
	}
	return desc
}
