// Package ui implements the alarm dashboard using bubbletea's Elm architecture.
//
// The dashboard has three views:
//  1. [AlarmListView] : every alarm with its schedule and next firing
//  2. [DetailView] : upcoming occurrences and asset readiness for one alarm
//  3. [ConfirmView] : confirm deleting the selected alarm
//
// The [Model] implements bubbletea's Init/Update/View pattern, receiving messages via the Msg union type.
// It reads and mutates alarms only through a [Backend], so the same dashboard runs against the
// orchestrator in-process. The list refreshes itself on a ticker.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, e/s/d, y/n, q) with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
