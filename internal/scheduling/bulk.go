package scheduling

import (
	"context"
	"fmt"

	"github.com/desertthunder/smartwake/internal/models"
)

// BulkError identifies one failed item so it can be retried on its own.
type BulkError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// BulkResult reports a best-effort batch. Every item is attempted; nothing is rolled back.
type BulkResult struct {
	Success int         `json:"success"`
	Failed  int         `json:"failed"`
	Errors  []BulkError `json:"errors"`
}

func (r *BulkResult) record(id string, err error) {
	if err == nil {
		r.Success++
		return
	}
	r.Failed++
	r.Errors = append(r.Errors, BulkError{ID: id, Message: err.Error()})
}

// ProgressUpdate represents a progress event during a batch operation.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current item, 1-based
	Total   int    // Items in this phase
	Message string // Human-readable message for display
}

// Phase names the batch operation a [ProgressUpdate] belongs to.
type Phase int

const (
	PhaseCreate Phase = iota
	PhaseUpdate
	PhaseDelete
	PhaseDuplicate
	PhaseImport
	PhaseExport
)

func (p Phase) String() string {
	switch p {
	case PhaseCreate:
		return "create"
	case PhaseUpdate:
		return "update"
	case PhaseDelete:
		return "delete"
	case PhaseDuplicate:
		return "duplicate"
	case PhaseImport:
		return "import"
	case PhaseExport:
		return "export"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func itemUpdate(phase Phase, step, total int, name string, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s", step, total, name)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err)
	}
	return ProgressUpdate{Phase: phase, Step: step, Total: total, Message: msg}
}

func itemName(a *models.Alarm) string {
	if a == nil {
		return "<nil>"
	}
	if a.ID != "" {
		return a.ID
	}
	return a.Label
}

// BulkCreate creates each alarm independently.
func (o *Orchestrator) BulkCreate(ctx context.Context, progress chan<- ProgressUpdate, alarms []*models.Alarm) *BulkResult {
	res := &BulkResult{}
	for i, a := range alarms {
		_, err := o.create(ctx, a)
		res.record(itemName(a), err)
		sendProgress(progress, itemUpdate(PhaseCreate, i+1, len(alarms), itemName(a), err))
	}
	o.refreshAssetsLogged(ctx)
	return res
}

// BulkUpdate updates each alarm independently.
func (o *Orchestrator) BulkUpdate(ctx context.Context, progress chan<- ProgressUpdate, alarms []*models.Alarm) *BulkResult {
	res := &BulkResult{}
	for i, a := range alarms {
		_, err := o.update(ctx, a)
		res.record(itemName(a), err)
		sendProgress(progress, itemUpdate(PhaseUpdate, i+1, len(alarms), itemName(a), err))
	}
	o.refreshAssetsLogged(ctx)
	return res
}

// BulkDelete deletes each alarm independently.
func (o *Orchestrator) BulkDelete(ctx context.Context, progress chan<- ProgressUpdate, ids []string) *BulkResult {
	res := &BulkResult{}
	for i, id := range ids {
		err := o.delete(ctx, id)
		res.record(id, err)
		sendProgress(progress, itemUpdate(PhaseDelete, i+1, len(ids), id, err))
	}
	o.refreshAssetsLogged(ctx)
	return res
}

// BulkDuplicate duplicates each alarm independently.
func (o *Orchestrator) BulkDuplicate(ctx context.Context, progress chan<- ProgressUpdate, ids []string) *BulkResult {
	res := &BulkResult{}
	for i, id := range ids {
		_, err := o.duplicate(ctx, id)
		res.record(id, err)
		sendProgress(progress, itemUpdate(PhaseDuplicate, i+1, len(ids), id, err))
	}
	o.refreshAssetsLogged(ctx)
	return res
}
