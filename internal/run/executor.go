// Package run executes a scheduled sync plan against the target
// instance: batches strictly in order, per-item outcomes written
// exactly once, identity mappings maintained as writes succeed, and a
// bounded second pass for relations deferred by cycle isolation.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ivseb/strapi-sync-wizard/internal/compare"
	"github.com/ivseb/strapi-sync-wizard/internal/content"
	"github.com/ivseb/strapi-sync-wizard/internal/links"
	"github.com/ivseb/strapi-sync-wizard/internal/plan"
	"github.com/ivseb/strapi-sync-wizard/internal/schema"
	"github.com/ivseb/strapi-sync-wizard/internal/store"
	"github.com/ivseb/strapi-sync-wizard/internal/strapi"
)

// inflight guards against concurrent executions of the same merge
// request: both would race on the same mapping rows.
var inflight sync.Map

// Executor replays an execution plan against the target instance.
//
// A single run processes batches strictly sequentially: later batches
// may depend on identity mappings written by earlier ones. Items
// within a batch are independent by construction; they are processed
// in order so the progress stream stays deterministic.
type Executor struct {
	store          *store.Store
	source         strapi.Client
	target         strapi.Client
	mergeRequestID string

	resolvers  map[string]*schema.Resolver
	components map[string]schema.Component
	sink       Sink
}

// NewExecutor builds an executor for one merge request. Resolvers are
// built once per content type from the target schema.
func NewExecutor(
	s *store.Store,
	source, target strapi.Client,
	mergeRequestID string,
	contentTypes []schema.ContentType,
	components map[string]schema.Component,
	sink Sink,
) *Executor {
	resolvers := make(map[string]*schema.Resolver, len(contentTypes))
	for _, ct := range contentTypes {
		resolvers[ct.UID] = schema.BuildResolver(ct, components)
	}
	return &Executor{
		store:          s,
		source:         source,
		target:         target,
		mergeRequestID: mergeRequestID,
		resolvers:      resolvers,
		components:     components,
		sink:           sink,
	}
}

// runState tracks per-item terminal knowledge within one run.
type runState struct {
	failed    map[plan.NodeKey]string // key -> failure reason
	succeeded map[plan.NodeKey]bool
	outcomes  []Outcome
	recorded  map[plan.NodeKey]bool
}

// Execute replays the plan. Per-item errors never abort the run; only
// setup-phase failures (store unreachable, concurrent run) return an
// error before any item is attempted. Cancellation stops scheduling
// further items between items and returns ctx.Err() with the outcomes
// collected so far; applied writes are individually idempotent and a
// later run resumes safely.
func (e *Executor) Execute(ctx context.Context, p *plan.ExecutionPlan) ([]Outcome, error) {
	if _, loaded := inflight.LoadOrStore(e.mergeRequestID, struct{}{}); loaded {
		return nil, NewRunInProgressError(e.mergeRequestID)
	}
	defer inflight.Delete(e.mergeRequestID)

	if err := e.store.ResetOutcomes(ctx, e.mergeRequestID); err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	cache, err := newMappingCache(ctx, e.store, e.source.InstanceID(), e.target.InstanceID())
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	state := &runState{
		failed:    make(map[plan.NodeKey]string),
		succeeded: make(map[plan.NodeKey]bool),
		recorded:  make(map[plan.NodeKey]bool),
	}

	circularFields := p.CircularFields()
	circularByItem := make(map[plan.NodeKey][]plan.CircularDependencyEdge)
	for _, edge := range p.CircularEdges {
		key := plan.NodeKey{Table: edge.FromTable, DocumentID: edge.FromDocumentID}
		circularByItem[key] = append(circularByItem[key], edge)
	}
	itemsByKey := make(map[plan.NodeKey]plan.Item)
	for _, batch := range p.Batches {
		for _, item := range batch {
			itemsByKey[item.Key()] = item
		}
	}
	missingByItem := make(map[plan.NodeKey][]links.LinkRef)
	for _, miss := range p.Missing {
		key := plan.NodeKey{Table: miss.FromTable, DocumentID: miss.FromDocumentID}
		missingByItem[key] = append(missingByItem[key], miss.Via)
	}

	// UUIDv7 so run tokens sort by start time in the logs.
	runToken, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("execute: run token: %w", err)
	}
	slog.Info("run starting",
		"run", runToken.String(),
		"merge_request", e.mergeRequestID,
		"batches", len(p.Batches),
		"deletions", len(p.Deletions),
		"circular_edges", len(p.CircularEdges),
	)

	for i, batch := range p.Batches {
		e.sink.emit(Event{Kind: EventBatch, Batch: i + 1, Status: StatusInProgress})
		for _, item := range batch {
			if err := ctx.Err(); err != nil {
				return state.outcomes, err
			}
			e.processItem(ctx, state, cache, item, i+1, circularFields, circularByItem, missingByItem)
		}
	}

	e.secondPass(ctx, state, cache, circularByItem, itemsByKey)

	if len(p.Deletions) > 0 {
		e.sink.emit(Event{Kind: EventBatch, Batch: len(p.Batches) + 1, Status: StatusInProgress, Message: "deletions"})
		for _, item := range p.Deletions {
			if err := ctx.Err(); err != nil {
				return state.outcomes, err
			}
			e.processDeletion(ctx, state, cache, item, len(p.Batches)+1)
		}
	}

	slog.Info("run finished",
		"run", runToken.String(),
		"merge_request", e.mergeRequestID,
		"items", len(state.outcomes),
		"failed", len(state.failed),
	)
	return state.outcomes, nil
}

// processItem attempts one create/update. Items whose dependency
// already failed in this run are skipped without touching the target
// instance; their failure propagates the same way.
func (e *Executor) processItem(
	ctx context.Context,
	state *runState,
	cache *mappingCache,
	item plan.Item,
	batch int,
	circularFields map[plan.NodeKey]map[string]bool,
	circularByItem map[plan.NodeKey][]plan.CircularDependencyEdge,
	missingByItem map[plan.NodeKey][]links.LinkRef,
) {
	key := item.Key()
	op := operationFor(item.Selection.Direction)
	e.sink.emit(Event{Kind: EventItem, Batch: batch, ItemKey: key.String(), Operation: op, Status: StatusInProgress})

	if depKey, reason, ok := e.failedDependency(state, item, circularByItem[key]); ok {
		err := NewDependencySkippedError(key.String(), depKey.String())
		slog.Warn("item skipped", "item", key.String(), "dependency", depKey.String(), "dependency_error", reason)
		e.finishItem(ctx, state, item, batch, op, false, err.Error())
		return
	}

	if item.Selection.TableName == compare.FilesContentType {
		e.syncFile(ctx, state, cache, item, batch, op)
		return
	}

	src := item.Result.Source
	missing := make(map[links.LinkRef]bool, len(missingByItem[key]))
	for _, ref := range missingByItem[key] {
		missing[ref] = true
		slog.Warn("link target absent on both sides, relation omitted",
			"code", string(ErrCodeMissingDependency),
			"item", key.String(),
			"field", ref.Field,
			"target", ref.TargetTable+"/"+ref.TargetDocumentID,
		)
	}
	payload, unmapped := buildPayload(item, e.resolvers[item.Selection.TableName], e.components, circularFields[key], missing, cache.Resolve)
	for _, ref := range unmapped {
		slog.Warn("mapping not found, using source identifier",
			"code", string(ErrCodeMappingNotFound),
			"item", key.String(),
			"field", ref.Field,
			"target", ref.TargetTable+"/"+ref.TargetDocumentID,
		)
	}

	targetDoc := src.DocumentID
	if mapped, ok := cache.Resolve(item.Selection.TableName, src.DocumentID); ok {
		targetDoc = mapped
	}

	created, err := e.target.UpsertEntry(ctx, item.Selection.TableName, targetDoc, payload)
	if err != nil {
		logRequestFailure(key, op, err)
		e.finishItem(ctx, state, item, batch, op, false, err.Error())
		return
	}

	rec, err := compare.NewRecord(created)
	if err != nil {
		e.finishItem(ctx, state, item, batch, op, false, fmt.Sprintf("decode upsert response: %v", err))
		return
	}

	if err := cache.Record(ctx, store.DocumentMapping{
		ContentType:      item.Selection.TableName,
		SourceID:         src.ID,
		SourceDocumentID: src.DocumentID,
		TargetID:         rec.ID,
		TargetDocumentID: rec.DocumentID,
		Locale:           src.Locale,
	}); err != nil {
		e.finishItem(ctx, state, item, batch, op, false, fmt.Sprintf("persist mapping: %v", err))
		return
	}

	// Items owning circular edges stay open until the second pass:
	// their terminal state depends on the deferred relation update.
	if len(circularByItem[key]) > 0 {
		state.succeeded[key] = true
		e.sink.emit(Event{Kind: EventItem, Batch: batch, ItemKey: key.String(), Operation: op, Status: StatusPending,
			Message: "created, relation update deferred"})
		return
	}

	e.finishItem(ctx, state, item, batch, op, true, "")
}

// syncFile transfers one media record: download from the source,
// best-effort folder resolution, upload to the target. A stale target
// version is deleted first so the upload does not accumulate copies.
func (e *Executor) syncFile(ctx context.Context, state *runState, cache *mappingCache, item plan.Item, batch int, op string) {
	src := item.Result.Source
	key := item.Key()

	fileURL := ""
	if s, ok := src.Raw["url"].(content.String); ok {
		fileURL = string(s)
	}
	if fileURL == "" {
		e.finishItem(ctx, state, item, batch, op, false, "file record has no url")
		return
	}

	data, err := e.source.DownloadFile(ctx, fileURL)
	if err != nil {
		logRequestFailure(key, op, err)
		e.finishItem(ctx, state, item, batch, op, false, err.Error())
		return
	}

	var folderID int64
	if folderPath, ok := src.Raw["folderPath"].(content.String); ok && folderPath != "/" && folderPath != "" {
		folderID, err = e.target.EnsureFolder(ctx, string(folderPath))
		if err != nil {
			// Best effort: the file syncs into the library root.
			slog.Warn("folder creation failed",
				"code", string(ErrCodeFolderCreationFailed),
				"item", key.String(),
				"path", string(folderPath),
				"error", err,
			)
			folderID = 0
		}
	}

	if item.Result.Target != nil && item.Result.Target.ID != 0 {
		if err := e.target.DeleteFile(ctx, item.Result.Target.ID); err != nil && !strapi.IsNotFound(err) {
			e.finishItem(ctx, state, item, batch, op, false, err.Error())
			return
		}
	}

	created, err := e.target.UploadFile(ctx, src.Raw, data, folderID)
	if err != nil {
		logRequestFailure(key, op, err)
		e.finishItem(ctx, state, item, batch, op, false, err.Error())
		return
	}

	rec, err := compare.NewRecord(created)
	if err != nil {
		e.finishItem(ctx, state, item, batch, op, false, fmt.Sprintf("decode upload response: %v", err))
		return
	}

	if err := cache.Record(ctx, store.DocumentMapping{
		ContentType:      compare.FilesContentType,
		SourceID:         src.ID,
		SourceDocumentID: src.DocumentID,
		TargetID:         rec.ID,
		TargetDocumentID: rec.DocumentID,
	}); err != nil {
		e.finishItem(ctx, state, item, batch, op, false, fmt.Sprintf("persist mapping: %v", err))
		return
	}

	e.finishItem(ctx, state, item, batch, op, true, "")
}

// secondPass runs exclusively for items owning circular edges whose
// first-pass attempt succeeded. Each gets one follow-up update
// carrying only the deferred relation fields, addressed by the
// now-known target documentId. A failure here downgrades the item:
// the record exists but is relationally incomplete.
func (e *Executor) secondPass(
	ctx context.Context,
	state *runState,
	cache *mappingCache,
	circularByItem map[plan.NodeKey][]plan.CircularDependencyEdge,
	itemsByKey map[plan.NodeKey]plan.Item,
) {
	keys := make([]plan.NodeKey, 0, len(circularByItem))
	for key := range circularByItem {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Table != keys[j].Table {
			return keys[i].Table < keys[j].Table
		}
		return keys[i].DocumentID < keys[j].DocumentID
	})

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return
		}
		item, present := itemsByKey[key]
		if !present || !state.succeeded[key] {
			// First pass already failed and recorded the outcome.
			continue
		}
		edges := circularByItem[key]

		e.sink.emit(Event{Kind: EventItem, ItemKey: key.String(), Operation: "RELATION_UPDATE", Status: StatusInProgress})

		if depKey, ok := failedEdgeTarget(state, edges); ok {
			msg := fmt.Sprintf("deferred relation not applied: target %s failed", depKey.String())
			e.finishItem(ctx, state, item, 0, "RELATION_UPDATE", false, msg)
			continue
		}

		targetDoc := key.DocumentID
		if mapped, ok := cache.Resolve(key.Table, key.DocumentID); ok {
			targetDoc = mapped
		}

		payload := secondPassPayload(edges, cache.Resolve)
		if _, err := e.target.UpsertEntry(ctx, key.Table, targetDoc, payload); err != nil {
			logRequestFailure(key, "RELATION_UPDATE", err)
			e.finishItem(ctx, state, item, 0, "RELATION_UPDATE", false, err.Error())
			continue
		}
		e.finishItem(ctx, state, item, 0, "RELATION_UPDATE", true, "")
	}
}

// processDeletion removes one target-side record. Absence of the
// target record is an already-satisfied deletion, not an error.
func (e *Executor) processDeletion(ctx context.Context, state *runState, cache *mappingCache, item plan.Item, batch int) {
	key := item.Key()
	e.sink.emit(Event{Kind: EventItem, Batch: batch, ItemKey: key.String(), Operation: "DELETE", Status: StatusInProgress})

	target := item.Result.Target
	if target == nil {
		e.finishItem(ctx, state, item, batch, "DELETE", true, "")
		return
	}

	var err error
	if item.Selection.TableName == compare.FilesContentType {
		err = e.target.DeleteFile(ctx, target.ID)
	} else {
		err = e.target.DeleteEntry(ctx, item.Selection.TableName, target.DocumentID)
	}
	if err != nil && !strapi.IsNotFound(err) {
		e.finishItem(ctx, state, item, batch, "DELETE", false, err.Error())
		return
	}

	if src := item.Result.Source; src != nil {
		if err := cache.Forget(ctx, item.Selection.TableName, src.DocumentID, src.Locale); err != nil {
			slog.Warn("forget mapping failed", "item", key.String(), "error", err)
		}
	}
	e.finishItem(ctx, state, item, batch, "DELETE", true, "")
}

// finishItem writes the item's terminal state exactly once: the
// selection row, the outcome list, the progress event and the
// propagation maps.
func (e *Executor) finishItem(ctx context.Context, state *runState, item plan.Item, batch int, op string, success bool, message string) {
	key := item.Key()
	if state.recorded[key] {
		slog.Error("duplicate terminal state suppressed", "item", key.String())
		return
	}
	state.recorded[key] = true

	if err := e.store.RecordOutcome(ctx, e.mergeRequestID, key.Table, key.DocumentID, success, message); err != nil {
		slog.Error("record outcome failed", "item", key.String(), "error", err)
	}

	state.outcomes = append(state.outcomes, Outcome{ItemKey: key.String(), Success: success, Message: message})
	if success {
		state.succeeded[key] = true
		e.sink.emit(Event{Kind: EventItem, Batch: batch, ItemKey: key.String(), Operation: op, Status: StatusSuccess})
		return
	}
	state.succeeded[key] = false
	state.failed[key] = message
	e.sink.emit(Event{Kind: EventItem, Batch: batch, ItemKey: key.String(), Operation: op, Status: StatusError, Message: message})
}

// failedDependency returns the first of the item's graph dependencies
// that already failed in this run. Links whose edges were isolated as
// circular never count: they left the scheduling graph, the first-pass
// payload omits them, and a failed cycle partner must not block this
// item's own create.
func (e *Executor) failedDependency(state *runState, item plan.Item, circular []plan.CircularDependencyEdge) (plan.NodeKey, string, bool) {
	deferred := make(map[links.LinkRef]bool, len(circular))
	for _, edge := range circular {
		deferred[edge.Via] = true
	}
	for _, ref := range item.Links {
		if deferred[ref] {
			continue
		}
		dep := plan.NodeKey{Table: ref.TargetTable, DocumentID: ref.TargetDocumentID}
		if reason, ok := state.failed[dep]; ok {
			return dep, reason, true
		}
	}
	return plan.NodeKey{}, "", false
}

func failedEdgeTarget(state *runState, edges []plan.CircularDependencyEdge) (plan.NodeKey, bool) {
	for _, e := range edges {
		dep := plan.NodeKey{Table: e.ToTable, DocumentID: e.ToDocumentID}
		if _, failed := state.failed[dep]; failed {
			return dep, true
		}
	}
	return plan.NodeKey{}, false
}

// logRequestFailure records a failed instance request under its error
// code; the item outcome carries the response verbatim.
func logRequestFailure(key plan.NodeKey, op string, err error) {
	slog.Warn("instance request failed",
		"code", string(ErrCodeUpstreamRequestFailed),
		"item", key.String(),
		"op", op,
		"error", err,
	)
}

func operationFor(d plan.Direction) string {
	switch d {
	case plan.ToCreate:
		return "CREATE"
	case plan.ToUpdate:
		return "UPDATE"
	case plan.ToDelete:
		return "DELETE"
	}
	return string(d)
}
