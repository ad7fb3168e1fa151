package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/ivseb/strapi-sync-wizard/internal/compare"
	"github.com/ivseb/strapi-sync-wizard/internal/config"
	"github.com/ivseb/strapi-sync-wizard/internal/links"
	"github.com/ivseb/strapi-sync-wizard/internal/plan"
	"github.com/ivseb/strapi-sync-wizard/internal/run"
	"github.com/ivseb/strapi-sync-wizard/internal/schema"
	"github.com/ivseb/strapi-sync-wizard/internal/snapshot"
	"github.com/ivseb/strapi-sync-wizard/internal/store"
	"github.com/ivseb/strapi-sync-wizard/internal/strapi"
)

// app holds the wired dependencies shared by all commands.
type app struct {
	cfg     *config.Config
	store   *store.Store
	source  strapi.Client
	target  strapi.Client
	fetcher *snapshot.Fetcher
}

func newApp(opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "load config", Err: err}
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "open store", Err: err}
	}

	return &app{
		cfg:     cfg,
		store:   st,
		source:  strapi.NewHTTPClient(cfg.Source),
		target:  strapi.NewHTTPClient(cfg.Target),
		fetcher: &snapshot.Fetcher{Store: st, TTL: cfg.SnapshotTTL},
	}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
}

// comparison is one full compare of both instances: per-content-type
// results plus the media pseudo-type, with the snapshots they came
// from.
type comparison struct {
	source  *snapshot.Snapshot
	target  *snapshot.Snapshot
	results map[string][]compare.Result
	order   []string
}

// loadComparison fetches both snapshots (through the TTL cache),
// verifies schema compatibility and classifies every record.
func (a *app) loadComparison(ctx context.Context, refresh bool) (*comparison, error) {
	src, err := a.fetcher.Load(ctx, a.source, refresh)
	if err != nil {
		return nil, err
	}
	dst, err := a.fetcher.Load(ctx, a.target, refresh)
	if err != nil {
		return nil, err
	}

	if incompat := schema.CheckCompatibility(src.ContentTypes, dst.ContentTypes); len(incompat) > 0 {
		msg := fmt.Sprintf("%s: %d incompatible field(s), first: %s",
			run.ErrCodeSchemaIncompatible, len(incompat), incompat[0])
		return nil, NewExitError(ExitFailure, msg)
	}

	cmp := &comparison{
		source:  src,
		target:  dst,
		results: make(map[string][]compare.Result),
	}

	for _, ct := range src.ContentTypes {
		sourceRecs, err := compare.NewRecords(src.Entries[ct.UID])
		if err != nil {
			return nil, fmt.Errorf("source records of %s: %w", ct.UID, err)
		}
		targetRecs, err := compare.NewRecords(dst.Entries[ct.UID])
		if err != nil {
			return nil, fmt.Errorf("target records of %s: %w", ct.UID, err)
		}

		mappings, err := a.store.Mappings(ctx, a.target.InstanceID(), ct.UID)
		if err != nil {
			return nil, err
		}

		cmp.results[ct.UID] = compare.Records(ct.UID, sourceRecs, targetRecs, mappings)
		cmp.order = append(cmp.order, ct.UID)
	}

	fileResults, err := a.compareFiles(ctx, src, dst)
	if err != nil {
		return nil, err
	}
	cmp.results[compare.FilesContentType] = fileResults
	cmp.order = append(cmp.order, compare.FilesContentType)

	sort.Strings(cmp.order)
	return cmp, nil
}

// compareFiles classifies media records, honoring persisted mappings,
// operator associations and the exclusion list.
func (a *app) compareFiles(ctx context.Context, src, dst *snapshot.Snapshot) ([]compare.Result, error) {
	sourceRecs, err := compare.NewRecords(src.Files)
	if err != nil {
		return nil, fmt.Errorf("source files: %w", err)
	}
	targetRecs, err := compare.NewRecords(dst.Files)
	if err != nil {
		return nil, fmt.Errorf("target files: %w", err)
	}

	mappings, err := a.store.Mappings(ctx, a.target.InstanceID(), compare.FilesContentType)
	if err != nil {
		return nil, err
	}
	associations, err := a.store.FileAssociations(ctx, a.source.InstanceID(), a.target.InstanceID())
	if err != nil {
		return nil, err
	}
	// Explicit associations override persisted mappings.
	merged := make(map[string]string, len(mappings)+len(associations))
	for k, v := range mappings {
		merged[k] = v
	}
	for k, v := range associations {
		merged[k] = v
	}

	excluded, err := a.store.FileExclusions(ctx)
	if err != nil {
		return nil, err
	}

	return compare.Files(sourceRecs, targetRecs, merged, excluded), nil
}

// buildItems joins the persisted selections of a merge request with
// the comparison and extracts each item's links.
func (a *app) buildItems(ctx context.Context, mergeRequestID string, cmp *comparison) ([]plan.Item, map[plan.NodeKey]bool, error) {
	rows, err := a.store.Selections(ctx, mergeRequestID)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, NewExitError(ExitCommandError,
			fmt.Sprintf("no selections recorded for merge request %s", mergeRequestID))
	}

	resultByKey := make(map[plan.NodeKey]compare.Result)
	existing := make(map[plan.NodeKey]bool)
	for uid, results := range cmp.results {
		for _, r := range results {
			resultByKey[plan.NodeKey{Table: uid, DocumentID: r.DocumentID()}] = r
			if r.Target != nil {
				existing[plan.NodeKey{Table: uid, DocumentID: r.DocumentID()}] = true
			}
		}
		mappings, err := a.store.Mappings(ctx, a.target.InstanceID(), uid)
		if err != nil {
			return nil, nil, err
		}
		for src := range mappings {
			existing[plan.NodeKey{Table: uid, DocumentID: src}] = true
		}
	}

	items := make([]plan.Item, 0, len(rows))
	for _, row := range rows {
		key := plan.NodeKey{Table: row.TableName, DocumentID: row.DocumentID}
		result, ok := resultByKey[key]
		if !ok {
			return nil, nil, NewExitError(ExitCommandError,
				fmt.Sprintf("selection %s does not match the current comparison; refresh and reselect", key))
		}

		item := plan.Item{
			Selection: plan.Selection{TableName: row.TableName, DocumentID: row.DocumentID, Direction: row.Direction},
			Result:    result,
		}

		if row.Direction != plan.ToDelete && row.TableName != compare.FilesContentType {
			ct, ok := cmp.source.ContentType(row.TableName)
			if !ok {
				return nil, nil, NewExitError(ExitCommandError,
					fmt.Sprintf("unknown content type %s in selection", row.TableName))
			}
			if result.Source != nil {
				item.Links = links.Extract(*result.Source, ct, cmp.source.Components)
			}
		}
		items = append(items, item)
	}

	return items, existing, nil
}
