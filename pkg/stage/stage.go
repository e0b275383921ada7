// Package stage holds the two Superstore pipeline stages and registers them
// as assets: ingest the raw file into a prepared copy, then inject the
// catalog's defects into an activity dataset.
package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wdm0006/smudge/pkg/asset"
	"github.com/wdm0006/smudge/pkg/catalog"
	"github.com/wdm0006/smudge/pkg/dataset"
	"github.com/wdm0006/smudge/pkg/defect"
	"github.com/wdm0006/smudge/pkg/manifest"
	"github.com/wdm0006/smudge/pkg/metrics"
	"github.com/wdm0006/smudge/pkg/profile"
	sm "github.com/wdm0006/smudge/pkg/smudge"
	"github.com/wdm0006/smudge/pkg/superstore"
)

const (
	AssetRaw      = "superstore_raw"
	AssetActivity = "superstore_activity_dataset"

	GroupIngestion = "ingestion"
	GroupTransform = "transform"
)

// Options configures both stages. Zero values fall back to the default
// catalog, the production random source, a 5-row preview and no manifest.
type Options struct {
	Paths        superstore.Paths
	Catalog      *catalog.Catalog
	PreviewRows  int
	Rand         defect.Rand
	ManifestPath string
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) previewRows() int {
	if o.PreviewRows <= 0 {
		return profile.DefaultPreviewRows
	}
	return o.PreviewRows
}

// Ingest loads the raw file against the Superstore schema and writes it
// unchanged to the prepared path. The result value is the loaded frame.
func Ingest(ctx context.Context, opt Options) (asset.Result, error) {
	if err := ctx.Err(); err != nil {
		return asset.Result{}, err
	}
	logger := opt.logger().Named("ingest")
	f, err := dataset.Load(opt.Paths.Raw, superstore.Schema())
	if err != nil {
		return asset.Result{}, err
	}
	if opt.Metrics != nil {
		opt.Metrics.RowsRead(AssetRaw, f.Rows())
	}
	if err := dataset.Save(opt.Paths.Prepared, f); err != nil {
		return asset.Result{}, err
	}
	if opt.Metrics != nil {
		opt.Metrics.RowsWritten(AssetRaw, f.Rows())
	}
	logger.Info("prepared dataset written",
		zap.String("from", opt.Paths.Raw),
		zap.String("to", opt.Paths.Prepared),
		zap.Int("rows", f.Rows()),
		zap.Int("cols", f.Cols()))
	return asset.Result{
		Metadata: asset.Metadata{
			"row_count": asset.Int(int64(f.Rows())),
			"preview":   asset.Markdown(profile.Preview(f, opt.previewRows())),
		},
		Value: f,
	}, nil
}

// Inject loads the prepared file, runs the catalog over it and writes the
// activity file. Every changed cell is journaled and, when ManifestPath is
// set, stored as one manifest run. The result value is the dirty frame.
func Inject(ctx context.Context, opt Options) (asset.Result, error) {
	if err := ctx.Err(); err != nil {
		return asset.Result{}, err
	}
	logger := opt.logger().Named("inject")
	cat := opt.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	started := time.Now()

	f, err := dataset.Load(opt.Paths.Prepared, superstore.Schema())
	if err != nil {
		return asset.Result{}, err
	}
	if opt.Metrics != nil {
		opt.Metrics.RowsRead(AssetActivity, f.Rows())
	}
	before := profile.Of(f)

	journal := &defect.Journal{}
	p, err := cat.Build(catalog.BuildOptions{Rand: opt.Rand, Recorder: journal, Logger: logger})
	if err != nil {
		return asset.Result{}, err
	}
	out, err := p.Run(ctx, f)
	if err != nil {
		return asset.Result{}, fmt.Errorf("inject %s: %w", cat.Name, err)
	}
	if out.Rows() != before.Rows {
		return asset.Result{}, fmt.Errorf("inject %s: row count changed from %d to %d", cat.Name, before.Rows, out.Rows())
	}
	if err := dataset.Save(opt.Paths.Activity, out); err != nil {
		return asset.Result{}, err
	}
	counts := journal.Counts()
	if opt.Metrics != nil {
		opt.Metrics.RowsWritten(AssetActivity, out.Rows())
		opt.Metrics.Defects(counts)
	}

	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return asset.Result{}, err
	}
	md := asset.Metadata{
		"row_count":    asset.Int(int64(out.Rows())),
		"defect_count": asset.Int(int64(journal.Len())),
		"defects":      asset.JSON(string(countsJSON)),
		"null_changes": asset.Text(profile.FormatNullChanges(profile.NullDiff(before, profile.Of(out)))),
		"preview":      asset.Markdown(profile.Preview(out, opt.previewRows())),
	}

	if opt.ManifestPath != "" {
		run, err := saveManifest(ctx, opt.ManifestPath, manifest.Run{
			Catalog:   cat.Name,
			Source:    opt.Paths.Prepared,
			Output:    opt.Paths.Activity,
			StartedAt: started,
			Rows:      out.Rows(),
		}, journal.Records())
		if err != nil {
			return asset.Result{}, err
		}
		md["run_id"] = asset.Text(run.ID)
		logger.Info("manifest saved", zap.String("path", opt.ManifestPath), zap.String("run_id", run.ID))
	}

	logger.Info("activity dataset written",
		zap.String("catalog", cat.Name),
		zap.String("to", opt.Paths.Activity),
		zap.Int("rows", out.Rows()),
		zap.Int("mutated", journal.Len()))
	return asset.Result{Metadata: md, Value: out}, nil
}

func saveManifest(ctx context.Context, path string, run manifest.Run, records []defect.Record) (manifest.Run, error) {
	store, err := manifest.Open(ctx, path)
	if err != nil {
		return run, fmt.Errorf("manifest %s: %w", path, err)
	}
	defer func() { _ = store.Close() }()
	run, err = store.Save(ctx, run, records)
	if err != nil {
		return run, fmt.Errorf("manifest %s: %w", path, err)
	}
	return run, nil
}

// Definitions registers ingest and injection with the injection stage
// depending on ingest. Metrics, when set, observe every materialization.
func Definitions(opt Options) (*asset.Definitions, error) {
	d, err := asset.NewDefinitions(
		asset.Asset{
			Name:        AssetRaw,
			Group:       GroupIngestion,
			Description: "Superstore source loaded with its declared schema and written as the prepared dataset.",
			Materialize: func(ctx context.Context) (asset.Result, error) { return Ingest(ctx, opt) },
		},
		asset.Asset{
			Name:        AssetActivity,
			Group:       GroupTransform,
			Description: "Prepared dataset with the defect catalog applied.",
			Deps:        []string{AssetRaw},
			Materialize: func(ctx context.Context) (asset.Result, error) { return Inject(ctx, opt) },
		},
	)
	if err != nil {
		return nil, err
	}
	d.WithLogger(opt.logger().Named("assets"))
	if opt.Metrics != nil {
		d.OnMaterialized(opt.Metrics.Observe)
	}
	return d, nil
}

// Frame returns the table a materialization produced, if any.
func Frame(m asset.Materialization) (*sm.Frame, bool) {
	f, ok := m.Result.Value.(*sm.Frame)
	return f, ok
}
