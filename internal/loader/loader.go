// Package loader implements the four asynchronous operations that
// populate a Trace from a bound Database: reading metadata, reading a
// time-windowed track slice, resolving an event-level property, and
// executing an ad-hoc query (spec §4.3). Each is fronted by a
// pkg/asyncjob.Future so the UI can poll, wait, or interrupt it.
package loader

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rocprofvis/datamodel/internal/database"
	"github.com/rocprofvis/datamodel/internal/datamodel"
	"github.com/rocprofvis/datamodel/pkg/asyncjob"
	"github.com/rocprofvis/datamodel/pkg/enginemetrics"
	"github.com/rocprofvis/datamodel/pkg/enginetracing"
	"github.com/rocprofvis/datamodel/pkg/errors"
	"github.com/rocprofvis/datamodel/pkg/fingerprint"
	"github.com/rocprofvis/datamodel/pkg/types"
)

// Loader drives every async request against one bound (Trace,
// Database) pair. It is the in-process analogue of the worker pool
// the teacher dispatches log batches through, here dispatching SQL
// statements instead (pkg/workerpool.WorkerPool in the teacher repo).
type Loader struct {
	trace   *datamodel.Trace
	db      *database.Database
	logger  *logrus.Logger
	metrics *enginemetrics.Metrics
	tracing *enginetracing.Manager

	symbolsOffset int
}

// SymbolsOffset returns the string-pool index at which kernel display
// names begin, recorded during the last ReadMetadataAsync's string
// pass (spec §4.3 step 1: "remember the current length as
// symbols_offset").
func (l *Loader) SymbolsOffset() int { return l.symbolsOffset }

// New constructs a Loader for an already-bound Trace/Database pair
// (Database.BindTrace must have been called first).
func New(trace *datamodel.Trace, db *database.Database, logger *logrus.Logger, metrics *enginemetrics.Metrics, tracing *enginetracing.Manager) *Loader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if metrics == nil {
		metrics = enginemetrics.NoOp()
	}
	return &Loader{trace: trace, db: db, logger: logger, metrics: metrics, tracing: tracing}
}

// dbFailure wraps a driver error into an EngineError and logs its
// structured fields before the caller downgrades it to the bare
// DbAccessFailed Result the public API returns (spec §7: the
// diagnostic causal chain stays internal to the engine).
func (l *Loader) dbFailure(op string, err error) types.Result {
	ee := errors.Wrap(types.DbAccessFailed, "loader", op, err)
	l.logger.WithFields(ee.ToFields()).Warn("loader operation failed")
	return types.DbAccessFailed
}

func (l *Loader) span(ctx context.Context, name string) (context.Context, func()) {
	if l.tracing == nil {
		return ctx, func() {}
	}
	ctx, span := l.tracing.Tracer().Start(ctx, name)
	return ctx, func() { span.End() }
}

// ReadMetadataAsync populates trace timings, topology, strings, and
// tracks (without records). ReadTraceSliceAsync returns NotSupported
// until it has completed; ReadEventPropertyAsync and ExecuteQueryAsync
// do not check Trace.MetadataLoaded (spec §4.3 step 1).
func (l *Loader) ReadMetadataAsync(progress asyncjob.ProgressFunc) *asyncjob.Future {
	future := asyncjob.New(l.db.Path(), progress, l.logger)
	future.Run(func(ctx context.Context, progress asyncjob.ProgressFunc) types.Result {
		ctx, end := l.span(ctx, enginetracing.OpReadMetadata)
		defer end()

		l.metrics.RequestsTotal.WithLabelValues("read_metadata").Inc()
		timer := enginemetrics.NewTimer(l.metrics.RequestDuration.WithLabelValues("read_metadata"))
		defer timer.ObserveDuration()

		progress(l.db.Path(), 5, types.Busy, "priming reference cache")
		if err := l.db.PrimeReferenceCache(ctx); err != nil {
			l.metrics.Errors.WithLabelValues("read_metadata").Inc()
			return l.dbFailure("prime_reference_cache", err)
		}

		progress(l.db.Path(), 20, types.Busy, "resolving trace time range")
		if err := l.loadTimeRange(ctx); err != nil {
			l.metrics.Errors.WithLabelValues("read_metadata").Inc()
			return l.dbFailure("load_time_range", err)
		}

		progress(l.db.Path(), 40, types.Busy, "enumerating tracks")
		for _, cat := range []types.TrackCategory{
			types.TrackCPURegion,
			types.TrackKernelDispatch,
			types.TrackMemoryCopy,
			types.TrackMemoryAllocate,
			types.TrackPMC,
		} {
			if future.Interrupted() {
				return types.Timeout
			}
			if err := l.loadTracksForCategory(ctx, cat); err != nil {
				l.metrics.Errors.WithLabelValues("read_metadata").Inc()
				return l.dbFailure("load_tracks_for_category", err)
			}
		}

		progress(l.db.Path(), 80, types.Busy, "interning strings")
		if err := l.loadStrings(ctx); err != nil {
			l.metrics.Errors.WithLabelValues("read_metadata").Inc()
			return l.dbFailure("load_strings", err)
		}

		l.db.Binding().FuncSetMetadataLoaded()
		l.metrics.TracksTotal.Set(float64(l.trace.NumTracks()))
		l.metrics.MemoryFootprint.Set(float64(l.trace.GetMemoryFootprint()))
		progress(l.db.Path(), 100, types.SuccessStatus, "metadata loaded")
		return types.Success
	})
	return future
}

// ReadTraceSliceAsync loads the [start, end) window for every track
// in selection. Duplicate concurrent requests for the same window
// observe the first slice and wait on its completion latch rather
// than racing to load it twice (spec §4.3 step 2, §8 property 3/9).
func (l *Loader) ReadTraceSliceAsync(start, end types.Timestamp, selection []types.TrackId, progress asyncjob.ProgressFunc) *asyncjob.Future {
	future := asyncjob.New(l.db.Path(), progress, l.logger)
	future.Run(func(ctx context.Context, progress asyncjob.ProgressFunc) types.Result {
		ctx, endSpan := l.span(ctx, enginetracing.OpReadTraceSlice)
		defer endSpan()

		l.metrics.RequestsTotal.WithLabelValues("read_slice").Inc()
		timer := enginemetrics.NewTimer(l.metrics.RequestDuration.WithLabelValues("read_slice"))
		defer timer.ObserveDuration()

		if !l.trace.MetadataLoaded() {
			return types.NotSupported
		}

		total := len(selection)
		for i, tid := range selection {
			if future.Interrupted() {
				return types.Timeout
			}
			track, ok := l.trace.Track(tid)
			if !ok {
				return types.InvalidParameter
			}
			if err := l.loadSliceForTrack(ctx, future, track, start, end); err != nil {
				l.metrics.Errors.WithLabelValues("read_slice").Inc()
				return l.dbFailure("load_slice_for_track", err)
			}
			if total > 0 {
				progress(l.db.Path(), 100*(i+1)/total, types.Busy, "loading track slice")
			}
		}
		l.metrics.MemoryFootprint.Set(float64(l.trace.GetMemoryFootprint()))
		return types.Success
	})
	return future
}

// loadSliceForTrack implements the dedup/completion-latch protocol
// from spec §4.3 step 2 for one track.
func (l *Loader) loadSliceForTrack(ctx context.Context, future *asyncjob.Future, track *datamodel.Track, start, end types.Timestamp) error {
	if existing, ok := track.FindSlice(start, end); ok {
		if existing.IsComplete() {
			return nil
		}
		existing.WaitComplete()
		return nil
	}

	slice := l.db.Binding().FuncAddSlice(track, start, end)

	nid, pid, thirdID := trackIdentifierColumns(track)
	q, args, err := database.SliceDataQuery(track.Category(), nid, pid, thirdID, start, end)
	if err != nil {
		slice.SetComplete()
		return err
	}

	op := trackCategoryOp(track.Category())
	rowCount := 0
	err = l.db.QueryRows(ctx, func() bool { return future.Interrupted() }, q, args, func(scan database.RowScanner) error {
		rec, scanErr := scanEventRow(scan, op)
		if scanErr != nil {
			return scanErr
		}
		l.db.Binding().FuncAddEventRecord(slice, rec)
		track.ObserveRecord(rec.Timestamp, 0, false)
		rowCount++
		return nil
	})
	if err != nil {
		if ctx.Err() != nil || future.Interrupted() {
			// partial results remain visible per spec §4.1's cancellation
			// semantics; only a slice with zero records gets cleaned up,
			// since records-before-cancellation must stay visible.
			if rowCount == 0 {
				l.db.Binding().FuncRemoveSlice(track, start, end)
			}
			slice.SetComplete()
			return nil
		}
		slice.SetComplete()
		return err
	}

	l.db.Binding().FuncCompleteSlice(slice)
	l.metrics.RowsTotal.WithLabelValues(track.Category().String()).Add(float64(rowCount))
	return nil
}

// ReadEventPropertyAsync resolves one of FlowTrace/StackTrace/ExtData
// for a single event id, deduping against what is already present
// (spec §4.3 step 3, §8 E5).
func (l *Loader) ReadEventPropertyAsync(kind types.EventPropertyType, eventID types.EventId, progress asyncjob.ProgressFunc) *asyncjob.Future {
	future := asyncjob.New(l.db.Path(), progress, l.logger)
	future.Run(func(ctx context.Context, progress asyncjob.ProgressFunc) types.Result {
		ctx, endSpan := l.span(ctx, enginetracing.OpReadEventProperty)
		defer endSpan()

		l.metrics.RequestsTotal.WithLabelValues("read_event_property").Inc()
		timer := enginemetrics.NewTimer(l.metrics.RequestDuration.WithLabelValues("read_event_property"))
		defer timer.ObserveDuration()

		if l.db.Binding().FuncCheckEventPropertyExists(kind, eventID) {
			return types.Success
		}

		var err error
		switch kind {
		case types.PropFlowTrace:
			err = l.loadFlowTrace(ctx, eventID)
		case types.PropStackTrace:
			err = l.loadStackTrace(ctx, eventID)
		case types.PropExtData:
			err = l.loadExtData(ctx, eventID)
		default:
			return types.InvalidParameter
		}
		if err != nil {
			l.metrics.Errors.WithLabelValues("read_event_property").Inc()
			return l.dbFailure("read_event_property", err)
		}
		progress(l.db.Path(), 100, types.SuccessStatus, "event property resolved")
		return types.Success
	})
	return future
}

// ExecuteQueryAsync runs an ad-hoc SQL query and materializes it into
// a QueryResultTable keyed by the query text's fingerprint, so
// repeated identical queries reuse the cached table (spec §4.3 step
// 4, §8 property 6).
func (l *Loader) ExecuteQueryAsync(sql string, description string, progress asyncjob.ProgressFunc) *asyncjob.Future {
	future := asyncjob.New(l.db.Path(), progress, l.logger)
	future.Run(func(ctx context.Context, progress asyncjob.ProgressFunc) types.Result {
		ctx, endSpan := l.span(ctx, enginetracing.OpExecuteQuery)
		defer endSpan()

		l.metrics.RequestsTotal.WithLabelValues("execute_query").Inc()
		timer := enginemetrics.NewTimer(l.metrics.RequestDuration.WithLabelValues("execute_query"))
		defer timer.ObserveDuration()

		tableID := fingerprint.Table(sql)
		if _, ok := l.db.Binding().FuncGetTable(tableID); ok {
			return types.Success
		}

		cols, err := l.db.QueryColumns(ctx, sql)
		if err != nil {
			l.metrics.Errors.WithLabelValues("execute_query").Inc()
			return l.dbFailure("query_columns", err)
		}
		tbl := l.db.Binding().FuncAddTable(tableID, cols)

		rowCount := 0
		err = l.db.QueryRows(ctx, nil, sql, nil, func(scan database.RowScanner) error {
			row, scanErr := scanGenericRow(scan, len(cols))
			if scanErr != nil {
				return scanErr
			}
			tbl.AppendRow(row)
			rowCount++
			return nil
		})
		if err != nil {
			l.metrics.Errors.WithLabelValues("execute_query").Inc()
			return l.dbFailure("query_rows", err)
		}
		l.logger.WithFields(logrus.Fields{"description": description, "rows": rowCount}).Debug("executed ad-hoc query")
		progress(l.db.Path(), 100, types.SuccessStatus, "query executed")
		return types.Success
	})
	return future
}

func trackIdentifierColumns(track *datamodel.Track) (nid, pid, third uint64) {
	if id, ok := track.Identifier().Find("node"); ok && !id.IsString {
		nid = id.Num
	}
	if id, ok := track.Identifier().Find("process"); ok && !id.IsString {
		pid = id.Num
	}
	if id, ok := track.Identifier().Find("thread"); ok && !id.IsString {
		third = id.Num
	} else if id, ok := track.Identifier().Find("queue"); ok && !id.IsString {
		third = id.Num
	}
	return
}
