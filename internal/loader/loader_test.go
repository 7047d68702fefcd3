package loader

import (
	"database/sql"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/rocprofvis/datamodel/internal/database"
	"github.com/rocprofvis/datamodel/internal/datamodel"
	"github.com/rocprofvis/datamodel/pkg/types"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

// newFixtureDatabase opens a modern-rocprof-shaped in-memory SQLite
// database seeded with one CPU-region track's worth of rows, matching
// the schema internal/database/querybuilder.go expects.
func newFixtureDatabase(t *testing.T) *database.Database {
	t.Helper()
	path := "file::memory:?cache=shared&_pragma=foreign_keys(0)"
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	ddl := []string{
		`CREATE TABLE rocpd_kernel_dispatch (id INTEGER, nid INTEGER, pid INTEGER, queueId INTEGER, start INTEGER, end INTEGER)`,
		`CREATE TABLE rocpd_region (id INTEGER, nid INTEGER, pid INTEGER, tid INTEGER, start INTEGER, end INTEGER)`,
		`CREATE TABLE rocpd_string (id INTEGER, string TEXT)`,
		`CREATE TABLE rocpd_kernel_symbol (id INTEGER, display_name TEXT)`,
		`CREATE TABLE rocpd_agent (id INTEGER, name TEXT)`,
		`INSERT INTO rocpd_region (id, nid, pid, tid, start, end) VALUES (1, 0, 1, 0, 100, 200)`,
		`INSERT INTO rocpd_region (id, nid, pid, tid, start, end) VALUES (2, 0, 1, 0, 300, 400)`,
		`INSERT INTO rocpd_kernel_dispatch (id, nid, pid, queueId, start, end) VALUES (10, 0, 1, 0, 150, 180)`,
		`INSERT INTO rocpd_string (id, string) VALUES (0, 'first')`,
		`INSERT INTO rocpd_kernel_symbol (id, display_name) VALUES (0, 'kernel_main')`,
		`INSERT INTO rocpd_agent (id, name) VALUES (0, 'gfx90a')`,
	}
	for _, stmt := range ddl {
		_, err := raw.Exec(stmt)
		require.NoError(t, err)
	}
	// raw stays open for the test's lifetime: a shared-cache :memory:
	// database is dropped once its last connection closes, and
	// database.Open below opens a second, independent connection.

	db, err := database.Open(path, types.SchemaModernRocprof, types.NewDbInstance(0, 0), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newBoundLoader(t *testing.T) (*Loader, *datamodel.Trace, *database.Database) {
	t.Helper()
	db := newFixtureDatabase(t)
	trace := datamodel.NewTrace(testLogger())
	db.BindTrace(trace)
	return New(trace, db, testLogger(), nil, nil), trace, db
}

func TestReadMetadataAsyncPopulatesTracksAndStrings(t *testing.T) {
	l, trace, _ := newBoundLoader(t)

	future := l.ReadMetadataAsync(nil)
	result := future.Wait(5000)

	require.Equal(t, types.Success, result)
	assert.True(t, trace.MetadataLoaded())
	assert.Equal(t, 2, trace.NumTracks(), "one CPU-region track, one kernel-dispatch track")

	start, end, ok := trace.TimeRange()
	require.True(t, ok)
	assert.Equal(t, types.Timestamp(100), start)
	assert.Equal(t, types.Timestamp(400), end)

	assert.Greater(t, trace.StringPoolLen(), 1, "sentinel plus interned strings")
	assert.Greater(t, l.SymbolsOffset(), 0)
}

func TestReadMetadataAsyncIsIdempotent(t *testing.T) {
	l, trace, _ := newBoundLoader(t)

	require.Equal(t, types.Success, l.ReadMetadataAsync(nil).Wait(5000))
	firstCount := trace.NumTracks()

	require.Equal(t, types.Success, l.ReadMetadataAsync(nil).Wait(5000))
	assert.Equal(t, firstCount, trace.NumTracks(), "re-running metadata load must not duplicate tracks")
}

func TestReadTraceSliceAsyncRequiresMetadataLoaded(t *testing.T) {
	l, _, _ := newBoundLoader(t)
	result := l.ReadTraceSliceAsync(0, 1000, []types.TrackId{0}, nil).Wait(5000)
	assert.Equal(t, types.NotSupported, result)
}

func TestReadTraceSliceAsyncLoadsEventsWithinWindow(t *testing.T) {
	l, trace, _ := newBoundLoader(t)
	require.Equal(t, types.Success, l.ReadMetadataAsync(nil).Wait(5000))

	var cpuTrackID types.TrackId
	for _, tr := range trace.Tracks() {
		if tr.Category() == types.TrackCPURegion {
			cpuTrackID = tr.ID()
		}
	}

	result := l.ReadTraceSliceAsync(0, 1000, []types.TrackId{cpuTrackID}, nil).Wait(5000)
	require.Equal(t, types.Success, result)

	track, ok := trace.Track(cpuTrackID)
	require.True(t, ok)
	slice, ok := track.FindSlice(0, 1000)
	require.True(t, ok)
	assert.True(t, slice.IsComplete())
	assert.Equal(t, 2, slice.NumRecords())
}

func TestReadTraceSliceAsyncDedupsConcurrentWindow(t *testing.T) {
	l, trace, _ := newBoundLoader(t)
	require.Equal(t, types.Success, l.ReadMetadataAsync(nil).Wait(5000))

	var cpuTrackID types.TrackId
	for _, tr := range trace.Tracks() {
		if tr.Category() == types.TrackCPURegion {
			cpuTrackID = tr.ID()
		}
	}

	require.Equal(t, types.Success, l.ReadTraceSliceAsync(0, 1000, []types.TrackId{cpuTrackID}, nil).Wait(5000))
	track, _ := trace.Track(cpuTrackID)
	firstSlice, _ := track.FindSlice(0, 1000)

	require.Equal(t, types.Success, l.ReadTraceSliceAsync(0, 1000, []types.TrackId{cpuTrackID}, nil).Wait(5000))
	secondSlice, _ := track.FindSlice(0, 1000)

	assert.Same(t, firstSlice.(*datamodel.EventTrackSlice), secondSlice.(*datamodel.EventTrackSlice), "same window must reuse the existing slice, not reload it")
}

func TestExecuteQueryAsyncMaterializesAndCachesTable(t *testing.T) {
	l, _, _ := newBoundLoader(t)
	sqlText := "SELECT id, name FROM rocpd_agent"

	result := l.ExecuteQueryAsync(sqlText, "agents").Wait(5000)
	require.Equal(t, types.Success, result)

	result = l.ExecuteQueryAsync(sqlText, "agents again").Wait(5000)
	require.Equal(t, types.Success, result, "second identical query must hit the cached table, not re-execute")
}

func TestReadEventPropertyAsyncExtDataPopulatesAttributesFromSourceRow(t *testing.T) {
	l, trace, _ := newBoundLoader(t)
	id := types.NewEventId(1, types.OpLaunch)

	result := l.ReadEventPropertyAsync(types.PropExtData, id, nil).Wait(5000)
	require.Equal(t, types.Success, result)

	ext := trace.EventExtData(id)
	require.Greater(t, ext.NumAttributes(), 0, "every non-id column of rocpd_region row 1 becomes an attribute")

	v, res := ext.Get("start")
	require.Equal(t, types.Success, res)
	assert.Equal(t, "100", v)
}

func TestReadEventPropertyAsyncExtDataDoesNotErrorOnMissingRow(t *testing.T) {
	l, trace, _ := newBoundLoader(t)
	id := types.NewEventId(999, types.OpLaunch)
	result := l.ReadEventPropertyAsync(types.PropExtData, id, nil).Wait(5000)
	assert.Equal(t, types.Success, result)
	assert.Equal(t, 0, trace.EventExtData(id).NumAttributes())
}

func TestReadEventPropertyAsyncInvalidKind(t *testing.T) {
	l, _, _ := newBoundLoader(t)
	id := types.NewEventId(1, types.OpDispatch)
	result := l.ReadEventPropertyAsync(types.EventPropertyType(99), id, nil).Wait(5000)
	assert.Equal(t, types.InvalidParameter, result)
}

func TestDbFailureDowngradesToDbAccessFailed(t *testing.T) {
	l, _, db := newBoundLoader(t)
	require.NoError(t, db.Close())

	result := l.ReadMetadataAsync(nil).Wait(5000)
	assert.Equal(t, types.DbAccessFailed, result)
}
