package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chemstatilizer/chemstat-backend/internal/blob"
	"github.com/chemstatilizer/chemstat-backend/internal/logger"
	"github.com/chemstatilizer/chemstat-backend/internal/repos"
	"github.com/chemstatilizer/chemstat-backend/internal/tabular"
	"github.com/chemstatilizer/chemstat-backend/internal/types"
)

const sampleCSV = `Equipment Name,Type,Flowrate,Pressure,Temperature
Pump-1,Pump,120,5.2,110
Compressor-1,Compressor,95,8.4,95
Valve-1,Valve,60,4.1,105
HeatExchanger-1,HeatExchanger,150,6.2,130
Pump-2,Pump,132,5.6,118
Valve-2,Valve,58,4,102
Reactor-1,Reactor,140,7.5,140
Pump-3,Pump,125,5.3,115
Condenser-1,Condenser,160,6.8,125
Compressor-2,Compressor,100,8,98
HeatExchanger-2,HeatExchanger,155,6.3,132
Valve-3,Valve,62,4.2,107
Pump-4,Pump,130,5.9,119
Reactor-2,Reactor,145,7.2,138
Condenser-2,Condenser,165,6.9,128
`

type serviceFixture struct {
	svc   DatasetService
	repo  repos.DatasetRepo
	store blob.Store
}

func newServiceFixture(t *testing.T, retentionLimit int) *serviceFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&types.Dataset{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	store, err := blob.NewLocalStore(logger.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	repo := repos.NewDatasetRepo(gdb, logger.NewNop())
	return &serviceFixture{
		svc:   NewDatasetService(gdb, logger.NewNop(), repo, store, retentionLimit),
		repo:  repo,
		store: store,
	}
}

func TestIngestSampleDataset(t *testing.T) {
	f := newServiceFixture(t, 5)
	ctx := context.Background()

	ds, err := f.svc.Ingest(ctx, "sample_equipment_data.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if ds.RowCount != 15 {
		t.Fatalf("row count: want=15 got=%d", ds.RowCount)
	}
	summary, err := ds.GetSummary()
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if summary.Count != ds.RowCount {
		t.Fatalf("summary count: want=%d got=%d", ds.RowCount, summary.Count)
	}
	total := 0
	for _, n := range summary.TypeDistribution {
		total += n
	}
	if total != ds.RowCount {
		t.Fatalf("type distribution sum: want=%d got=%d", ds.RowCount, total)
	}
	for _, col := range tabular.NumericColumns {
		if summary.Min[col] > summary.Averages[col] || summary.Averages[col] > summary.Max[col] {
			t.Fatalf("%s: average outside min/max", col)
		}
	}

	raw, err := readBlob(ctx, f.store, ds.StorageKey)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if !strings.HasPrefix(string(raw), "Equipment Name,Type,Flowrate,Pressure,Temperature") {
		t.Fatalf("blob not canonicalized, starts with %q", string(raw[:40]))
	}
}

func TestIngestCanonicalizesLowercaseHeaders(t *testing.T) {
	f := newServiceFixture(t, 5)
	csv := "equipment name,type,flowrate,pressure,temperature\nPump-1,Pump,120,5.2,110\n"

	ds, err := f.svc.Ingest(context.Background(), "lower.csv", []byte(csv))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	raw, err := readBlob(context.Background(), f.store, ds.StorageKey)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if !strings.HasPrefix(string(raw), "Equipment Name,Type,Flowrate,Pressure,Temperature") {
		t.Fatalf("headers not canonicalized: %q", strings.SplitN(string(raw), "\n", 2)[0])
	}
}

func TestIngestValidationFailurePersistsNothing(t *testing.T) {
	f := newServiceFixture(t, 5)
	csv := "Equipment Name,Flowrate,Pressure,Temperature\nPump-1,120,5.2,110\n"

	_, err := f.svc.Ingest(context.Background(), "bad.csv", []byte(csv))

	var verr *tabular.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got=%v", err)
	}
	all, err := f.repo.ListRecent(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("nothing should be persisted, found %d records", len(all))
	}
}

func TestRetentionEvictsOldest(t *testing.T) {
	f := newServiceFixture(t, 5)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 6; i++ {
		ds, err := f.svc.Ingest(ctx, fmt.Sprintf("upload-%d.csv", i), []byte(sampleCSV))
		if err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		ids = append(ids, ds.ID)
	}

	remaining, err := f.svc.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 5 {
		t.Fatalf("retained count: want=5 got=%d", len(remaining))
	}
	for _, ds := range remaining {
		if ds.ID == ids[0] {
			t.Fatal("oldest dataset should have been evicted")
		}
	}

	_, err = f.svc.Get(ctx, ids[0])
	var nf *repos.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError for evicted dataset, got=%v", err)
	}
}

func TestRetentionEvictsBacklog(t *testing.T) {
	// With a cap of 2, a backlog of earlier uploads is swept in one go.
	f := newServiceFixture(t, 2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.svc.Ingest(ctx, fmt.Sprintf("u%d.csv", i), []byte(sampleCSV)); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	remaining, err := f.svc.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("retained count: want=2 got=%d", len(remaining))
	}
}
