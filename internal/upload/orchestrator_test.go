package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "media-service/internal/domain/image"
	"media-service/internal/imaging"
	"media-service/internal/naming"
	"media-service/internal/storage"
	apperrors "media-service/pkg/errors"
)

type fakeBackend struct {
	kind     domain.StorageKind
	storeErr func(call int) error
	stored   []storage.Object
	removed  []string
}

func (b *fakeBackend) Kind() domain.StorageKind { return b.kind }

func (b *fakeBackend) Store(ctx context.Context, obj storage.Object) (*domain.StoredAsset, error) {
	if b.storeErr != nil {
		if err := b.storeErr(len(b.stored) + len(b.removed) + 1); err != nil {
			return nil, err
		}
	}
	b.stored = append(b.stored, obj)
	return &domain.StoredAsset{
		Kind:         b.kind,
		Path:         obj.Path(),
		PublicURL:    "/fake/" + obj.FileName,
		ThumbnailURL: "/fake/thumb/" + obj.FileName,
		SizeBytes:    int64(len(obj.Data)),
		CreatedAt:    time.Now(),
	}, nil
}

func (b *fakeBackend) Remove(ctx context.Context, asset *domain.StoredAsset) error {
	b.removed = append(b.removed, asset.Path)
	return nil
}

type fakeRecords struct {
	addErr  error
	added   []domain.Record
	covers  map[string]string
	nextID  int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{covers: map[string]string{}}
}

func (r *fakeRecords) Add(ctx context.Context, route domain.Route, rec *domain.Record) (*domain.Record, error) {
	if r.addErr != nil {
		return nil, r.addErr
	}
	r.nextID++
	stored := *rec
	stored.ID = fmt.Sprintf("rec-%d", r.nextID)
	stored.SortOrder = r.nextID
	stored.AddedAt = time.Now()
	r.added = append(r.added, stored)
	return &stored, nil
}

func (r *fakeRecords) SetCover(ctx context.Context, route domain.Route, entityID, imageURL string) error {
	r.covers[entityID] = imageURL
	return nil
}

func (r *fakeRecords) List(ctx context.Context, route domain.Route, entityID string) ([]domain.Record, error) {
	return r.added, nil
}

func (r *fakeRecords) Get(ctx context.Context, route domain.Route, id string) (*domain.Record, error) {
	for i := range r.added {
		if r.added[i].ID == id {
			return &r.added[i], nil
		}
	}
	return nil, apperrors.NotFound("image not found")
}

func (r *fakeRecords) Delete(ctx context.Context, route domain.Route, id string) error {
	return nil
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newTestOrchestrator(records *fakeRecords, backends ...storage.Backend) *Orchestrator {
	return NewOrchestrator(
		imaging.NewTranscoder(5<<20, 1920),
		naming.NewPolicy("/marketing/thuvienanh"),
		storage.NewRegistry(backends...),
		records,
		10<<20,
		20,
		400,
	)
}

func fabricRequest(t *testing.T, files ...domain.RawFile) domain.UploadRequest {
	t.Helper()
	return domain.UploadRequest{
		EntityType: domain.EntityFabric,
		EntityID:   "f1",
		EntityName: "Silk Taffeta",
		Files:      files,
	}
}

func TestUpload_BatchSucceeds(t *testing.T) {
	fs := &fakeBackend{kind: domain.KindFileStation}
	records := newFakeRecords()
	o := newTestOrchestrator(records, fs)

	jpg := testJPEG(t)
	result, err := o.Upload(context.Background(), fabricRequest(t,
		domain.RawFile{Name: "one.jpg", Bytes: jpg},
		domain.RawFile{Name: "two.jpg", Bytes: jpg},
	))
	require.NoError(t, err)

	assert.Len(t, result.Uploaded, 2)
	assert.Empty(t, result.Failed)
	assert.Len(t, fs.stored, 2)
	assert.Equal(t, "/marketing/thuvienanh/fabrics/silk-taffeta_f1", fs.stored[0].Folder)
	assert.Equal(t, 1, result.Uploaded[0].SortOrder)
	assert.Equal(t, 2, result.Uploaded[1].SortOrder)
}

func TestUpload_BadFileDoesNotAbortBatch(t *testing.T) {
	fs := &fakeBackend{kind: domain.KindFileStation}
	records := newFakeRecords()
	o := newTestOrchestrator(records, fs)

	result, err := o.Upload(context.Background(), fabricRequest(t,
		domain.RawFile{Name: "broken.jpg", Bytes: []byte("not an image")},
		domain.RawFile{Name: "good.jpg", Bytes: testJPEG(t)},
	))
	require.NoError(t, err)

	require.Len(t, result.Failed, 1)
	assert.Equal(t, "broken.jpg", result.Failed[0].FileName)
	assert.NotEmpty(t, result.Failed[0].Reason)
	assert.Len(t, result.Uploaded, 1)
	assert.Equal(t, "good.jpg", fs.stored[0].FileName[len(fs.stored[0].FileName)-8:])
}

func TestUpload_AuthFailureFallsBackForWholeBatch(t *testing.T) {
	fs := &fakeBackend{
		kind:     domain.KindFileStation,
		storeErr: func(int) error { return apperrors.NasAuth("login rejected", nil) },
	}
	local := &fakeBackend{kind: domain.KindLocal}
	records := newFakeRecords()
	o := newTestOrchestrator(records, fs, local)

	jpg := testJPEG(t)
	result, err := o.Upload(context.Background(), fabricRequest(t,
		domain.RawFile{Name: "one.jpg", Bytes: jpg},
		domain.RawFile{Name: "two.jpg", Bytes: jpg},
	))
	require.NoError(t, err)

	assert.Empty(t, result.Failed)
	assert.Len(t, result.Uploaded, 2)
	assert.Empty(t, fs.stored)
	assert.Len(t, local.stored, 2, "both files must land on the fallback backend")
}

func TestUpload_AuthFailureWithoutFallbackFailsFast(t *testing.T) {
	calls := 0
	fs := &fakeBackend{
		kind: domain.KindFileStation,
		storeErr: func(int) error {
			calls++
			return apperrors.NasAuth("login rejected", nil)
		},
	}
	records := newFakeRecords()
	o := newTestOrchestrator(records, fs)

	jpg := testJPEG(t)
	result, err := o.Upload(context.Background(), fabricRequest(t,
		domain.RawFile{Name: "one.jpg", Bytes: jpg},
		domain.RawFile{Name: "two.jpg", Bytes: jpg},
		domain.RawFile{Name: "three.jpg", Bytes: jpg},
	))
	require.NoError(t, err)

	assert.Empty(t, result.Uploaded)
	assert.Len(t, result.Failed, 3)
	assert.Equal(t, 1, calls, "authentication is checked once per batch")
}

func TestUpload_PersistFailureTriggersCompensatingDelete(t *testing.T) {
	fs := &fakeBackend{kind: domain.KindFileStation}
	records := newFakeRecords()
	records.addErr = apperrors.Persistence("insert failed", nil)
	o := newTestOrchestrator(records, fs)

	result, err := o.Upload(context.Background(), fabricRequest(t,
		domain.RawFile{Name: "one.jpg", Bytes: testJPEG(t)},
	))
	require.NoError(t, err)

	assert.Empty(t, result.Uploaded)
	require.Len(t, result.Failed, 1)
	assert.Len(t, fs.removed, 1, "stored bytes must be rolled back")
}

func TestUpload_CoverEntitySetsCoverOnce(t *testing.T) {
	fs := &fakeBackend{kind: domain.KindFileStation}
	records := newFakeRecords()
	o := newTestOrchestrator(records, fs)

	jpg := testJPEG(t)
	result, err := o.Upload(context.Background(), domain.UploadRequest{
		EntityType: domain.EntityCollection,
		EntityID:   "c7",
		EntityName: "Spring 2026",
		Files: []domain.RawFile{
			{Name: "cover.jpg", Bytes: jpg},
			{Name: "extra.jpg", Bytes: jpg},
		},
	})
	require.NoError(t, err)

	assert.Len(t, result.Uploaded, 2)
	require.Contains(t, records.covers, "c7")
	assert.Contains(t, records.covers["c7"], "cover")
	assert.Empty(t, records.added, "cover entities write no image rows")
}

func TestUpload_EmptyBatchRejected(t *testing.T) {
	o := newTestOrchestrator(newFakeRecords(), &fakeBackend{kind: domain.KindFileStation})

	_, err := o.Upload(context.Background(), fabricRequest(t))
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestUpload_OversizedBatchRejected(t *testing.T) {
	o := newTestOrchestrator(newFakeRecords(), &fakeBackend{kind: domain.KindFileStation})

	files := make([]domain.RawFile, 21)
	for i := range files {
		files[i] = domain.RawFile{Name: fmt.Sprintf("f%d.jpg", i), Bytes: []byte("x")}
	}
	_, err := o.Upload(context.Background(), fabricRequest(t, files...))
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}
