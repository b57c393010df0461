package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-service/internal/domain/image"
	"media-service/internal/synology"
)

func TestRegistry_ResolveFallsBack(t *testing.T) {
	local := NewLocalDisk(t.TempDir())
	reg := NewRegistry(local)

	route, err := image.RouteFor(image.EntityFabric)
	require.NoError(t, err)
	require.Equal(t, image.KindFileStation, route.Backend)

	b, err := reg.Resolve(route)
	require.NoError(t, err)
	assert.Equal(t, image.KindLocal, b.Kind())
}

func TestRegistry_GetUnknownKind(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get(image.KindPhotos)
	assert.Error(t, err)
}

func TestLocalDisk_StoreWritesThumbnailAlongside(t *testing.T) {
	root := t.TempDir()
	b := NewLocalDisk(root)

	asset, err := b.Store(context.Background(), Object{
		Folder:      "/marketing/thuvienanh/fabrics/silk_f1",
		FileName:    "fabric-f1-1-tok-a.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("full"),
		Thumbnail:   []byte("small"),
	})
	require.NoError(t, err)

	assert.Equal(t, image.KindLocal, asset.Kind)
	assert.Equal(t, "/uploads/marketing/thuvienanh/fabrics/silk_f1/fabric-f1-1-tok-a.jpg", asset.PublicURL)
	assert.Equal(t, "/uploads/marketing/thuvienanh/fabrics/silk_f1/thumb_fabric-f1-1-tok-a.jpg", asset.ThumbnailURL)
	assert.Equal(t, int64(4), asset.SizeBytes)

	dir := filepath.Join(root, "marketing", "thuvienanh", "fabrics", "silk_f1")
	full, err := os.ReadFile(filepath.Join(dir, "fabric-f1-1-tok-a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("full"), full)

	thumb, err := os.ReadFile(filepath.Join(dir, "thumb_fabric-f1-1-tok-a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("small"), thumb)
}

func TestLocalDisk_RemoveDeletesBothRenditions(t *testing.T) {
	root := t.TempDir()
	b := NewLocalDisk(root)

	asset, err := b.Store(context.Background(), Object{
		Folder:    "fabrics",
		FileName:  "a.jpg",
		Data:      []byte("x"),
		Thumbnail: []byte("y"),
	})
	require.NoError(t, err)

	require.NoError(t, b.Remove(context.Background(), asset))

	_, err = os.Stat(filepath.Join(root, "fabrics", "a.jpg"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "fabrics", "thumb_a.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalDisk_RemoveMissingFileIsNoError(t *testing.T) {
	b := NewLocalDisk(t.TempDir())
	err := b.Remove(context.Background(), &image.StoredAsset{Path: "gone/a.jpg"})
	assert.NoError(t, err)
}

// nasFixture scripts the DSM endpoints used by the NAS-backed backends, both
// API flavors: always-successful auth, per-request replies keyed by api name.
type nasFixture struct {
	t       *testing.T
	uploads []string
	reply   func(api string, call int) string
	calls   map[string]int
}

func newNasFixture(t *testing.T) *nasFixture {
	return &nasFixture{
		t:     t,
		calls: map[string]int{},
		reply: func(string, int) string { return `{"success":true,"data":{}}` },
	}
}

func (f *nasFixture) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/webapi/query.cgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/webapi/auth.cgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"sid":"s1"}}`))
	})
	mux.HandleFunc("/webapi/entry.cgi", func(w http.ResponseWriter, r *http.Request) {
		api := r.URL.Query().Get("api")
		if api == "" {
			r.ParseForm()
			api = r.FormValue("api")
		}
		if api == "SYNO.FileStation.Upload" {
			require.NoError(f.t, r.ParseMultipartForm(32<<20))
			f.uploads = append(f.uploads, r.FormValue("path"))
		}
		f.calls[api]++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(f.reply(api, f.calls[api])))
	})
	mux.HandleFunc("/photo/webapi/auth.cgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"sid":"p1"}}`))
	})
	mux.HandleFunc("/photo/webapi/entry.cgi", func(w http.ResponseWriter, r *http.Request) {
		api := r.URL.Query().Get("api")
		if api == "" {
			r.ParseForm()
			api = r.FormValue("api")
		}
		if api == "SYNO.API.Info" {
			w.Write([]byte(`{"success":true}`))
			return
		}
		f.calls[api]++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(f.reply(api, f.calls[api])))
	})
	srv := httptest.NewServer(mux)
	f.t.Cleanup(srv.Close)
	return srv
}

func newFileStationClient(t *testing.T, srv *httptest.Server) *synology.FileStation {
	m := synology.NewSessionManager(synology.FlavorFileStation, []string{srv.URL}, "u", "p", 5*time.Second)
	return synology.NewFileStation(m, srv.Client())
}

func newPhotosClient(t *testing.T, srv *httptest.Server) *synology.Photos {
	m := synology.NewSessionManager(synology.FlavorPhotos, []string{srv.URL}, "u", "p", 5*time.Second)
	return synology.NewPhotos(m, srv.Client())
}

func TestFileStationBackend_StoreBuildsProxyURLs(t *testing.T) {
	f := newNasFixture(t)
	srv := f.server()
	b := NewFileStationBackend(newFileStationClient(t, srv))

	asset, err := b.Store(context.Background(), Object{
		Folder:      "/marketing/thuvienanh/fabrics/silk_f1",
		FileName:    "a.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("data"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/marketing/thuvienanh/fabrics/silk_f1/a.jpg", asset.Path)
	assert.Contains(t, asset.PublicURL, "/api/synology/file-proxy?path=")
	assert.Contains(t, asset.ThumbnailURL, "thumbnail=true")
	assert.Equal(t, []string{"/marketing/thuvienanh/fabrics/silk_f1"}, f.uploads)
}

func TestFileStationBackend_RetriesTransientFailure(t *testing.T) {
	f := newNasFixture(t)
	f.reply = func(api string, call int) string {
		if api == "SYNO.FileStation.Upload" && call == 1 {
			return `{"success":false,"error":{"code":407}}`
		}
		return `{"success":true,"data":{}}`
	}
	srv := f.server()
	b := NewFileStationBackend(newFileStationClient(t, srv))
	b.retry.backoff = time.Millisecond

	asset, err := b.Store(context.Background(), Object{
		Folder:      "/marketing/thuvienanh/fabrics/silk_f1",
		FileName:    "a.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("data"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/marketing/thuvienanh/fabrics/silk_f1/a.jpg", asset.Path)
	assert.Equal(t, 2, f.calls["SYNO.FileStation.Upload"])
}

func TestPhotosBackend_RetriesTransientUploadFailure(t *testing.T) {
	f := newNasFixture(t)
	f.reply = func(api string, call int) string {
		if api == "SYNO.FotoTeam.Upload.Item" && call == 1 {
			return `{"success":false,"error":{"code":407}}`
		}
		return `{"success":true,"data":{"id":777,"filename":"a.jpg"}}`
	}
	srv := f.server()
	b := NewPhotosBackend(newPhotosClient(t, srv), 5)
	b.retry.backoff = time.Millisecond

	asset, err := b.Store(context.Background(), Object{
		FileName:    "a.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("data"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(777), asset.RemoteID)
	assert.Equal(t, 2, f.calls["SYNO.FotoTeam.Upload.Item"])
}

func TestSmbBackend_CollapsesToSafeRootOnMissingFolder(t *testing.T) {
	f := newNasFixture(t)
	// The first upload lands on a share folder that does not exist; the
	// retry must collapse the destination to the safe root.
	f.reply = func(api string, call int) string {
		if api == "SYNO.FileStation.Upload" && call == 1 {
			return `{"success":false,"error":{"code":408}}`
		}
		return `{"success":true,"data":{}}`
	}
	srv := f.server()
	b := NewSmbBackend(newFileStationClient(t, srv), "/marketing")
	b.retry.backoff = time.Millisecond

	asset, err := b.Store(context.Background(), Object{
		Folder:      "/marketing/thuvienanh/albums/deep_a9",
		FileName:    "a.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("data"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/marketing/a.jpg", asset.Path)
	assert.Equal(t, []string{"/marketing/thuvienanh/albums/deep_a9", "/marketing"}, f.uploads)
}

func TestSmbBackend_GivesUpAfterRetries(t *testing.T) {
	f := newNasFixture(t)
	f.reply = func(api string, call int) string {
		return `{"success":false,"error":{"code":407}}`
	}
	srv := f.server()
	b := NewSmbBackend(newFileStationClient(t, srv), "/marketing")
	b.retry.backoff = time.Millisecond

	_, err := b.Store(context.Background(), Object{
		Folder:   "/marketing/thuvienanh/albums/a_1",
		FileName: "a.jpg",
		Data:     []byte("x"),
	})
	require.Error(t, err)
	assert.Equal(t, 3, f.calls["SYNO.FileStation.CreateFolder"])
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "fabrics/a.jpg", objectKey("/fabrics/", "a.jpg"))
	assert.Equal(t, "a.jpg", objectKey("", "a.jpg"))
}
