package naming

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"media-service/internal/domain/image"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Photo (2024).JPG", "photo-2024.jpg"},
		{"ảnh đẹp.png", "nh-p.png"},
		{"already-clean.webp", "already-clean.webp"},
		{"___", "file"},
		{"a  b   c.jpeg", "a-b-c.jpeg"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "input %q", tt.in)
	}
}

func TestFileName_DistinctTimestamps(t *testing.T) {
	t0 := time.UnixMilli(1700000000000)
	t1 := time.UnixMilli(1700000000001)

	a := fileNameAt(image.EntityFabric, "abc", "photo.jpg", t0, "aaaaaaaa")
	b := fileNameAt(image.EntityFabric, "abc", "photo.jpg", t1, "aaaaaaaa")
	assert.NotEqual(t, a, b)
}

func TestFileName_SameMillisecondStillUnique(t *testing.T) {
	// The random token must force inequality when timestamps collide.
	a := FileName(image.EntityFabric, "abc", "photo.jpg")
	b := FileName(image.EntityFabric, "abc", "photo.jpg")
	assert.NotEqual(t, a, b)
}

func TestFileName_Shape(t *testing.T) {
	name := fileNameAt(image.EntityAlbum, "album-1", "My Photo.JPG", time.UnixMilli(42), "deadbeef")
	assert.Equal(t, "album-album-1-42-deadbeef-my-photo.jpg", name)
}

func TestDestinationPath_Subcategory(t *testing.T) {
	p := NewPolicy("/marketing/thuvienanh")

	got, err := p.DestinationPath(image.EntityFabric, "abc", "", "moq")
	assert.NoError(t, err)
	assert.Equal(t, "/marketing/thuvienanh/fabrics/moq", got)
}

func TestDestinationPath_DerivedFolder(t *testing.T) {
	p := NewPolicy("/marketing/thuvienanh")

	got, err := p.DestinationPath(image.EntityAlbum, "album-1", "Spring Fabrics 2024", "")
	assert.NoError(t, err)
	assert.Equal(t, "/marketing/thuvienanh/albums/spring-fabrics-2024_album-1", got)
}

func TestDestinationPath_UnknownEntity(t *testing.T) {
	p := NewPolicy("/marketing/thuvienanh")

	_, err := p.DestinationPath(image.EntityType("sofa"), "x", "", "")
	assert.Error(t, err)
}

// Writer and reader must derive the same NAS path string from the same inputs.
func TestPathConvention_RoundTrip(t *testing.T) {
	p := NewPolicy("/marketing/thuvienanh")

	dest, err := p.DestinationPath(image.EntityFabric, "abc", "", "moq")
	assert.NoError(t, err)

	nasPath := dest + "/fabric-abc-42-deadbeef-photo.jpg"
	proxy := FileProxyPath(nasPath)

	assert.True(t, strings.HasPrefix(proxy, "/api/synology/file-proxy?path="))
	assert.Contains(t, proxy, "%2Fmarketing%2Fthuvienanh%2Ffabrics%2Fmoq%2F")
}

func TestFolderName_FallsBackWhenStripped(t *testing.T) {
	assert.Equal(t, "album_id1", FolderName("???", "id1"))
}

func TestImageProxyPath(t *testing.T) {
	got := ImageProxyPath(12345, "thumbnail", "m")
	assert.Equal(t, "/api/synology/image-proxy?id=12345&size=m&type=thumbnail", got)
}
