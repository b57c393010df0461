package synology

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	fotoUploadAPI    = "SYNO.FotoTeam.Upload.Item"
	fotoBrowseAPI    = "SYNO.Foto.Browse.Folder"
	fotoItemAPI      = "SYNO.Foto.Browse.Item"
	fotoThumbnailAPI = "SYNO.Foto.Thumbnail"
	fotoDownloadAPI  = "SYNO.Foto.Download"
)

// Photos wraps the NAS photo-library API (SYNO.Foto.*). Items are addressed
// by NAS-assigned numeric ids, not paths, which is why callers must persist
// the id returned by UploadToFolder.
type Photos struct {
	sessions *SessionManager
	client   *http.Client
}

func NewPhotos(sessions *SessionManager, client *http.Client) *Photos {
	return &Photos{sessions: sessions, client: client}
}

func (p *Photos) withSession(ctx context.Context, op func(sid, baseURL string) error) error {
	sid, baseURL, err := p.sessions.Session(ctx)
	if err != nil {
		return err
	}

	err = op(sid, baseURL)
	if err != nil && IsSessionRejected(err) {
		p.sessions.Invalidate()
		sid, baseURL, err = p.sessions.Session(ctx)
		if err != nil {
			return err
		}
		err = op(sid, baseURL)
	}

	return err
}

type uploadItemData struct {
	ID       int64  `json:"id"`
	FileName string `json:"filename"`
	FolderID int64  `json:"folder_id"`
	FileSize int64  `json:"filesize"`
}

// UploadToFolder uploads data into a numbered Photos folder and returns the
// NAS-assigned item id. The duplicate and name fields must be JSON-quoted;
// the API refuses bare strings for them.
func (p *Photos) UploadToFolder(ctx context.Context, folderID int, fileName string, data []byte, contentType string) (int64, error) {
	var itemID int64

	err := p.withSession(ctx, func(sid, baseURL string) error {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)

		fields := map[string]string{
			"api":              fotoUploadAPI,
			"method":           "upload_to_folder",
			"version":          "1",
			"duplicate":        `"ignore"`,
			"name":             `"` + fileName + `"`,
			"mtime":            strconv.FormatInt(time.Now().Unix(), 10),
			"target_folder_id": strconv.Itoa(folderID),
		}
		for k, v := range fields {
			if err := w.WriteField(k, v); err != nil {
				return err
			}
		}

		part, err := createFilePart(w, fileName, contentType)
		if err != nil {
			return err
		}
		if _, err := part.Write(data); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}

		q := url.Values{}
		q.Set("api", fotoUploadAPI)
		q.Set("version", "1")
		q.Set("method", "upload_to_folder")

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+fotoEntryPath+"?"+q.Encode(), &buf)
		if err != nil {
			return fmt.Errorf(errBuildRequestFmt, err)
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Cookie", "id="+sid)

		httpResp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf(errRequestFailedFmt, err)
		}
		defer httpResp.Body.Close()

		var resp apiResponse
		if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
			return fmt.Errorf(errDecodeResponseFmt, err)
		}
		if err := resp.err(); err != nil {
			return err
		}

		var item uploadItemData
		if err := json.Unmarshal(resp.Data, &item); err != nil {
			return fmt.Errorf(errDecodeResponseFmt, err)
		}
		itemID = item.ID
		return nil
	})

	return itemID, err
}

// Folder is one Photos-API folder.
type Folder struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ListFolders pages through the personal-space folder list.
func (p *Photos) ListFolders(ctx context.Context, offset, limit int) ([]Folder, error) {
	var folders []Folder

	err := p.withSession(ctx, func(sid, baseURL string) error {
		q := url.Values{}
		q.Set("api", fotoBrowseAPI)
		q.Set("version", "1")
		q.Set("method", "list")
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(limit))
		q.Set("_sid", sid)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+fotoEntryPath+"?"+q.Encode(), nil)
		if err != nil {
			return fmt.Errorf(errBuildRequestFmt, err)
		}

		httpResp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf(errRequestFailedFmt, err)
		}
		defer httpResp.Body.Close()

		var resp apiResponse
		if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
			return fmt.Errorf(errDecodeResponseFmt, err)
		}
		if err := resp.err(); err != nil {
			return err
		}

		var data struct {
			List []Folder `json:"list"`
		}
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return fmt.Errorf(errDecodeResponseFmt, err)
		}
		folders = data.List
		return nil
	})

	return folders, err
}

// CacheKey fetches the thumbnail cache key for an item; the thumbnail API
// requires it alongside the id.
func (p *Photos) CacheKey(ctx context.Context, itemID int64) (string, error) {
	var cacheKey string

	err := p.withSession(ctx, func(sid, baseURL string) error {
		form := url.Values{}
		form.Set("api", fotoItemAPI)
		form.Set("method", "get")
		form.Set("version", "1")
		form.Set("id", fmt.Sprintf("[%d]", itemID))
		form.Set("additional", `["thumbnail"]`)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+fotoEntryPath, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf(errBuildRequestFmt, err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Cookie", "id="+sid)

		httpResp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf(errRequestFailedFmt, err)
		}
		defer httpResp.Body.Close()

		var resp apiResponse
		if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
			return fmt.Errorf(errDecodeResponseFmt, err)
		}
		if err := resp.err(); err != nil {
			return err
		}

		var data struct {
			List []struct {
				Additional struct {
					Thumbnail struct {
						CacheKey string `json:"cache_key"`
					} `json:"thumbnail"`
				} `json:"additional"`
			} `json:"list"`
		}
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return fmt.Errorf(errDecodeResponseFmt, err)
		}
		if len(data.List) == 0 {
			return &APIError{Code: CodeNoSuchFileOrDir}
		}
		cacheKey = data.List[0].Additional.Thumbnail.CacheKey
		return nil
	})

	return cacheKey, err
}

// Thumbnail streams an item rendition. Size "xl" serves as the full-size
// image; the dedicated download API needs permissions the service account
// does not hold.
func (p *Photos) Thumbnail(ctx context.Context, itemID int64, size string) (io.ReadCloser, string, error) {
	cacheKey, err := p.CacheKey(ctx, itemID)
	if err != nil {
		return nil, "", err
	}

	var body io.ReadCloser
	var contentType string

	err = p.withSession(ctx, func(sid, baseURL string) error {
		q := url.Values{}
		q.Set("api", fotoThumbnailAPI)
		q.Set("method", "get")
		q.Set("version", "1")
		q.Set("id", strconv.FormatInt(itemID, 10))
		q.Set("size", size)
		q.Set("type", "unit")
		q.Set("cache_key", cacheKey)
		q.Set("_sid", sid)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+fotoEntryPath+"?"+q.Encode(), nil)
		if err != nil {
			return fmt.Errorf(errBuildRequestFmt, err)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf(errRequestFailedFmt, err)
		}

		ct := resp.Header.Get("Content-Type")
		if resp.StatusCode != http.StatusOK || !strings.HasPrefix(ct, "image/") {
			defer resp.Body.Close()
			var apiResp apiResponse
			if decodeErr := json.NewDecoder(resp.Body).Decode(&apiResp); decodeErr == nil {
				if err := apiResp.err(); err != nil {
					return err
				}
			}
			return fmt.Errorf(errUnexpectedStatusFmt, resp.StatusCode)
		}

		body = resp.Body
		contentType = ct
		return nil
	})

	return body, contentType, err
}

// Delete removes items from the photo library.
func (p *Photos) Delete(ctx context.Context, itemIDs ...int64) error {
	if len(itemIDs) == 0 {
		return nil
	}

	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}

	return p.withSession(ctx, func(sid, baseURL string) error {
		form := url.Values{}
		form.Set("api", fotoItemAPI)
		form.Set("method", "delete")
		form.Set("version", "1")
		form.Set("id", "["+strings.Join(ids, ",")+"]")

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+fotoEntryPath, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf(errBuildRequestFmt, err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Cookie", "id="+sid)

		httpResp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf(errRequestFailedFmt, err)
		}
		defer httpResp.Body.Close()

		var resp apiResponse
		if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
			return fmt.Errorf(errDecodeResponseFmt, err)
		}
		return resp.err()
	})
}
