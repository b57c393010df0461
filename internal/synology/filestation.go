package synology

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

const (
	fsUploadAPI = "SYNO.FileStation.Upload"
	fsFolderAPI = "SYNO.FileStation.CreateFolder"
	fsDeleteAPI = "SYNO.FileStation.Delete"
	fsListAPI   = "SYNO.FileStation.List"
	fsDownAPI   = "SYNO.FileStation.Download"

	errBuildRequestFmt     = "failed to build request: %w"
	errRequestFailedFmt    = "request failed: %w"
	errDecodeResponseFmt   = "failed to decode response: %w"
	errUnexpectedStatusFmt = "unexpected status %d"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code int `json:"code"`
	} `json:"error"`
}

func (r *apiResponse) err() error {
	if r.Success {
		return nil
	}
	code := 0
	if r.Error != nil {
		code = r.Error.Code
	}
	return &APIError{Code: code}
}

// FileStation wraps the NAS general-purpose file API. All methods reuse the
// cached FileStation-flavor session and transparently re-authenticate once
// when the NAS rejects the sid.
type FileStation struct {
	sessions *SessionManager
	client   *http.Client
}

func NewFileStation(sessions *SessionManager, client *http.Client) *FileStation {
	return &FileStation{sessions: sessions, client: client}
}

// withSession runs op with a valid session, retrying exactly once after a
// session rejection.
func (fs *FileStation) withSession(ctx context.Context, op func(sid, baseURL string) error) error {
	sid, baseURL, err := fs.sessions.Session(ctx)
	if err != nil {
		return err
	}

	err = op(sid, baseURL)
	if err != nil && IsSessionRejected(err) {
		fs.sessions.Invalidate()
		sid, baseURL, err = fs.sessions.Session(ctx)
		if err != nil {
			return err
		}
		err = op(sid, baseURL)
	}

	return err
}

// CreateFolder creates folderPath, creating parents as needed. The
// already-exists response counts as success.
func (fs *FileStation) CreateFolder(ctx context.Context, folderPath string) error {
	parent, name := splitFolderPath(folderPath)
	if name == "" {
		return nil
	}

	return fs.withSession(ctx, func(sid, baseURL string) error {
		form := url.Values{}
		form.Set("api", fsFolderAPI)
		form.Set("version", "2")
		form.Set("method", "create")
		form.Set("_sid", sid)
		form.Set("folder_path", parent)
		form.Set("name", name)
		form.Set("force_parent", "true")

		resp, err := fs.postForm(ctx, baseURL+fsEntryPath, form)
		if err != nil {
			return err
		}

		if err := resp.err(); err != nil {
			if IsAlreadyExists(err) || isFolderExistsOnCreate(err) {
				return nil
			}
			return err
		}
		return nil
	})
}

// Upload performs a multipart upload of data into destPath/fileName. The
// session id travels as a cookie; the upload API rejects it as a form field.
func (fs *FileStation) Upload(ctx context.Context, destPath, fileName string, data []byte, contentType string) error {
	return fs.withSession(ctx, func(sid, baseURL string) error {
		body, formContentType, err := buildUploadBody(destPath, fileName, data, contentType)
		if err != nil {
			return err
		}

		uploadURL := fmt.Sprintf("%s%s?api=%s&method=upload&version=2", baseURL, fsEntryPath, fsUploadAPI)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, body)
		if err != nil {
			return fmt.Errorf(errBuildRequestFmt, err)
		}
		req.Header.Set("Content-Type", formContentType)
		req.Header.Set("Cookie", "id="+sid)

		httpResp, err := fs.client.Do(req)
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

// Delete removes a file or (recursively) a folder.
func (fs *FileStation) Delete(ctx context.Context, path string) error {
	return fs.withSession(ctx, func(sid, baseURL string) error {
		form := url.Values{}
		form.Set("api", fsDeleteAPI)
		form.Set("version", "2")
		form.Set("method", "delete")
		form.Set("_sid", sid)
		form.Set("path", path)
		form.Set("recursive", "true")

		resp, err := fs.postForm(ctx, baseURL+fsEntryPath, form)
		if err != nil {
			return err
		}
		return resp.err()
	})
}

type listEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"isdir"`
}

// List returns the entries of a folder.
func (fs *FileStation) List(ctx context.Context, folderPath string) ([]listEntry, error) {
	var entries []listEntry

	err := fs.withSession(ctx, func(sid, baseURL string) error {
		q := url.Values{}
		q.Set("api", fsListAPI)
		q.Set("version", "2")
		q.Set("method", "list")
		q.Set("_sid", sid)
		q.Set("folder_path", folderPath)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+fsEntryPath+"?"+q.Encode(), nil)
		if err != nil {
			return fmt.Errorf(errBuildRequestFmt, err)
		}

		httpResp, err := fs.client.Do(req)
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
			Files []listEntry `json:"files"`
		}
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return fmt.Errorf(errDecodeResponseFmt, err)
		}
		entries = data.Files
		return nil
	})

	return entries, err
}

// Download streams a file back. The caller owns the returned body.
func (fs *FileStation) Download(ctx context.Context, path string) (io.ReadCloser, string, error) {
	var body io.ReadCloser
	var contentType string

	err := fs.withSession(ctx, func(sid, baseURL string) error {
		q := url.Values{}
		q.Set("api", fsDownAPI)
		q.Set("version", "2")
		q.Set("method", "download")
		q.Set("path", path)
		q.Set("mode", "download")
		q.Set("_sid", sid)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+fsEntryPath+"?"+q.Encode(), nil)
		if err != nil {
			return fmt.Errorf(errBuildRequestFmt, err)
		}

		resp, err := fs.client.Do(req)
		if err != nil {
			return fmt.Errorf(errRequestFailedFmt, err)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf(errUnexpectedStatusFmt, resp.StatusCode)
		}

		// An error envelope comes back as JSON; real file bytes do not.
		if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "application/json") {
			var apiResp apiResponse
			decodeErr := json.NewDecoder(resp.Body).Decode(&apiResp)
			resp.Body.Close()
			if decodeErr != nil {
				return fmt.Errorf(errDecodeResponseFmt, decodeErr)
			}
			if err := apiResp.err(); err != nil {
				return err
			}
			return &APIError{Code: CodeNoSuchFileOrDir}
		}

		body = resp.Body
		contentType = resp.Header.Get("Content-Type")
		return nil
	})

	return body, contentType, err
}

func (fs *FileStation) postForm(ctx context.Context, endpoint string, form url.Values) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf(errBuildRequestFmt, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := fs.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf(errRequestFailedFmt, err)
	}
	defer httpResp.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf(errDecodeResponseFmt, err)
	}
	return &resp, nil
}

func buildUploadBody(destPath, fileName string, data []byte, contentType string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("path", destPath); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("create_parents", "true"); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("overwrite", "true"); err != nil {
		return nil, "", err
	}

	part, err := createFilePart(w, fileName, contentType)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

// splitFolderPath splits "/a/b/c" into parent "/a/b" and name "c".
func splitFolderPath(folderPath string) (parent, name string) {
	trimmed := strings.TrimRight(folderPath, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return "/", trimmed
	}
	parent = trimmed[:idx]
	if parent == "" {
		parent = "/"
	}
	return parent, trimmed[idx+1:]
}

// The create API reuses the no-such-dir code when the leaf already exists;
// treat it as success like every DSM client does.
func isFolderExistsOnCreate(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeNoSuchFileOrDir
}
