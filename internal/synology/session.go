package synology

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	apperrors "media-service/pkg/errors"
)

// Flavor selects which NAS API family a session belongs to. The two families
// accept the same credentials but their session tokens are not interchangeable,
// so each flavor runs its own state machine.
type Flavor string

const (
	FlavorFileStation Flavor = "FileStation"
	FlavorPhotos      Flavor = "Photos"
)

const (
	authAPI         = "SYNO.API.Auth"
	authVersionFS   = "6"
	authVersionFoto = "3"

	fsAuthPath    = "/webapi/auth.cgi"
	fsQueryPath   = "/webapi/query.cgi"
	fsEntryPath   = "/webapi/entry.cgi"
	fotoAuthPath  = "/photo/webapi/auth.cgi"
	fotoEntryPath = "/photo/webapi/entry.cgi"

	probeTimeout = 5 * time.Second

	errNoWorkingURLFmt = "no reachable NAS URL among %v: %w"
	errAuthRequestFmt  = "authentication request failed: %w"
	errDecodeAuthFmt   = "failed to decode auth response: %w"
)

type authResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Sid string `json:"sid"`
	} `json:"data"`
	Error *struct {
		Code int `json:"code"`
	} `json:"error"`
}

// SessionManager authenticates against one NAS API flavor and caches the
// session id. It is safe for concurrent use; two requests racing through
// authentication is harmless (the second login simply replaces the first sid).
type SessionManager struct {
	flavor   Flavor
	baseURLs []string
	username string
	password string
	client   *http.Client

	mu         sync.Mutex
	sid        string
	workingURL string
}

func NewSessionManager(flavor Flavor, baseURLs []string, username, password string, timeout time.Duration) *SessionManager {
	urls := make([]string, 0, len(baseURLs))
	for _, u := range baseURLs {
		if u = strings.TrimRight(u, "/"); u != "" {
			urls = append(urls, u)
		}
	}

	return &SessionManager{
		flavor:   flavor,
		baseURLs: urls,
		username: username,
		password: password,
		client:   &http.Client{Timeout: timeout},
	}
}

// Flavor returns the API family this manager serves.
func (m *SessionManager) Flavor() Flavor {
	return m.flavor
}

// Session returns a cached session id and its base URL, authenticating first
// if no session is cached.
func (m *SessionManager) Session(ctx context.Context) (sid, baseURL string, err error) {
	m.mu.Lock()
	if m.sid != "" {
		sid, baseURL = m.sid, m.workingURL
		m.mu.Unlock()
		return sid, baseURL, nil
	}
	m.mu.Unlock()

	if err := m.Authenticate(ctx); err != nil {
		return "", "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sid, m.workingURL, nil
}

// Authenticate logs in against the first reachable base URL and caches the
// returned sid. Network failure and credential rejection are reported the same
// way: an error, never a panic.
func (m *SessionManager) Authenticate(ctx context.Context) error {
	workingURL, err := m.findWorkingURL(ctx)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("api", authAPI)
	form.Set("method", "login")
	form.Set("account", m.username)
	form.Set("passwd", m.password)

	var authURL string
	switch m.flavor {
	case FlavorPhotos:
		form.Set("version", authVersionFoto)
		authURL = workingURL + fotoAuthPath
	default:
		form.Set("version", authVersionFS)
		form.Set("session", "FileStation")
		form.Set("format", "sid")
		authURL = workingURL + fsAuthPath
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf(errAuthRequestFmt, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf(errAuthRequestFmt, err)
	}
	defer resp.Body.Close()

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf(errDecodeAuthFmt, err)
	}

	if !auth.Success || auth.Data.Sid == "" {
		code := 0
		if auth.Error != nil {
			code = auth.Error.Code
		}
		return apperrors.NasAuth(fmt.Sprintf("%s login rejected", m.flavor), &APIError{Code: code})
	}

	m.mu.Lock()
	m.sid = auth.Data.Sid
	m.workingURL = workingURL
	m.mu.Unlock()

	log.Printf("synology: %s authentication successful (%s)", m.flavor, workingURL)
	return nil
}

// Invalidate drops the cached session so the next call re-authenticates.
// Called by any caller that sees a session-rejected NAS code; staleness is
// self-correcting, so no stronger coordination is needed.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	m.sid = ""
	m.mu.Unlock()
}

// Logout ends the NAS session. Not required for correctness; used on clean
// shutdown.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	sid, workingURL := m.sid, m.workingURL
	m.sid = ""
	m.mu.Unlock()

	if sid == "" || workingURL == "" {
		return
	}

	form := url.Values{}
	form.Set("api", authAPI)
	form.Set("method", "logout")
	form.Set("_sid", sid)

	authPath := fsAuthPath
	version := authVersionFS
	if m.flavor == FlavorPhotos {
		authPath = fotoAuthPath
		version = authVersionFoto
	}
	form.Set("version", version)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, workingURL+authPath, strings.NewReader(form.Encode()))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		log.Printf("synology: %s logout error: %v", m.flavor, err)
		return
	}
	resp.Body.Close()
}

// Probe reports whether any configured base URL answers the API info query.
func (m *SessionManager) Probe(ctx context.Context) bool {
	_, err := m.findWorkingURL(ctx)
	return err == nil
}

// findWorkingURL tests the primary URL then the alternative and returns the
// first one that answers.
func (m *SessionManager) findWorkingURL(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.workingURL != "" {
		u := m.workingURL
		m.mu.Unlock()
		return u, nil
	}
	m.mu.Unlock()

	probePath := fsQueryPath + "?api=SYNO.API.Info&version=1&method=query&query=SYNO.FileStation.Info"
	if m.flavor == FlavorPhotos {
		probePath = fotoEntryPath + "?api=SYNO.API.Info&version=1&method=query&query=all"
	}

	for _, base := range m.baseURLs {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, base+probePath, nil)
		if err != nil {
			cancel()
			continue
		}

		resp, err := m.client.Do(req)
		cancel()
		if err != nil {
			log.Printf("synology: connection test failed for %s: %v", base, err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			m.mu.Lock()
			m.workingURL = base
			m.mu.Unlock()
			return base, nil
		}
	}

	return "", fmt.Errorf(errNoWorkingURLFmt, m.baseURLs, apperrors.ErrNasUnreachable)
}
