// Package updater checks GitHub releases for a newer context-craft build
// and can replace the running binary with it.
//
// The check is best-effort: "serve" runs it in the background and only
// reports to stderr. "update" performs the download and an atomic rename
// over the current executable. The server must be restarted afterwards.
package updater

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

const (
	// DefaultRepo is the GitHub repository releases are fetched from.
	DefaultRepo = "contextcraft/context-craft"
	// BinaryName is the executable name inside release archives.
	BinaryName = "context-craft"

	checkTimeout = 10 * time.Second
)

// ErrUpToDate is returned by Apply when no newer release exists.
var ErrUpToDate = errors.New("already at latest version")

// Release holds the fields used from a GitHub release.
type Release struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Result describes the outcome of a version check.
type Result struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	ReleaseURL      string
}

// Updater talks to the GitHub Releases API.
type Updater struct {
	Endpoint string
	Client   *http.Client
	GOOS     string
	GOARCH   string
}

// New creates an Updater for the given owner/name repository.
func New(repo string) *Updater {
	if repo == "" {
		repo = DefaultRepo
	}
	return &Updater{
		Endpoint: "https://api.github.com/repos/" + repo + "/releases/latest",
		Client:   &http.Client{Timeout: checkTimeout},
		GOOS:     runtime.GOOS,
		GOARCH:   runtime.GOARCH,
	}
}

// Check compares current against the latest release. Development builds
// ("dev" or any non-semver string) never report an update.
func (u *Updater) Check(ctx context.Context, current string) (*Result, *Release, error) {
	res := &Result{CurrentVersion: strings.TrimPrefix(current, "v")}

	rel, err := u.latest(ctx, current)
	if err != nil {
		return res, nil, err
	}
	res.LatestVersion = strings.TrimPrefix(rel.TagName, "v")
	res.ReleaseURL = rel.HTMLURL
	res.UpdateAvailable = IsNewer(res.CurrentVersion, res.LatestVersion)
	return res, rel, nil
}

// Apply downloads the release archive for this platform and swaps it in
// for the running executable.
func (u *Updater) Apply(ctx context.Context, current string) (*Result, error) {
	res, rel, err := u.Check(ctx, current)
	if err != nil {
		return res, fmt.Errorf("checking latest release: %w", err)
	}
	if !res.UpdateAvailable {
		return res, fmt.Errorf("%w (%s)", ErrUpToDate, res.CurrentVersion)
	}

	assetName := u.AssetName(res.LatestVersion)
	var downloadURL string
	for _, a := range rel.Assets {
		if a.Name == assetName {
			downloadURL = a.BrowserDownloadURL
			break
		}
	}
	if downloadURL == "" {
		return res, fmt.Errorf("no release asset for %s/%s (looking for %s)", u.GOOS, u.GOARCH, assetName)
	}

	archive, err := u.download(ctx, downloadURL)
	if err != nil {
		return res, err
	}
	bin, err := ExtractBinary(archive, assetName)
	if err != nil {
		return res, fmt.Errorf("extracting binary: %w", err)
	}

	execPath, err := os.Executable()
	if err != nil {
		return res, fmt.Errorf("finding current executable: %w", err)
	}
	if execPath, err = filepath.EvalSymlinks(execPath); err != nil {
		return res, fmt.Errorf("resolving symlinks: %w", err)
	}
	return res, Replace(execPath, bin, u.GOOS)
}

func (u *Updater) latest(ctx context.Context, current string) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", BinaryName+"/"+current)

	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}
	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("parsing release info: %w", err)
	}
	return &rel, nil
}

func (u *Updater) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// AssetName is the archive name GoReleaser produces for this platform.
func (u *Updater) AssetName(version string) string {
	ext := "tar.gz"
	if u.GOOS == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", BinaryName, version, u.GOOS, u.GOARCH, ext)
}

// IsNewer reports whether latest is a higher semantic version than
// current. Unparseable versions are never newer.
func IsNewer(current, latest string) bool {
	cv, err := semver.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return false
	}
	lv, err := semver.NewVersion(strings.TrimPrefix(latest, "v"))
	if err != nil {
		return false
	}
	return lv.GreaterThan(cv)
}

// ExtractBinary returns the executable from a .tar.gz or .zip archive.
func ExtractBinary(archive []byte, assetName string) ([]byte, error) {
	if strings.HasSuffix(assetName, ".zip") {
		return extractFromZip(archive)
	}
	return extractFromTarGz(archive)
}

func isBinary(name string) bool {
	base := filepath.Base(name)
	return base == BinaryName || base == BinaryName+".exe"
}

func extractFromTarGz(archive []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("opening gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar: %w", err)
		}
		if isBinary(header.Name) {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("%s binary not found in archive", BinaryName)
}

func extractFromZip(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}
	for _, f := range zr.File {
		if !isBinary(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		return data, err
	}
	return nil, fmt.Errorf("%s binary not found in archive", BinaryName)
}

// Replace writes bin next to execPath and renames it over the original.
// Windows cannot overwrite a running binary, so the old one is moved
// aside to execPath.old first.
func Replace(execPath string, bin []byte, goos string) error {
	tmpPath := execPath + ".new"
	if err := os.WriteFile(tmpPath, bin, 0o755); err != nil {
		return fmt.Errorf("writing new binary: %w", err)
	}

	if goos == "windows" {
		oldPath := execPath + ".old"
		_ = os.Remove(oldPath)
		if err := os.Rename(execPath, oldPath); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("backing up current binary: %w", err)
		}
	}

	if err := os.Rename(tmpPath, execPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing binary: %w", err)
	}
	return nil
}
