package mod_files

import (
	"context"
	"encoding/json"
	"fmt"
	asset_engine "github.com/mrmelon54/mc-launch-engine/asset-engine"
	"io"
	"net/http"
	"net/url"
)

type Modrinth struct {
	conf   Config
	client *http.Client
}

func NewModrinth(config Config, client *http.Client) *Modrinth {
	if config.Endpoint == "" {
		config.Endpoint = "https://api.modrinth.com/v2"
	}
	return &Modrinth{config, client}
}

type modrinthVersion struct {
	Id            string         `json:"id"`
	ProjectId     string         `json:"project_id"`
	VersionNumber string         `json:"version_number"`
	Files         []modrinthFile `json:"files"`
}

type modrinthFile struct {
	Hashes struct {
		Sha1   string `json:"sha1"`
		Sha512 string `json:"sha512"`
	} `json:"hashes"`
	Url      string `json:"url"`
	Filename string `json:"filename"`
	Primary  bool   `json:"primary"`
	Size     int64  `json:"size"`
}

type modrinthDataError struct {
	Error       string `json:"error"`
	Description string `json:"description"`
}

// Resolve looks up a version and returns the download of its primary file.
func (m *Modrinth) Resolve(ctx context.Context, versionId string) (asset_engine.DownloadJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/version/%s", m.conf.Endpoint, url.PathEscape(versionId)), nil)
	if err != nil {
		return asset_engine.DownloadJob{}, err
	}
	if m.conf.UserAgent != "" {
		req.Header.Set("User-Agent", m.conf.UserAgent)
	}
	if m.conf.Token != "" {
		req.Header.Set("Authorization", m.conf.Token)
	}

	do, err := m.client.Do(req)
	if err != nil {
		return asset_engine.DownloadJob{}, err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(do.Body)
	if do.StatusCode != http.StatusOK {
		var errData modrinthDataError
		if err := json.NewDecoder(do.Body).Decode(&errData); err != nil {
			return asset_engine.DownloadJob{}, fmt.Errorf("modrinth remote error: %s", do.Status)
		}
		return asset_engine.DownloadJob{}, fmt.Errorf("modrinth remote error: %s -- %s", errData.Error, errData.Description)
	}

	var version modrinthVersion
	if err := json.NewDecoder(do.Body).Decode(&version); err != nil {
		return asset_engine.DownloadJob{}, err
	}
	if len(version.Files) == 0 {
		return asset_engine.DownloadJob{}, fmt.Errorf("modrinth %s: %w", versionId, ErrNoFiles)
	}
	file := version.Files[0]
	for _, f := range version.Files {
		if f.Primary {
			file = f
			break
		}
	}
	dest, err := destFor(m.conf.Dir, file.Filename)
	if err != nil {
		return asset_engine.DownloadJob{}, err
	}
	return asset_engine.DownloadJob{
		Name: file.Filename,
		Hash: file.Hashes.Sha1,
		URL:  file.Url,
		Dest: dest,
		Size: file.Size,
	}, nil
}
