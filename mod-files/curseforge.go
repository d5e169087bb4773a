package mod_files

import (
	"context"
	"encoding/json"
	"fmt"
	asset_engine "github.com/mrmelon54/mc-launch-engine/asset-engine"
	"io"
	"net/http"
)

// CurseForge hash algorithm ids.
const (
	cfAlgoSha1 = 1
	cfAlgoMd5  = 2
)

type Curseforge struct {
	conf   Config
	client *http.Client
}

func NewCurseforge(config Config, client *http.Client) *Curseforge {
	if config.Endpoint == "" {
		config.Endpoint = "https://api.curseforge.com"
	}
	return &Curseforge{config, client}
}

type cfFileResponse struct {
	Data struct {
		Id          int     `json:"id"`
		ModId       int     `json:"modId"`
		FileName    string  `json:"fileName"`
		FileLength  int64   `json:"fileLength"`
		DownloadUrl *string `json:"downloadUrl"`
		Hashes      []struct {
			Value string `json:"value"`
			Algo  int    `json:"algo"`
		} `json:"hashes"`
	} `json:"data"`
}

// Resolve looks up one file of a mod and returns its download.
func (c *Curseforge) Resolve(ctx context.Context, modId, fileId int) (asset_engine.DownloadJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/mods/%d/files/%d", c.conf.Endpoint, modId, fileId), nil)
	if err != nil {
		return asset_engine.DownloadJob{}, err
	}
	if c.conf.UserAgent != "" {
		req.Header.Set("User-Agent", c.conf.UserAgent)
	}
	req.Header.Set("x-api-key", c.conf.Token)
	req.Header.Set("Accept", "application/json")

	do, err := c.client.Do(req)
	if err != nil {
		return asset_engine.DownloadJob{}, err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(do.Body)
	if do.StatusCode != http.StatusOK {
		all, err := io.ReadAll(do.Body)
		if err != nil {
			return asset_engine.DownloadJob{}, err
		}
		return asset_engine.DownloadJob{}, fmt.Errorf("curseforge remote error: %s: %s", do.Status, string(all))
	}

	var file cfFileResponse
	if err := json.NewDecoder(do.Body).Decode(&file); err != nil {
		return asset_engine.DownloadJob{}, err
	}
	if file.Data.DownloadUrl == nil || *file.Data.DownloadUrl == "" {
		return asset_engine.DownloadJob{}, fmt.Errorf("curseforge %d/%d: %w", modId, fileId, ErrDownloadDisabled)
	}
	dest, err := destFor(c.conf.Dir, file.Data.FileName)
	if err != nil {
		return asset_engine.DownloadJob{}, err
	}
	job := asset_engine.DownloadJob{
		Name: file.Data.FileName,
		URL:  *file.Data.DownloadUrl,
		Dest: dest,
		Size: file.Data.FileLength,
	}
	for _, h := range file.Data.Hashes {
		if h.Algo == cfAlgoSha1 {
			job.Hash = h.Value
		}
	}
	return job, nil
}
