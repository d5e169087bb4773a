package resolve_versions

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/Masterminds/semver/v3"
	"github.com/MrMelon54/rescheduler"
	"github.com/mrmelon54/mc-launch-engine/manifest"
	"go.uber.org/zap"
	"io"
	"net/http"
	"regexp"
	"slices"
	"sync"
	"time"
)

const McVersionManifest = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

var ErrUnknownVersion = errors.New("unknown version")

type PistonMetaManifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []PistonMetaVersion `json:"versions"`
}

type PistonMetaVersion struct {
	Id              string    `json:"id"`
	Type            string    `json:"type"`
	Url             string    `json:"url"`
	Time            time.Time `json:"time"`
	ReleaseTime     time.Time `json:"releaseTime"`
	Sha1            string    `json:"sha1"`
	ComplianceLevel int       `json:"complianceLevel"`
}

// McVersions keeps the upstream version list for a configurable time and
// installs version manifests that are missing from the local store.
type McVersions struct {
	client   *http.Client
	endpoint string
	ttl      time.Duration
	log      *zap.Logger

	r        *rescheduler.Rescheduler
	cacheMu  *sync.RWMutex
	expires  time.Time
	manifest *PistonMetaManifest
	lastErr  error
}

func NewMcVersionCache(client *http.Client, endpoint string, ttl time.Duration, log *zap.Logger) *McVersions {
	if endpoint == "" {
		endpoint = McVersionManifest
	}
	if log == nil {
		log = zap.NewNop()
	}
	v := &McVersions{
		client:   client,
		endpoint: endpoint,
		ttl:      ttl,
		log:      log,
		cacheMu:  new(sync.RWMutex),
	}
	v.r = rescheduler.NewRescheduler(v.generateCache)
	return v
}

func (v *McVersions) fetchManifest() (*PistonMetaManifest, error) {
	req, err := http.NewRequest(http.MethodGet, v.endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("version manifest: unexpected status %s", resp.Status)
	}

	var m PistonMetaManifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (v *McVersions) generateCache() {
	v.cacheMu.RLock()
	isValid := v.manifest != nil && v.expires.After(time.Now())
	v.cacheMu.RUnlock()
	if isValid {
		return
	}
	m, err := v.fetchManifest()
	v.cacheMu.Lock()
	defer v.cacheMu.Unlock()
	v.lastErr = err
	if err != nil {
		v.log.Warn("Failed to fetch version manifest", zap.Error(err))
		return
	}
	v.manifest = m
	v.expires = time.Now().Add(v.ttl)
}

func (v *McVersions) load() (*PistonMetaManifest, error) {
	v.r.Run()
	v.r.Wait()
	v.cacheMu.RLock()
	defer v.cacheMu.RUnlock()
	if v.manifest == nil {
		if v.lastErr != nil {
			return nil, v.lastErr
		}
		return nil, errors.New("version manifest unavailable")
	}
	return v.manifest, nil
}

func (v *McVersions) Lookup(id string) (PistonMetaVersion, error) {
	m, err := v.load()
	if err != nil {
		return PistonMetaVersion{}, err
	}
	n := slices.IndexFunc(m.Versions, func(a PistonMetaVersion) bool { return a.Id == id })
	if n == -1 {
		return PistonMetaVersion{}, fmt.Errorf("%w: %s", ErrUnknownVersion, id)
	}
	return m.Versions[n], nil
}

var regexGameVersionId = regexp.MustCompile(`^[0-9]+\.[0-9]+(?:\.[0-9]+)?$`)

// Releases returns every release id parseable as a version, oldest first.
func (v *McVersions) Releases() ([]*semver.Version, error) {
	m, err := v.load()
	if err != nil {
		return nil, err
	}
	a := make([]*semver.Version, 0, len(m.Versions))
	for _, i := range m.Versions {
		if i.Type != "release" || !regexGameVersionId.MatchString(i.Id) {
			continue
		}
		ver, err := semver.NewVersion(i.Id)
		if err != nil {
			return nil, err
		}
		a = append(a, ver)
	}
	slices.SortFunc(a, func(a, b *semver.Version) int {
		return a.Compare(b)
	})
	return a, nil
}

func (v *McVersions) LatestRelease() (string, error) {
	m, err := v.load()
	if err != nil {
		return "", err
	}
	return m.Latest.Release, nil
}

// Install downloads the manifest for id into store unless it is already there.
func (v *McVersions) Install(ctx context.Context, store *manifest.Store, id string) error {
	if store.Exists(id) {
		return nil
	}
	ver, err := v.Lookup(id)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ver.Url, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("install %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("install %s: unexpected status %s", id, resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("install %s: %w", id, err)
	}
	if ver.Sha1 != "" {
		sum := sha1.Sum(raw)
		if hex.EncodeToString(sum[:]) != ver.Sha1 {
			return fmt.Errorf("install %s: checksum mismatch", id)
		}
	}
	v.log.Info("Installed version manifest", zap.String("version", id))
	return store.Save(id, raw)
}

// IsPreUnifiedAssets reports whether a version predates the unified asset
// layout introduced in 1.6. Non-release ids are never considered legacy.
func IsPreUnifiedAssets(id string) bool {
	if !regexGameVersionId.MatchString(id) {
		return false
	}
	ver, err := semver.NewVersion(id)
	if err != nil {
		return false
	}
	return ver.LessThan(semver.MustParse("1.6.0"))
}
