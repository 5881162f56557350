// Package update checks GitHub releases for newer builds and swaps the
// running binary in place.
package update

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"

	"github.com/kcaldas/pdfgenie/pkg/version"
)

// Release coordinates for published binaries.
const (
	GitHubOwner = "kcaldas"
	GitHubRepo  = "pdfgenie"
)

// Info describes the releases relevant to an update decision.
type Info struct {
	Current  string
	Latest   string
	Notes    string
	AssetURL string
	// Outdated is true when Latest is newer than the running build.
	Outdated bool
}

// Options control one update run.
type Options struct {
	// Force applies the latest release even when the current build is up
	// to date.
	Force bool
	// TargetVersion pins the release to install; empty means latest.
	TargetVersion string
	// Timeout bounds the whole check-and-apply cycle. Zero means no limit.
	Timeout time.Duration
}

// Updater resolves releases from GitHub and applies them to the running
// executable, validating downloads against the published checksums file.
type Updater struct {
	engine *selfupdate.Updater
	repo   selfupdate.Repository
}

// NewUpdater creates an updater bound to the pdfgenie release repository.
func NewUpdater() (*Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("creating GitHub source: %w", err)
	}

	engine, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:    source,
		Validator: &selfupdate.ChecksumValidator{UniqueFilename: "checksums.txt"},
	})
	if err != nil {
		return nil, fmt.Errorf("creating updater: %w", err)
	}

	return &Updater{engine: engine, repo: selfupdate.NewRepositorySlug(GitHubOwner, GitHubRepo)}, nil
}

// Check reports whether a release newer than the running build exists.
func (u *Updater) Check(ctx context.Context) (*Info, error) {
	latest, err := u.detectLatest(ctx)
	if err != nil {
		return nil, err
	}

	current := version.GetVersion()
	return &Info{
		Current:  current,
		Latest:   latest.Version(),
		Notes:    latest.ReleaseNotes,
		AssetURL: latest.AssetURL,
		Outdated: updateNeeded(current, latest.Version()),
	}, nil
}

// Run checks for a newer release and applies it according to opts. The
// returned Info reflects the check even when nothing was applied.
func (u *Updater) Run(ctx context.Context, opts Options) (*Info, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	info, err := u.Check(ctx)
	if err != nil {
		return nil, err
	}

	if !info.Outdated && !opts.Force {
		return info, nil
	}

	// Releases are resolved through the latest-release endpoint only.
	if opts.TargetVersion != "" && opts.TargetVersion != info.Latest {
		return info, fmt.Errorf("only the latest release (%s) can be installed", info.Latest)
	}

	if err := u.applyLatest(ctx); err != nil {
		return info, err
	}
	return info, nil
}

func (u *Updater) applyLatest(ctx context.Context) error {
	latest, err := u.detectLatest(ctx)
	if err != nil {
		return err
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}

	if err := u.engine.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("applying update: %w", err)
	}
	return nil
}

func (u *Updater) detectLatest(ctx context.Context) (*selfupdate.Release, error) {
	latest, found, err := u.engine.DetectLatest(ctx, u.repo)
	if err != nil {
		return nil, fmt.Errorf("detecting latest release: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("no releases found for %s/%s", GitHubOwner, GitHubRepo)
	}
	return latest, nil
}

// updateNeeded compares the running build against the latest release.
// Development builds and versions that do not parse as semver always update.
func updateNeeded(current, latest string) bool {
	if current == "" || current == "dev" || current == "development" {
		return true
	}

	currentVer, err := semver.NewVersion(current)
	if err != nil {
		return true
	}
	latestVer, err := semver.NewVersion(latest)
	if err != nil {
		return true
	}
	return latestVer.GreaterThan(currentVer)
}
