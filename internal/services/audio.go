package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	cache "github.com/patrickmn/go-cache"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/desertthunder/smartwake/internal/assets"
	"github.com/desertthunder/smartwake/internal/shared"
)

// CriticalPriority is the priority at which fetches skip the request limiter.
const CriticalPriority = 9

const fallbackFile = "fallback.wav"

// defaultFetchTimeout bounds a shared fetch when the caller gives no timeout.
const defaultFetchTimeout = 30 * time.Second

// AudioLoaderOpts configures an [AudioLoader]. Nil fields get defaults.
type AudioLoaderOpts struct {
	Fs                afero.Fs
	CacheDir          string
	HTTPClient        *http.Client
	RequestsPerSecond float64
	TTL               time.Duration
	Logger            *log.Logger
}

// AudioLoader fetches speech and audio files into an on-disk cache.
//
// Entries are keyed by the caller's cache key (the URL when none is given), so
// concurrent and repeated requests for the same logical asset hit the network once.
// Cached files are removed when their entry expires.
type AudioLoader struct {
	fs      afero.Fs
	dir     string
	client  *http.Client
	limiter *rate.Limiter
	entries *cache.Cache
	group   singleflight.Group
	logger  *log.Logger
}

func NewAudioLoader(opts AudioLoaderOpts) (*AudioLoader, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.CacheDir == "" {
		opts.CacheDir = filepath.Join(".smartwake", "audio")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 4
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	if err := opts.Fs.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio cache dir: %w", err)
	}

	l := &AudioLoader{
		fs:      opts.Fs,
		dir:     opts.CacheDir,
		client:  opts.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(1, int(opts.RequestsPerSecond))),
		entries: cache.New(opts.TTL, opts.TTL/4),
		logger:  shared.WithLogger(opts.Logger, "component", "audio"),
	}
	l.entries.OnEvicted(func(key string, v any) {
		if e, ok := v.(*assets.CacheEntry); ok {
			if err := l.fs.Remove(e.Path); err != nil {
				l.logger.Debug("could not remove evicted audio", "key", key, "err", err)
			}
		}
	})
	return l, nil
}

// LoadAudio returns the cached entry for the asset, fetching it when missing.
// Priority at or above [CriticalPriority] bypasses the request limiter.
func (l *AudioLoader) LoadAudio(ctx context.Context, src string, opts assets.LoadOptions) (*assets.CacheEntry, error) {
	if src == "" {
		return nil, fmt.Errorf("%w: empty audio url", shared.ErrInvalidInput)
	}
	key := opts.CacheKey
	if key == "" {
		key = src
	}

	if e, ok := l.cached(key); ok {
		return e, nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	// The shared fetch outlives any one caller; each caller stops waiting on its own ctx.
	ch := l.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return l.fetch(fctx, key, src, opts.Priority)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			l.logger.Debug("deduplicated audio fetch", "key", key)
		}
		e := *res.Val.(*assets.CacheEntry)
		return &e, nil
	}
}

func (l *AudioLoader) cached(key string) (*assets.CacheEntry, bool) {
	v, ok := l.entries.Get(key)
	if !ok {
		return nil, false
	}
	e := *v.(*assets.CacheEntry)
	if _, err := l.fs.Stat(e.Path); err != nil {
		l.entries.Delete(key)
		return nil, false
	}
	return &e, true
}

func (l *AudioLoader) fetch(ctx context.Context, key, src string, priority int) (*assets.CacheEntry, error) {
	if priority < CriticalPriority {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAssetFetch, err)
	}
	defer resp.Body.Close()

	if err := (&Response{StatusCode: resp.StatusCode}).Err(); err != nil {
		return nil, err
	}

	dest := filepath.Join(l.dir, fileName(key, src))
	f, err := l.fs.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache file: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = l.fs.Remove(dest)
		return nil, fmt.Errorf("%w: %w", shared.ErrAssetFetch, err)
	}

	e := &assets.CacheEntry{Key: key, URL: src, Path: dest, Size: n, LoadedAt: time.Now()}
	l.entries.SetDefault(key, e)
	l.logger.Debug("cached audio", "key", key, "bytes", n)
	return e, nil
}

// Evict drops one entry and its file.
func (l *AudioLoader) Evict(key string) {
	l.entries.Delete(key)
}

// Len reports the number of cached entries.
func (l *AudioLoader) Len() int { return l.entries.ItemCount() }

// Flush drops every entry and its file.
func (l *AudioLoader) Flush() {
	for key := range l.entries.Items() {
		l.entries.Delete(key)
	}
}

// WriteFallbackTone writes the fallback beep into the cache dir and returns its entry.
// The tone never expires.
func (l *AudioLoader) WriteFallbackTone() (*assets.CacheEntry, error) {
	dest := filepath.Join(l.dir, fallbackFile)
	f, err := l.fs.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback tone: %w", err)
	}
	defer f.Close()

	n, err := DefaultTone().WriteWAV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to write fallback tone: %w", err)
	}
	return &assets.CacheEntry{Key: "fallback", Path: dest, Size: n, LoadedAt: time.Now()}, nil
}

// fileName derives a stable file name from the cache key, keeping the URL's extension.
func fileName(key, src string) string {
	sum := sha256.Sum256([]byte(key))
	ext := ".audio"
	if u, err := url.Parse(src); err == nil {
		if e := path.Ext(u.Path); e != "" && len(e) <= 5 {
			ext = e
		}
	}
	return hex.EncodeToString(sum[:16]) + ext
}
