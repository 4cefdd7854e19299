package models

import "time"

// AssetKind distinguishes the three audio sources an alarm can play.
type AssetKind string

const (
	AssetSpeech   AssetKind = "speech"   // synthesized spoken message
	AssetAudio    AssetKind = "audio"    // custom sound file
	AssetFallback AssetKind = "fallback" // locally generated tone, always available
)

// CriticalAsset is audio that must be available when one alarm occurrence fires.
type CriticalAsset struct {
	ID       string    `json:"id"`
	AlarmID  string    `json:"alarmId"`
	Kind     AssetKind `json:"kind"`
	URL      string    `json:"url,omitempty"`
	CacheKey string    `json:"cacheKey"`
	Priority int       `json:"priority"`

	TriggerTime time.Time `json:"triggerTime"`
	PreloadTime time.Time `json:"preloadTime"`

	IsLoaded    bool       `json:"isLoaded"`
	LoadStarted bool       `json:"loadStarted"`
	LoadedAt    *time.Time `json:"loadedAt,omitempty"`
	Size        int64      `json:"size,omitempty"`
	Attempts    int        `json:"attempts,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
}

// Due reports whether the asset's preload window has opened at now.
func (a *CriticalAsset) Due(now time.Time) bool {
	return !a.PreloadTime.After(now)
}

// Expired reports whether the occurrence the asset belongs to has already fired.
func (a *CriticalAsset) Expired(now time.Time) bool {
	return a.TriggerTime.Before(now)
}
