package settings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"deltawatch/internal/board"
)

const (
	KeyNotify     = "notify"
	KeySound      = "sound"
	KeyVolume     = "volume"
	KeyFilter     = "filter"
	KeyLicenseKey = "licenseKey"
	KeyDeviceID   = "deviceId"
)

const DefaultVolume = 0.5

var (
	ErrUnknownKey   = errors.New("unknown setting")
	ErrInvalidValue = errors.New("invalid setting value")
)

// Preferences is the typed view of the stored settings.
type Preferences struct {
	Notify     bool            `json:"notify"`
	Sound      bool            `json:"sound"`
	Volume     float64         `json:"volume"`
	Filter     board.Direction `json:"filter"`
	LicenseKey string          `json:"license_key"`
	DeviceID   string          `json:"device_id"`
}

// Load reads preferences, substituting defaults for missing or malformed
// values.
func (s *Store) Load(ctx context.Context) (Preferences, error) {
	all, err := s.All(ctx)
	if err != nil {
		return Preferences{}, err
	}
	p := Preferences{Volume: DefaultVolume, Filter: board.DirectionAll}
	p.Notify = all[KeyNotify] == "true"
	p.Sound = all[KeySound] == "true"
	if v, ok := all[KeyVolume]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			p.Volume = f
		}
	}
	if d, err := board.ParseDirection(all[KeyFilter]); err == nil {
		p.Filter = d
	}
	p.LicenseKey = all[KeyLicenseKey]
	p.DeviceID = all[KeyDeviceID]
	return p, nil
}

// Save writes every field of p.
func (s *Store) Save(ctx context.Context, p Preferences) error {
	pairs := map[string]string{
		KeyNotify:     strconv.FormatBool(p.Notify),
		KeySound:      strconv.FormatBool(p.Sound),
		KeyVolume:     strconv.FormatFloat(p.Volume, 'f', -1, 64),
		KeyFilter:     string(p.Filter),
		KeyLicenseKey: p.LicenseKey,
	}
	if p.DeviceID != "" {
		pairs[KeyDeviceID] = p.DeviceID
	}
	for k, v := range pairs {
		if err := s.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// DeviceID returns the persisted device id, creating one on first use.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	if v, ok, err := s.Get(ctx, KeyDeviceID); err != nil {
		return "", err
	} else if ok && v != "" {
		return v, nil
	}
	id := NewDeviceID()
	if err := s.Set(ctx, KeyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// NewDeviceID returns "dev_" followed by nine lowercase hex characters.
func NewDeviceID() string {
	return "dev_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// Apply validates and stores a single setting given as text, returning the
// normalized value that was stored.
func (s *Store) Apply(ctx context.Context, key, value string) (string, error) {
	norm, err := Normalize(key, value)
	if err != nil {
		return "", err
	}
	if err := s.Set(ctx, key, norm); err != nil {
		return "", err
	}
	return norm, nil
}

// Normalize validates value for key. Volume accepts a 0..1 fraction or a
// 0..100 percentage ("75" or "75%").
func Normalize(key, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch key {
	case KeyNotify, KeySound:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
		}
		return strconv.FormatBool(b), nil
	case KeyVolume:
		pct := strings.HasSuffix(value, "%")
		f, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
		}
		if pct || f > 1 {
			f /= 100
		}
		if f < 0 || f > 1 {
			return "", fmt.Errorf("%w: %s out of range", ErrInvalidValue, key)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case KeyFilter:
		d, err := board.ParseDirection(value)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return string(d), nil
	case KeyLicenseKey:
		return value, nil
	case KeyDeviceID:
		if value == "" {
			return "", fmt.Errorf("%w: %s empty", ErrInvalidValue, key)
		}
		return value, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}
