// Package settings holds the dynamic settings read from the datastore at startup.
package settings

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Key is where dynamic settings live in the datastore.
const Key = "settings/dynamic"

var ErrInvalid = errors.New("invalid settings")

type Dynamic struct {
	// MetricsInterval is how often the metrics worker samples.
	MetricsInterval time.Duration `yaml:"metrics_interval"`
	// SnapshotRetention is how many metrics snapshots are kept in the datastore.
	SnapshotRetention int `yaml:"snapshot_retention"`
	// NotifyOnShutdown sends an operator notification when the process stops.
	NotifyOnShutdown bool `yaml:"notify_on_shutdown"`
}

func Defaults() Dynamic {
	return Dynamic{
		MetricsInterval:   15 * time.Second,
		SnapshotRetention: 10,
		NotifyOnShutdown:  true,
	}
}

// Parse decodes YAML on top of [Defaults]. Unknown fields are rejected.
func Parse(data []byte) (Dynamic, error) {
	d := Defaults()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return Dynamic{}, errors.Wrap(err, "decoding dynamic settings")
	}
	return d, nil
}

func (d Dynamic) Marshal() ([]byte, error) {
	b, err := yaml.Marshal(d)
	return b, errors.Wrap(err, "encoding dynamic settings")
}

// Validate is the sanity check run before the application starts serving.
func (d Dynamic) Validate() error {
	if d.MetricsInterval < time.Second {
		return errors.Wrapf(ErrInvalid, "metrics_interval %s is below 1s", d.MetricsInterval)
	}
	if d.SnapshotRetention < 1 {
		return errors.Wrapf(ErrInvalid, "snapshot_retention %d must be positive", d.SnapshotRetention)
	}
	return nil
}

type Getter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Read loads settings stored under [Key].
// isNotFound decides which errors mean the settings were never stored.
func Read(ctx context.Context, store Getter, isNotFound func(error) bool) (Dynamic, error) {
	data, err := store.Get(ctx, Key)
	if err != nil {
		if isNotFound != nil && isNotFound(err) {
			return Defaults(), nil
		}
		return Dynamic{}, errors.Wrap(err, "reading dynamic settings")
	}
	return Parse(data)
}
