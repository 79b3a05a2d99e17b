package filter

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/domain/track"
)

// DurationLimitName is the config key of the duration filter.
const DurationLimitName = "duration_limit_filter"

const (
	CodeTooLong         = "too_long"
	CodeTooShort        = "too_short"
	CodeUnknownDuration = "unknown_duration"
)

// DurationLimitConfig represents the configuration for DurationLimitFilter.
type DurationLimitConfig struct {
	MaxSeconds int `yaml:"max_seconds" mapstructure:"max_seconds" default:"900" validate:"gte=1"`
	MinSeconds int `yaml:"min_seconds" mapstructure:"min_seconds" validate:"gte=0"`
	// RejectUnknown rejects tracks whose duration lookup failed.
	RejectUnknown bool `yaml:"reject_unknown" mapstructure:"reject_unknown"`
}

// DurationLimitFilter checks if track duration is within allowed limits.
type DurationLimitFilter struct {
	config DurationLimitConfig
}

// NewDurationLimitFilter creates a duration filter with the default ceiling.
func NewDurationLimitFilter() *DurationLimitFilter {
	f := &DurationLimitFilter{}
	_ = defaults.Set(&f.config)
	return f
}

func (f *DurationLimitFilter) Name() string {
	return DurationLimitName
}

func (f *DurationLimitFilter) Description() string {
	return "Skips tracks longer than the configured ceiling (15 minutes by default)"
}

func (f *DurationLimitFilter) ReturnCodes() []string {
	return []string{CodeTooLong, CodeTooShort, CodeUnknownDuration}
}

func (f *DurationLimitFilter) ValidateConfig(settings map[string]any) error {
	var config DurationLimitConfig

	// Decode map[string]any to struct using mapstructure
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	if config.MinSeconds > config.MaxSeconds {
		return errors.New("min_seconds cannot be greater than max_seconds")
	}

	f.config = config
	zlog.Info().Msgf("duration limit filter config: %+v", config)
	return nil
}

// Check rejects tracks above the ceiling. An unknown (zero) duration passes
// unless reject_unknown is set.
func (f *DurationLimitFilter) Check(ctx context.Context, t track.Track) Result {
	if t.Duration <= 0 {
		if f.config.RejectUnknown {
			return Reject(CodeUnknownDuration)
		}
		return Accept()
	}

	if t.Duration > time.Duration(f.config.MaxSeconds)*time.Second {
		return Reject(CodeTooLong)
	}
	if t.Duration < time.Duration(f.config.MinSeconds)*time.Second {
		return Reject(CodeTooShort)
	}
	return Accept()
}

func init() {
	Register(DurationLimitName, func() Filter {
		return NewDurationLimitFilter()
	})
}
