// Package composition defines the descriptor of a renderable video
// composition: output geometry, frame rate, length in frames, identity,
// and the default and resolved prop bags handed to the composition.
package composition

import (
	"errors"
	"math"
)

// Descriptor describes one composition instance. It is read-only after
// construction: every accessor hands out copies, so a Descriptor can be
// shared between goroutines without locking.
type Descriptor struct {
	width            int
	height           int
	fps              float64
	durationInFrames int
	id               string
	defaultProps     Props
	props            Props
}

// New builds a Descriptor from its seven fields. No field is defaulted.
// A non-positive dimension, frame rate or frame count, or an empty id,
// fails with a *ValidationError per offending field. The prop bags are
// copied, so later changes to the arguments do not reach the Descriptor.
func New(id string, width, height int, fps float64, durationInFrames int, defaultProps, props Props) (Descriptor, error) {
	d := Descriptor{
		width:            width,
		height:           height,
		fps:              fps,
		durationInFrames: durationInFrames,
		id:               id,
		defaultProps:     defaultProps.Clone(),
		props:            props.Clone(),
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// MustNew is New for fixtures known to be valid. It panics on error.
func MustNew(id string, width, height int, fps float64, durationInFrames int, defaultProps, props Props) Descriptor {
	d, err := New(id, width, height, fps, durationInFrames, defaultProps, props)
	if err != nil {
		panic(err)
	}
	return d
}

// Validate checks the invariants and reports every violation.
func (d Descriptor) Validate() error {
	var errs []error
	if d.width <= 0 {
		errs = append(errs, &ValidationError{Field: "width", Value: d.width, Reason: "must be greater than 0"})
	}
	if d.height <= 0 {
		errs = append(errs, &ValidationError{Field: "height", Value: d.height, Reason: "must be greater than 0"})
	}
	switch {
	case math.IsNaN(d.fps) || math.IsInf(d.fps, 0):
		errs = append(errs, &ValidationError{Field: "fps", Value: d.fps, Reason: "must be a finite number"})
	case d.fps <= 0:
		errs = append(errs, &ValidationError{Field: "fps", Value: d.fps, Reason: "must be greater than 0"})
	}
	if d.durationInFrames <= 0 {
		errs = append(errs, &ValidationError{Field: "durationInFrames", Value: d.durationInFrames, Reason: "must be greater than 0"})
	}
	if d.id == "" {
		errs = append(errs, &ValidationError{Field: "id", Value: d.id, Reason: "must not be empty"})
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

func (d Descriptor) Width() int { return d.width }
func (d Descriptor) Height() int { return d.height }
func (d Descriptor) FPS() float64 { return d.fps }
func (d Descriptor) DurationInFrames() int { return d.durationInFrames }
func (d Descriptor) ID() string { return d.id }

// DefaultProps returns a copy of the fallback prop values.
func (d Descriptor) DefaultProps() Props { return d.defaultProps.Clone() }

// Props returns a copy of the resolved prop values.
func (d Descriptor) Props() Props { return d.props.Clone() }

// DurationSeconds is the logical length: frames divided by frame rate.
func (d Descriptor) DurationSeconds() float64 {
	if d.fps == 0 {
		return 0
	}
	return float64(d.durationInFrames) / d.fps
}

// IsZero reports whether d is the zero Descriptor returned on failure.
func (d Descriptor) IsZero() bool {
	return d.id == "" && d.width == 0 && d.height == 0 && d.fps == 0 && d.durationInFrames == 0
}

// Equal compares every field, the prop bags deeply.
func (d Descriptor) Equal(o Descriptor) bool {
	return d.width == o.width &&
		d.height == o.height &&
		d.fps == o.fps &&
		d.durationInFrames == o.durationInFrames &&
		d.id == o.id &&
		d.defaultProps.Equal(o.defaultProps) &&
		d.props.Equal(o.props)
}

// WithProps returns a copy of d carrying props as its resolved values.
func (d Descriptor) WithProps(props Props) Descriptor {
	c := d.clone()
	c.props = props.Clone()
	return c
}

// Resolve returns a copy of d whose props are its defaults overlaid with
// overrides.
func (d Descriptor) Resolve(overrides Props) Descriptor {
	return d.WithProps(Merge(d.defaultProps, overrides))
}

func (d Descriptor) clone() Descriptor {
	c := d
	c.defaultProps = d.defaultProps.Clone()
	c.props = d.props.Clone()
	return c
}
