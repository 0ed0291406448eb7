// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/geosan/geosan/address"
	"github.com/geosan/geosan/registry"
)

// strategy is one step of the cascade. A step that fails without
// resolving the address reports its error and lets the next one run.
type strategy struct {
	provenance Provenance
	find       func(ctx context.Context, q Query) (registry.Address, bool, error)
}

// Cascade geocodes queries against a registry snapshot. It is safe for
// concurrent use as long as the remote geocoder is.
type Cascade struct {
	reg        *registry.Registry
	matcher    *Matcher
	localities *LocalityResolver
	remote     RemoteGeocoder
	stopwords  address.Stopwords
	cutoff     float64

	streetSteps   []strategy
	buildingSteps []strategy
}

// Option configures a Cascade.
type Option func(*Cascade)

// WithCutoff sets the fuzzy street similarity threshold.
func WithCutoff(cutoff float64) Option {
	return func(c *Cascade) {
		c.cutoff = cutoff
	}
}

// WithStopwords sets the road-type tokens ignored by the fuzzy retry.
func WithStopwords(sw address.Stopwords) Option {
	return func(c *Cascade) {
		c.stopwords = sw
	}
}

// WithRemote enables the remote search step.
func WithRemote(g RemoteGeocoder) Option {
	return func(c *Cascade) {
		c.remote = g
	}
}

// NewCascade builds the cascade over reg.
func NewCascade(reg *registry.Registry, opts ...Option) *Cascade {
	c := &Cascade{
		reg:       reg,
		stopwords: address.DefaultStopwords,
		cutoff:    DefaultCutoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.matcher = NewMatcher(reg, c.stopwords)
	c.localities = NewLocalityResolver(reg.Localities())

	c.streetSteps = []strategy{
		c.local(StreetMatch, MatchOptions{Level: LevelStreet, Locality: ByPostalCode}),
		c.local(StreetMatch, MatchOptions{Level: LevelStreet, Locality: ByMunicipality}),
		c.local(StreetMatchFuzzy, MatchOptions{Level: LevelStreet, Locality: ByPostalCode, Fuzzy: true}),
		c.local(StreetMatchFuzzy, MatchOptions{Level: LevelStreet, Locality: ByMunicipality, Fuzzy: true}),
	}

	c.buildingSteps = []strategy{
		c.local(BuildingMatch, MatchOptions{Level: LevelBuilding, Locality: ByPostalCode}),
		c.local(BuildingMatch, MatchOptions{Level: LevelBuilding, Locality: ByMunicipality}),
		{provenance: BuildingMatchRemote, find: c.remoteBuilding},
		c.local(BuildingMatchLocal, MatchOptions{Level: LevelBuilding, Locality: ByPostalCode, Fuzzy: true}),
		c.local(BuildingMatchLocal, MatchOptions{Level: LevelBuilding, Locality: ByMunicipality, Fuzzy: true}),
		c.local(StreetClosestNumber, MatchOptions{Level: LevelStreet, Locality: ByPostalCode, ClosestNumber: true}),
		c.local(StreetClosestNumber, MatchOptions{Level: LevelStreet, Locality: ByMunicipality, ClosestNumber: true}),
		c.local(StreetClosestNumberFuzzy, MatchOptions{Level: LevelStreet, Locality: ByPostalCode, Fuzzy: true, ClosestNumber: true}),
		c.local(StreetClosestNumberFuzzy, MatchOptions{Level: LevelStreet, Locality: ByMunicipality, Fuzzy: true, ClosestNumber: true}),
	}

	return c
}

func (c *Cascade) local(p Provenance, opts MatchOptions) strategy {
	if opts.Fuzzy {
		opts.Cutoff = c.cutoff
	}

	return strategy{
		provenance: p,
		find: func(_ context.Context, q Query) (registry.Address, bool, error) {
			a, ok := c.matcher.Find(q, opts)

			return a, ok, nil
		},
	}
}

// remoteBuilding accepts a remote hit only when its EGID is in the
// registry, and then uses the registry coordinates.
func (c *Cascade) remoteBuilding(ctx context.Context, q Query) (registry.Address, bool, error) {
	if c.remote == nil {
		return registry.Address{}, false, nil
	}

	text := fmt.Sprintf("%s %s %s", q.Number, c.stopwords.Strip(q.Street), q.PostalCode)

	m, err := c.remote.Search(ctx, text)
	if err != nil {
		return registry.Address{}, false, fmt.Errorf("remote search %q: %w", text, err)
	}

	if m == nil {
		return registry.Address{}, false, nil
	}

	a, err := c.reg.Building(m.EGID)
	if err != nil {
		return registry.Address{}, false, fmt.Errorf("remote match %q: %w", m.Label, err)
	}

	return a, true, nil
}

// Geocode runs the steps that apply to the completeness of q and returns
// the first success. It never fails: problems are kept in Result.Err.
// When ctx is cancelled before a step succeeds, the result is
// unresolvable and its Err matches ctx.Err(); see Interrupted.
func (c *Cascade) Geocode(ctx context.Context, q Query) Result {
	switch {
	case q.Street == "":
		return c.locality(q, LocalityNoStreet)
	case q.Number == "":
		return c.run(ctx, q, c.streetSteps, LocalityNoNumber)
	default:
		r := c.run(ctx, q, c.buildingSteps, LocalityFallback)
		if r.Provenance == LocalityFallback && q.Municipality == q.PostalCode {
			// the municipality only repeats the postal code, a centroid
			// would be a guess
			r.Point, r.Provenance = nil, Unresolvable
		}

		return r
	}
}

// Interrupted reports whether r was cut short by the cancellation of ctx
// rather than resolved.
func Interrupted(ctx context.Context, r Result) bool {
	err := ctx.Err()

	return err != nil && r.Point == nil && errors.Is(r.Err, err)
}

func (c *Cascade) run(ctx context.Context, q Query, steps []strategy, fallback Provenance) Result {
	var errs []error

	for _, s := range steps {
		a, ok, err := s.find(ctx, q)
		if err != nil {
			zap.L().Debug("geocoding step failed",
				zap.String("id", q.ID),
				zap.String("step", string(s.provenance)),
				zap.Error(err))

			errs = append(errs, err)
		}

		if ok {
			r := addressResult(a, s.provenance)
			r.Err = errors.Join(errs...)

			return r
		}

		if err := ctx.Err(); err != nil {
			// a weaker step must not stand in for one that was cut short
			return Result{Provenance: Unresolvable, Err: errors.Join(append(errs, err)...)}
		}
	}

	r := c.locality(q, fallback)
	r.Err = errors.Join(errs...)

	return r
}

func (c *Cascade) locality(q Query, p Provenance) Result {
	pt, ok := c.localities.Resolve(q.Municipality, q.PostalCode)
	if !ok {
		return Result{Provenance: Unresolvable}
	}

	return Result{Point: &pt, Provenance: p}
}

// Locate returns the centroid of a locality without looking at streets.
func (c *Cascade) Locate(municipality, postalCode string) Result {
	q := NewQuery("", "", "", postalCode, municipality)

	return c.locality(q, LocalityOnly)
}

// Building returns the registry row of egid.
func (c *Cascade) Building(egid int64) (registry.Address, error) {
	return c.reg.Building(egid)
}
