// Package txflow is the functional-options builder callers use to assemble a
// Dispatcher without touching the underlying hexagonal wiring directly,
// grounded in the teacher's Conf/StreamIN/StreamOUT Flow builder.
package txflow

import (
	"context"
	"fmt"

	"txflow/internal/app/config"
)

// Flow is a convenience builder that lets callers say Conf → Capabilities →
// Build without constructing a registry.Registry by hand.
type Flow struct {
	cfg  *config.Config
	opts []DispatcherOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow
// builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *config.Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before
// building a Dispatcher.
func (f *Flow) Config() *config.Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw DispatcherOption values to the builder for advanced
// scenarios not covered by a Capabilities helper.
func (f *Flow) Options(opts ...DispatcherOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// Capabilities records capability overrides (gateway, settings, distributor
// registry, observability) and builds the Dispatcher.
func (f *Flow) Capabilities(opts ...DispatcherOption) (*Dispatcher, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	f.appendOptions(opts...)
	return NewDispatcher(f.cfg, f.opts...)
}

// Build is an alias for Capabilities with no additional overrides, useful
// when every capability was already supplied via WithFlowOptions or Options.
func (f *Flow) Build() (*Dispatcher, error) {
	return f.Capabilities()
}

// Run is a shortcut for Build + Dispatcher.Run.
func (f *Flow) Run(ctx context.Context, opts ...DispatcherOption) error {
	d, err := f.Capabilities(opts...)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}

// WithFlowOptions appends DispatcherOption values during Conf.
func WithFlowOptions(opts ...DispatcherOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

func (f *Flow) appendOptions(opts ...DispatcherOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
