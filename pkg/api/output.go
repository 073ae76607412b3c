package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/netops-tools/invsync/pkg/config"
	"github.com/netops-tools/invsync/pkg/export"
	"github.com/netops-tools/invsync/pkg/oci"
	"github.com/netops-tools/invsync/pkg/serializer"
	"github.com/netops-tools/invsync/pkg/snapshot"
)

// Output renders published snapshots to one configured destination.
type Output struct {
	style  export.Style
	format serializer.Format
	sink   serializer.Serializer
}

// NewSink routes target to a serializer: oci:// references are pushed to a
// registry, everything else goes through serializer.NewSink.
func NewSink(target string, format serializer.Format, annotations map[string]string) (serializer.Serializer, error) {
	if oci.IsTarget(target) {
		return oci.NewSink(target, format, oci.WithAnnotations(annotations))
	}
	return serializer.NewSink(target, format,
		serializer.WithConfigMapOptions(serializer.WithConfigMapAnnotations(annotations)))
}

// NewOutput builds the Output described by spec.
func NewOutput(spec config.OutputSpec) (*Output, error) {
	style, err := export.ParseStyle(spec.Style)
	if err != nil {
		return nil, fmt.Errorf("output %q: %w", spec.Target, err)
	}
	format, err := serializer.ParseFormat(spec.Format)
	if err != nil {
		return nil, fmt.Errorf("output %q: %w", spec.Target, err)
	}
	sink, err := NewSink(spec.Target, format, map[string]string{
		"io.invsync.style": string(style),
	})
	if err != nil {
		return nil, fmt.Errorf("output %q: %w", spec.Target, err)
	}
	return &Output{style: style, format: format, sink: sink}, nil
}

// NewOutputs builds every configured output. Any invalid entry fails the
// whole set.
func NewOutputs(specs []config.OutputSpec) ([]*Output, error) {
	outs := make([]*Output, 0, len(specs))
	for _, spec := range specs {
		o, err := NewOutput(spec)
		if err != nil {
			CloseOutputs(outs)
			return nil, err
		}
		outs = append(outs, o)
	}
	return outs, nil
}

// Write renders s and hands it to the sink.
func (o *Output) Write(ctx context.Context, s *snapshot.Snapshot) error {
	doc, err := export.RenderStyle(s, o.style)
	if err != nil {
		return err
	}
	if err := o.sink.Serialize(ctx, doc); err != nil {
		return fmt.Errorf("failed to write inventory to %s: %w", o.String(), err)
	}
	return nil
}

func (o *Output) String() string {
	return serializer.Describe(o.sink)
}

// OutputHook writes every published snapshot to outs. A failing output is
// logged and does not stop the others.
func OutputHook(outs []*Output) snapshot.PublishHook {
	return func(ctx context.Context, s *snapshot.Snapshot) {
		for _, o := range outs {
			start := time.Now()
			if err := o.Write(ctx, s); err != nil {
				slog.Error("output failed", "target", o.String(), "version", s.Version, "error", err)
				continue
			}
			slog.Debug("output written",
				"target", o.String(),
				"version", s.Version,
				"duration", time.Since(start).String())
		}
	}
}

// CloseOutputs releases the sinks of outs.
func CloseOutputs(outs []*Output) {
	for _, o := range outs {
		if err := serializer.Close(o.sink); err != nil {
			slog.Warn("failed to close output", "target", o.String(), "error", err)
		}
	}
}
