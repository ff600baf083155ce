// Package config parses KDL run files describing a sampling run.
//
// A run file holds exactly one run node:
//
//	run "normal" {
//	    samples 1000
//	    chains 4
//	    seed 42
//	    step-size 0.8
//	    parallelism 2
//	    label "Chain %d"
//	}
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"strings"

	"github.com/opencontainers/go-digest"
	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/ndisidore/scanbar/internal/scanbar"
)

// Sentinel errors for parse and validation failures.
var (
	ErrNoRun          = errors.New("no run node found")
	ErrMultipleRuns   = errors.New("multiple run nodes found")
	ErrMissingName    = errors.New("run node missing name argument")
	ErrUnknownNode    = errors.New("unknown node type")
	ErrMissingField   = errors.New("missing required field")
	ErrDuplicateField = errors.New("duplicate field")
	ErrExtraArgs      = errors.New("too many arguments")
	ErrTypeMismatch   = errors.New("argument type mismatch")
	ErrOutOfRange     = errors.New("value out of range")
)

// Defaults applied to fields a run file leaves out.
const (
	DefaultChains   = 1
	DefaultStepSize = 1.0
)

// Run describes one sampling run.
type Run struct {
	Name        string
	Samples     int
	Chains      int
	Seed        uint64
	StepSize    float64
	Parallelism int    // 0 = all chains at once
	Label       string // running bar label; empty keeps the reporter default
}

// Validate checks field ranges.
func (r Run) Validate() error {
	switch {
	case r.Samples < 1:
		return fmt.Errorf("samples %d: %w: must be at least 1", r.Samples, ErrOutOfRange)
	case r.Chains < 1:
		return fmt.Errorf("chains %d: %w: must be at least 1", r.Chains, ErrOutOfRange)
	case r.Parallelism < 0:
		return fmt.Errorf("parallelism %d: %w: must be >= 0", r.Parallelism, ErrOutOfRange)
	case !(r.StepSize > 0) || math.IsInf(r.StepSize, 0):
		return fmt.Errorf("step-size %v: %w: must be positive and finite", r.StepSize, ErrOutOfRange)
	}
	if r.Label != "" {
		if err := scanbar.CheckLabel(r.Label); err != nil {
			return fmt.Errorf("label: %w", err)
		}
	}
	return nil
}

// Digest fingerprints the fields that determine the samples drawn, so two
// runs with the same digest produce the same chains.
func (r Run) Digest() digest.Digest {
	return digest.FromString(fmt.Sprintf("samples=%d chains=%d seed=%d step-size=%g",
		r.Samples, r.Chains, r.Seed, r.StepSize))
}

// ParseFile reads and parses a KDL run file at the given path.
func ParseFile(path string) (r Run, err error) {
	f, err := os.Open(path)
	if err != nil {
		return Run{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	return Parse(f, path)
}

// ParseString parses KDL content from a string into a Run.
func ParseString(content string) (Run, error) {
	return Parse(strings.NewReader(content), "<string>")
}

// Parse parses KDL content from the reader into a Run.
func Parse(r io.Reader, filename string) (Run, error) {
	doc, err := kdl.Parse(r)
	if err != nil {
		return Run{}, fmt.Errorf("parsing %s: %w", filename, err)
	}

	var runNode *document.Node
	for _, node := range doc.Nodes {
		switch name := node.Name.ValueString(); name {
		case "run":
			if runNode != nil {
				return Run{}, fmt.Errorf("%s: %w", filename, ErrMultipleRuns)
			}
			runNode = node
		default:
			return Run{}, fmt.Errorf("%s: %w: %q (expected run)", filename, ErrUnknownNode, name)
		}
	}
	if runNode == nil {
		return Run{}, fmt.Errorf("%s: %w", filename, ErrNoRun)
	}

	return parseRun(runNode, filename)
}

func parseRun(node *document.Node, filename string) (Run, error) {
	name, err := stringArg(node, 0)
	if err != nil {
		return Run{}, fmt.Errorf("%s: %w: %w", filename, ErrMissingName, err)
	}
	if len(node.Arguments) > 1 {
		return Run{}, fmt.Errorf("%s: run %q: %w", filename, name, ErrExtraArgs)
	}

	r := Run{Name: name, Chains: DefaultChains, StepSize: DefaultStepSize}
	seen := make(map[string]struct{}, len(node.Children))
	for _, child := range node.Children {
		field := child.Name.ValueString()
		if _, dup := seen[field]; dup {
			return Run{}, fmt.Errorf("%s: run %q: %w: %q", filename, name, ErrDuplicateField, field)
		}
		seen[field] = struct{}{}
		if len(child.Arguments) > 1 {
			return Run{}, fmt.Errorf("%s: run %q: %s: %w", filename, name, field, ErrExtraArgs)
		}
		if err := applyField(&r, field, child); err != nil {
			return Run{}, fmt.Errorf("%s: run %q: %w", filename, name, err)
		}
	}
	if _, ok := seen["samples"]; !ok {
		return Run{}, fmt.Errorf("%s: run %q: %w: %q", filename, name, ErrMissingField, "samples")
	}

	if err := r.Validate(); err != nil {
		return Run{}, fmt.Errorf("%s: run %q: %w", filename, name, err)
	}
	return r, nil
}

func applyField(r *Run, field string, node *document.Node) error {
	var err error
	switch field {
	case "samples":
		r.Samples, err = intArg(node, 0)
	case "chains":
		r.Chains, err = intArg(node, 0)
	case "parallelism":
		r.Parallelism, err = intArg(node, 0)
	case "seed":
		r.Seed, err = uint64Arg(node, 0)
	case "step-size":
		r.StepSize, err = floatArg(node, 0)
	case "label":
		r.Label, err = stringArg(node, 0)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNode, field)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

// stringArg returns the string value at the given argument index, or an error.
func stringArg(node *document.Node, idx int) (string, error) {
	if idx >= len(node.Arguments) {
		return "", fmt.Errorf("argument %d: %w", idx, ErrMissingField)
	}
	v, ok := node.Arguments[idx].ResolvedValue().(string)
	if !ok {
		return "", fmt.Errorf("argument %d: not a string: %w", idx, ErrTypeMismatch)
	}
	return v, nil
}

// intArg returns the integer value at the given argument index.
func intArg(node *document.Node, idx int) (int, error) {
	if idx >= len(node.Arguments) {
		return 0, fmt.Errorf("argument %d: %w", idx, ErrMissingField)
	}
	switch v := node.Arguments[idx].ResolvedValue().(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case *big.Int:
		return 0, fmt.Errorf("argument %d: %w", idx, ErrOutOfRange)
	default:
		return 0, fmt.Errorf("argument %d: not an integer: %w", idx, ErrTypeMismatch)
	}
}

// uint64Arg returns the non-negative integer value at the given argument
// index, accepting the full uint64 range.
func uint64Arg(node *document.Node, idx int) (uint64, error) {
	if idx >= len(node.Arguments) {
		return 0, fmt.Errorf("argument %d: %w", idx, ErrMissingField)
	}
	switch v := node.Arguments[idx].ResolvedValue().(type) {
	case *big.Int:
		if !v.IsUint64() {
			return 0, fmt.Errorf("argument %d: %w: must fit in 64 bits", idx, ErrOutOfRange)
		}
		return v.Uint64(), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("argument %d: %w: must be >= 0", idx, ErrOutOfRange)
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("argument %d: %w: must be >= 0", idx, ErrOutOfRange)
		}
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("argument %d: not an integer: %w", idx, ErrTypeMismatch)
	}
}

// floatArg returns the numeric value at the given argument index; integers
// are accepted.
func floatArg(node *document.Node, idx int) (float64, error) {
	if idx >= len(node.Arguments) {
		return 0, fmt.Errorf("argument %d: %w", idx, ErrMissingField)
	}
	switch v := node.Arguments[idx].ResolvedValue().(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("argument %d: not a number: %w", idx, ErrTypeMismatch)
	}
}
