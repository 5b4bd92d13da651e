package model

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// canonicalAlgorithm is the stable projection hashed by Fingerprint.
// Diagnostics, help and the source path are excluded.
type canonicalAlgorithm struct {
	Version     uint8
	Name        string
	DisplayName string
	Group       string
	Parameters  []canonicalParameter
	Outputs     []canonicalOutput
	Commands    []string
	Expressions []string
	Flags       Flags
	Github      []string
}

type canonicalParameter struct {
	Name     string
	Kind     string
	Detail   ParameterKind
	Default  string
	Optional bool
}

type canonicalOutput struct {
	Name   string
	Kind   string
	Detail OutputKind
}

func (a *Algorithm) canonicalize() *canonicalAlgorithm {
	c := &canonicalAlgorithm{
		Version:     1,
		Name:        a.Name,
		DisplayName: a.DisplayName,
		Group:       a.Group,
		Commands:    a.Commands,
		Expressions: a.Expressions,
		Flags:       a.Flags,
		Github:      a.GithubDependencies,
	}
	for _, p := range a.Parameters {
		def := ""
		if p.Default != nil {
			def = fmt.Sprintf("%v", p.Default)
		}
		c.Parameters = append(c.Parameters, canonicalParameter{
			Name:     p.Name,
			Kind:     KindName(p.Kind),
			Detail:   p.Kind,
			Default:  def,
			Optional: p.Optional,
		})
	}
	for _, o := range a.Outputs {
		c.Outputs = append(c.Outputs, canonicalOutput{Name: o.Name, Kind: OutputKindName(o.Kind), Detail: o.Kind})
	}
	return c
}

// MarshalCanonical produces the deterministic CBOR encoding of the model.
func (a *Algorithm) MarshalCanonical() ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	data, err := encMode.Marshal(a.canonicalize())
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// Fingerprint returns "blake2b:<hex>" over the canonical encoding. Two parses
// of the same script text yield the same fingerprint.
func (a *Algorithm) Fingerprint() (string, error) {
	data, err := a.MarshalCanonical()
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return fmt.Sprintf("blake2b:%x", sum), nil
}
