package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/core/types"
	"github.com/opal-lang/rsx/runtime/planner"
)

var validator = types.NewValidator(nil)

// readInputs merges the --inputs document and the -p overrides, validates
// the result against the algorithm's input schema and fills declared
// defaults for parameters left unset.
func readInputs(alg *model.Algorithm, params []string, inputsFile string, stdin io.Reader) (planner.Inputs, error) {
	doc := map[string]any{}
	if inputsFile != "" {
		var err error
		if doc, err = readInputsFile(inputsFile, stdin); err != nil {
			return nil, err
		}
	}
	for _, p := range params {
		name, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, &CLIError{
				Type:    "usage",
				Message: fmt.Sprintf("invalid parameter %q", p),
				Hint:    "use -p name=value",
			}
		}
		doc[strings.TrimSpace(name)] = value
	}

	if err := validator.Validate(alg.InputSchema(), doc); err != nil {
		return nil, err
	}

	inputs := make(planner.Inputs, len(doc))
	for k, v := range doc {
		inputs[k] = v
	}
	for _, p := range alg.Parameters {
		if _, set := inputs[p.Name]; !set && p.Default != nil {
			inputs[p.Name] = p.Default
		}
	}
	return inputs, nil
}

func readInputsFile(path string, stdin io.Reader) (map[string]any, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("error opening inputs file %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	doc := map[string]any{}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &CLIError{
			Type:    "usage",
			Message: "inputs must be a JSON object",
			Details: err.Error(),
		}
	}
	return doc, nil
}
