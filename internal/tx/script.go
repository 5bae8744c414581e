package tx

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hydrafund/hydrafund-node/internal/types"
)

// Blueprint is the compiled contract artifact (plutus.json). It is a
// build-time dependency: a missing validator is fatal, not recoverable.
type Blueprint struct {
	Validators []Validator `json:"validators"`
}

type Validator struct {
	Title        string `json:"title"`
	CompiledCode string `json:"compiledCode"`
	Hash         string `json:"hash"`
}

// LoadValidator reads the blueprint file and returns the validator with the
// given title.
func LoadValidator(path, title string) (*Validator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blueprint %s: %w", path, err)
	}
	return findValidator(raw, title)
}

func findValidator(raw []byte, title string) (*Validator, error) {
	var blueprint Blueprint
	if err := json.Unmarshal(raw, &blueprint); err != nil {
		return nil, fmt.Errorf("parse blueprint: %w", err)
	}
	for i := range blueprint.Validators {
		if blueprint.Validators[i].Title == title {
			return &blueprint.Validators[i], nil
		}
	}
	return nil, fmt.Errorf("validator %q: %w", title, types.ErrValidatorNotFound)
}
