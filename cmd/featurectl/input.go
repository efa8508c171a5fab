package main

import (
	"encoding/json"

	"github.com/sportsedge/featurestore/internal/types"
)

// decodeRawInput parses a spool-format payload file.
func decodeRawInput(data []byte) (types.RawInput, error) {
	var input types.RawInput
	if err := json.Unmarshal(data, &input); err != nil {
		return types.RawInput{}, err
	}
	return input, nil
}
