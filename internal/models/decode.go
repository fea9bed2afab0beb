package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

var ErrEmptyPayload = errors.New("empty tick payload")

// DecodeTicks accepts a single tick object or an array of ticks.
// Elements that do not decode are counted in rejected and left out.
func DecodeTicks(data []byte) (ticks []Tick, rejected int, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, 0, ErrEmptyPayload
	}

	if data[0] != '[' {
		var t Tick
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, 0, err
		}
		return []Tick{t}, 0, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, err
	}
	ticks = make([]Tick, 0, len(raw))
	for _, r := range raw {
		var t Tick
		if err := json.Unmarshal(r, &t); err != nil {
			rejected++
			continue
		}
		ticks = append(ticks, t)
	}
	return ticks, rejected, nil
}
