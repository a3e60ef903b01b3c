// Package fragments decodes recognizer output dumps into positioned fragments.
package fragments

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

type envelope struct {
	Fragments []domain.PositionedFragment `json:"fragments"`
	Texts     []string                    `json:"rec_texts"`
	Polys     [][][]float64               `json:"rec_polys"`
	Scores    []float64                   `json:"rec_scores"`
}

// Decode accepts three layouts: a bare fragment array, an object with a
// "fragments" array, and the rec_texts/rec_polys/rec_scores columns some
// recognizers emit. Legacy [[box, [text, score]], ...] pairs are also read.
func Decode(data []byte) ([]domain.PositionedFragment, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, invalid(errors.New("empty fragment document"))
	}

	if data[0] == '[' {
		var list []domain.PositionedFragment
		if err := json.Unmarshal(data, &list); err == nil {
			return validate(list)
		}
		return decodePairs(data)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, invalid(fmt.Errorf("decode fragments: %w", err))
	}
	if env.Texts != nil {
		return decodeColumns(env)
	}
	if env.Fragments == nil {
		return nil, invalid(errors.New("no fragments field"))
	}
	return validate(env.Fragments)
}

func decodeColumns(env envelope) ([]domain.PositionedFragment, error) {
	if len(env.Polys) != len(env.Texts) {
		return nil, invalid(fmt.Errorf("rec_polys has %d entries for %d texts", len(env.Polys), len(env.Texts)))
	}
	out := make([]domain.PositionedFragment, 0, len(env.Texts))
	for i, text := range env.Texts {
		box, err := toBox(env.Polys[i])
		if err != nil {
			return nil, invalid(fmt.Errorf("fragment %d: %w", i, err))
		}
		score := 1.0
		if i < len(env.Scores) {
			score = env.Scores[i]
		}
		out = append(out, domain.PositionedFragment{Text: text, Confidence: score, BoundingBox: box})
	}
	return validate(out)
}

func decodePairs(data []byte) ([]domain.PositionedFragment, error) {
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, invalid(fmt.Errorf("decode fragments: %w", err))
	}
	out := make([]domain.PositionedFragment, 0, len(pairs))
	for i, pair := range pairs {
		var poly [][]float64
		if err := json.Unmarshal(pair[0], &poly); err != nil {
			return nil, invalid(fmt.Errorf("fragment %d box: %w", i, err))
		}
		box, err := toBox(poly)
		if err != nil {
			return nil, invalid(fmt.Errorf("fragment %d: %w", i, err))
		}
		var rec []json.RawMessage
		if err := json.Unmarshal(pair[1], &rec); err != nil || len(rec) != 2 {
			return nil, invalid(fmt.Errorf("fragment %d: expected [text, score]", i))
		}
		var frag domain.PositionedFragment
		if err := json.Unmarshal(rec[0], &frag.Text); err != nil {
			return nil, invalid(fmt.Errorf("fragment %d text: %w", i, err))
		}
		if err := json.Unmarshal(rec[1], &frag.Confidence); err != nil {
			return nil, invalid(fmt.Errorf("fragment %d score: %w", i, err))
		}
		frag.BoundingBox = box
		out = append(out, frag)
	}
	return validate(out)
}

func toBox(poly [][]float64) ([4]domain.Point, error) {
	var box [4]domain.Point
	if len(poly) != 4 {
		return box, fmt.Errorf("expected 4 corners, got %d", len(poly))
	}
	for i, p := range poly {
		if len(p) != 2 {
			return box, fmt.Errorf("corner %d has %d coordinates", i, len(p))
		}
		box[i] = domain.Point{X: p[0], Y: p[1]}
	}
	return box, nil
}

func validate(list []domain.PositionedFragment) ([]domain.PositionedFragment, error) {
	for _, f := range list {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}
	if list == nil {
		list = []domain.PositionedFragment{}
	}
	return list, nil
}

func invalid(err error) error {
	return domain.WrapError(domain.ErrInvalidInput, "decode fragments", err)
}
