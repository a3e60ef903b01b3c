package fragments

import (
	"testing"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

func TestDecodeLayouts(t *testing.T) {
	cases := map[string]string{
		"array":    `[{"text":"10 lb","confidence":0.9,"bounding_box":[{"x":0,"y":0},{"x":40,"y":0},{"x":40,"y":20},{"x":0,"y":20}]}]`,
		"envelope": `{"fragments":[{"text":"10 lb","confidence":0.9,"bounding_box":[{"x":0,"y":0},{"x":40,"y":0},{"x":40,"y":20},{"x":0,"y":20}]}]}`,
		"columns":  `{"rec_texts":["10 lb"],"rec_polys":[[[0,0],[40,0],[40,20],[0,20]]],"rec_scores":[0.9]}`,
		"pairs":    `[[[[0,0],[40,0],[40,20],[0,20]],["10 lb",0.9]]]`,
	}
	for name, body := range cases {
		got, err := Decode([]byte(body))
		if err != nil {
			t.Fatalf("%s: Decode() error = %v", name, err)
		}
		if len(got) != 1 || got[0].Text != "10 lb" || got[0].Confidence != 0.9 {
			t.Fatalf("%s: unexpected fragments %+v", name, got)
		}
		if got[0].BoundingBox[2] != (domain.Point{X: 40, Y: 20}) {
			t.Fatalf("%s: unexpected box %+v", name, got[0].BoundingBox)
		}
	}
}

func TestDecodeColumnsDefaultsScore(t *testing.T) {
	got, err := Decode([]byte(`{"rec_texts":["a"],"rec_polys":[[[0,0],[1,0],[1,1],[0,1]]]}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got[0].Confidence != 1 {
		t.Fatalf("expected default confidence 1, got %v", got[0].Confidence)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"not json":       `{fragments`,
		"no fragments":   `{"pages":[]}`,
		"bad confidence": `{"fragments":[{"text":"a","confidence":1.5}]}`,
		"short poly":     `{"rec_texts":["a"],"rec_polys":[[[0,0],[1,0]]]}`,
		"count mismatch": `{"rec_texts":["a","b"],"rec_polys":[[[0,0],[1,0],[1,1],[0,1]]]}`,
		"bad pair":       `[[[[0,0],[1,0],[1,1],[0,1]],["a"]]]`,
	}
	for name, body := range cases {
		if _, err := Decode([]byte(body)); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", name, err)
		}
	}
}
