package sequences

import (
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
sequences:
  - trigger: NuevoLead
    steps:
      - type: text
        content: "Hola {{nombre}}, gracias por escribirnos."
        delayMinutes: 0
      - type: audio
        content: https://cdn.test/intro.m4a
        delayMinutes: 5
  - trigger: LetraEnviada
    steps:
      - type: form
        content: "Cuéntanos más: https://f.test/?t={{telefono}}"
        delayMinutes: 60
`

func TestParse(t *testing.T) {
	defs, err := Parse(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(defs) != 2 || defs[0].Trigger != "NuevoLead" || len(defs[0].Steps) != 2 {
		t.Fatalf("unexpected definitions %+v", defs)
	}
	if defs[0].Steps[1].Type != StepAudio || defs[0].Steps[1].Delay() != 5*time.Minute {
		t.Fatalf("unexpected step %+v", defs[0].Steps[1])
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown type": "sequences:\n  - trigger: A\n    steps:\n      - type: sticker\n        content: x\n",
		"duplicate":    "sequences:\n  - trigger: A\n  - trigger: A\n",
		"no trigger":   "sequences:\n  - steps: []\n",
		"unknown key":  "sequences:\n  - trigger: A\n    color: red\n",
	}
	for name, doc := range cases {
		if _, err := Parse(strings.NewReader(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
