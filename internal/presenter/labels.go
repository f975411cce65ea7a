package presenter

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed labels.yaml
var labelsYAML []byte

type labelTable struct {
	Paths   map[string]string `yaml:"paths"`
	Reasons map[string]string `yaml:"reasons"`
}

var labels = mustLoadLabels(labelsYAML)

func mustLoadLabels(data []byte) labelTable {
	var t labelTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		// embedded file, only a broken build gets here
		panic("failed to unmarshal embedded labels.yaml: " + err.Error())
	}
	return t
}

// PathLabel returns the display label of a decision path. Unknown codes
// are returned unchanged.
func PathLabel(code string) string {
	if l, ok := labels.Paths[code]; ok {
		return l
	}
	return code
}

// ReasonLabel returns the display label of a decision reason. Unknown codes
// are returned unchanged.
func ReasonLabel(code string) string {
	if l, ok := labels.Reasons[code]; ok {
		return l
	}
	return code
}
