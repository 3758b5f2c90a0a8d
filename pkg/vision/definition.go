package vision

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Definition selects a catalog pipeline and its initial parameters.
//
//	pipeline: threshold
//	params:
//	  level: 90
//	  mode: otsu
type Definition struct {
	Pipeline string    `yaml:"pipeline"`
	Params   yaml.Node `yaml:"params"`
}

// ParseDefinition decodes a YAML definition.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, errors.Wrap(err, "unable to decode pipeline definition")
	}
	if def.Pipeline == "" {
		return Definition{}, errors.New("pipeline definition has no pipeline name")
	}

	return def, nil
}

// ReadDefinition reads and decodes the definition file at path.
func ReadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, errors.Wrapf(err, "unable to read %s", path)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return Definition{}, errors.Wrap(err, path)
	}

	return def, nil
}

// apply decodes the parameters into instance. Unknown parameters are errors.
func (d Definition) apply(instance Pipeline) error {
	if d.Params.Kind == 0 {
		return nil
	}
	raw, err := yaml.Marshal(&d.Params)
	if err != nil {
		return errors.Wrap(err, "unable to re-encode parameters")
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(instance); err != nil {
		return errors.Wrapf(err, "unable to decode %s parameters", instance.PipelineName())
	}

	return nil
}
