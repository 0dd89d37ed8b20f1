package symexec

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadOptions reads YAML options over DefaultOptions. Unknown keys are
// rejected.
//
//	path_width: 128
//	chunk_size: 5000
//	solver_timeout: 250ms
func LoadOptions(r io.Reader) (Options, error) {
	opts := DefaultOptions()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && err != io.EOF {
		return Options{}, errors.Wrap(err, "decode options")
	}
	if err := opts.Validate(); err != nil {
		return Options{}, errors.Wrap(err, "invalid options")
	}
	return opts, nil
}

// LoadOptionsFile is LoadOptions over the file at path.
func LoadOptionsFile(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, errors.Wrap(err, "open options")
	}
	defer f.Close()
	opts, err := LoadOptions(f)
	if err != nil {
		return Options{}, errors.Wrapf(err, "%s", path)
	}
	return opts, nil
}
