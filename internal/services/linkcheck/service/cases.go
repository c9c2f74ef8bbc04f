package service

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	perr "refguard/internal/platform/errors"
	"refguard/internal/platform/validate"
	dom "refguard/internal/services/linkcheck/domain"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// casesFile is the on-disk shape of a cases file
//
//	cases:
//	  - name: storefront
//	    slug: summer-bundle
//	    category: software
//	    destination: https://shop.example.com/bundle
type casesFile struct {
	Cases []dom.Case `yaml:"cases"`
}

// LoadCases reads and validates a YAML cases file
func LoadCases(path string) ([]dom.Case, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "cases file %s not found", path)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "read cases file %s", path)
	}
	return ParseCases(b)
}

// ParseCases decodes a cases document. Unknown keys are rejected so typos surface
func ParseCases(b []byte) ([]dom.Case, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var f casesFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, perr.Wrap(err, perr.ErrorCodeValidation, "decode cases yaml")
	}
	if len(f.Cases) == 0 {
		return nil, perr.Validationf("cases file lists no cases")
	}
	for i, c := range f.Cases {
		if err := validate.Struct(c); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "case %d (%s)", i, c.Label())
		}
	}
	return f.Cases, nil
}

// DefaultCase is the single synthetic case used when no cases file is given.
// The slug is unique per run so endpoint logs can be told apart
func DefaultCase(destination string) dom.Case {
	id := uuid.NewString()[:8]
	return dom.Case{
		Name:        "synthetic",
		Slug:        "refguard-check-" + id,
		Category:    "software",
		Destination: destination,
	}
}
