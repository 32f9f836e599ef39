package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration is matched by every *ConfigurationError
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a topology file or setting that cannot be
// used. It is fatal at setup time.
type ConfigurationError struct {
	Source   string
	Problems []string
	Err      error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Source != "" {
		fmt.Fprintf(&b, " in %s", e.Source)
	}
	switch {
	case len(e.Problems) > 0:
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Problems, "; "))
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Is matches ErrConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configError(source string, err error, problems ...string) *ConfigurationError {
	return &ConfigurationError{Source: source, Problems: problems, Err: err}
}
