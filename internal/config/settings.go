package config

import (
	"errors"
	"fmt"
	"strings"
)

// Settings holds the values copied into every envelope. A nil field was
// never configured; an empty string is a configured value.
type Settings struct {
	SNSTopic            *string `yaml:"snsTopic"`
	MessageTitle        *string `yaml:"messageTitle"`
	MessageDescription  *string `yaml:"messageDescription"`
	SourceAccountNumber *string `yaml:"sourceAccountNumber"`
	SourceRegion        *string `yaml:"sourceRegion"`
	AppName             *string `yaml:"appName"`
}

// String returns a pointer to v, for building Settings literals.
func String(v string) *string { return &v }

// ErrMissingConfiguration matches every *MissingError via errors.Is.
var ErrMissingConfiguration = errors.New("missing configuration")

// MissingError lists the required keys that were never configured.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing configuration: %s", strings.Join(e.Keys, ", "))
}

// Is reports whether target is ErrMissingConfiguration.
func (e *MissingError) Is(target error) bool { return target == ErrMissingConfiguration }

func (s *Settings) fields() []struct {
	key string
	val *string
} {
	return []struct {
		key string
		val *string
	}{
		{EnvSNSTopic, s.SNSTopic},
		{EnvMessageTitle, s.MessageTitle},
		{EnvMessageDescription, s.MessageDescription},
		{EnvSourceAccountNumber, s.SourceAccountNumber},
		{EnvSourceRegion, s.SourceRegion},
		{EnvAppName, s.AppName},
	}
}

// Validate returns a *MissingError naming every absent key, or nil.
func (s *Settings) Validate() error {
	return s.Require(
		EnvSNSTopic, EnvMessageTitle, EnvMessageDescription,
		EnvSourceAccountNumber, EnvSourceRegion, EnvAppName,
	)
}

// Require returns a *MissingError naming the absent keys among keys, or nil.
func (s *Settings) Require(keys ...string) error {
	present := map[string]bool{}
	if s != nil {
		for _, f := range s.fields() {
			present[f.key] = f.val != nil
		}
	}

	var missing []string
	for _, k := range keys {
		if !present[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}
	return nil
}

// Topic returns the destination topic, or "" when absent.
func (s *Settings) Topic() string {
	if s == nil || s.SNSTopic == nil {
		return ""
	}
	return *s.SNSTopic
}

// applyEnv overrides fields for every key present in the environment,
// including keys set to the empty string.
func (s *Settings) applyEnv(lookup LookupFunc) {
	set := func(key string, dst **string) {
		if v, ok := lookup(key); ok {
			*dst = String(v)
		}
	}
	set(EnvSNSTopic, &s.SNSTopic)
	set(EnvMessageTitle, &s.MessageTitle)
	set(EnvMessageDescription, &s.MessageDescription)
	set(EnvSourceAccountNumber, &s.SourceAccountNumber)
	set(EnvSourceRegion, &s.SourceRegion)
	set(EnvAppName, &s.AppName)
}
