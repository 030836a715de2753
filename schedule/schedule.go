// Package schedule implements the cron-like schedule attached to each
// store: five fields (minutes, hours, days, months, years) that are each
// either a wildcard or an explicit set of integers.
package schedule

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Field is one schedule dimension: a wildcard that matches any value, or
// an explicit set that requires membership. The zero value is a wildcard.
//
// An explicit empty set matches nothing; a schedule containing one never
// fires. That is deliberate and distinct from the wildcard.
type Field struct {
	wildcard bool
	set      map[int]bool
}

// Wildcard returns the field that matches every value.
func Wildcard() Field {
	return Field{wildcard: true}
}

// Set returns the field that matches exactly the given values.
func Set(values ...int) Field {
	m := make(map[int]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return Field{set: m}
}

// Matches reports whether the field accepts the value.
func (f Field) Matches(value int) bool {
	if f.wildcard || f.set == nil {
		return true
	}
	return f.set[value]
}

// UnmarshalYAML accepts either the string "*" or a sequence of integers.
func (f *Field) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		if s != "*" {
			return fmt.Errorf("schedule field must be \"*\" or a list of integers, got %q", s)
		}
		*f = Wildcard()
		return nil
	case yaml.SequenceNode:
		var values []int
		if err := value.Decode(&values); err != nil {
			return fmt.Errorf("schedule field must be \"*\" or a list of integers: %w", err)
		}
		*f = Set(values...)
		return nil
	default:
		return fmt.Errorf("schedule field must be \"*\" or a list of integers")
	}
}

// Schedule decides, at one-minute granularity, when a store's task runs.
type Schedule struct {
	Minutes Field `yaml:"minutes"`
	Hours   Field `yaml:"hours"`
	Days    Field `yaml:"days"`
	Months  Field `yaml:"months"`
	Years   Field `yaml:"years"`
}

// Due reports whether the schedule matches the given time. Pure; callers
// must evaluate at most once per minute or a matching minute fires twice.
func Due(s Schedule, now time.Time) bool {
	return s.Minutes.Matches(now.Minute()) &&
		s.Hours.Matches(now.Hour()) &&
		s.Days.Matches(now.Day()) &&
		s.Months.Matches(int(now.Month())) &&
		s.Years.Matches(now.Year())
}
