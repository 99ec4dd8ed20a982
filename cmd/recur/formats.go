package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyp0633/librecur/calendar"
	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/recurrence/xcal"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatRRULE = "rrule"
	formatXCal  = "xcal"
	formatICS   = "ics"
)

func formatFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return formatJSON
	case ".xml", ".xcal":
		return formatXCal
	case ".rrule", ".txt":
		return formatRRULE
	}
	return formatYAML
}

// readRule decodes a rule. JSON and YAML carry their own calendar; the text
// encodings are read over a Gregorian calendar in loc.
func readRule(r io.Reader, format string, loc *time.Location) (recurrence.Rule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return recurrence.Rule{}, err
	}
	var rule recurrence.Rule
	switch format {
	case formatJSON:
		err = json.Unmarshal(data, &rule)
	case formatYAML:
		err = yaml.Unmarshal(data, &rule)
	case formatRRULE:
		rule, err = recurrence.ParseRRULE(string(data), calendar.MustNew(loc))
	case formatXCal:
		rule, err = xcal.Unmarshal(data, calendar.MustNew(loc))
	default:
		return recurrence.Rule{}, fmt.Errorf("unknown input format %q", format)
	}
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("read %s rule: %w", format, err)
	}
	return rule, nil
}

func writeRule(w io.Writer, rule recurrence.Rule, format string) error {
	var (
		out []byte
		err error
	)
	switch format {
	case formatJSON:
		out, err = json.MarshalIndent(rule, "", "  ")
		out = append(out, '\n')
	case formatYAML:
		out, err = yaml.Marshal(rule)
	case formatRRULE:
		var text string
		text, err = recurrence.FormatRRULE(rule)
		out = []byte("RRULE:" + text + "\n")
	case formatXCal:
		out, err = xcal.Marshal(rule)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
