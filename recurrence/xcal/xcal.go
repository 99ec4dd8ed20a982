// Package xcal encodes recurrence rules as xCal (RFC 6321) recur elements.
//
// The element carries the same parts as the RRULE text form, one child
// element per value:
//
//	<recur xmlns="urn:ietf:params:xml:ns:icalendar-2.0">
//	  <freq>MONTHLY</freq>
//	  <count>10</count>
//	  <byday>1MO</byday>
//	  <byday>-1FR</byday>
//	  <rscale>GREGORIAN</rscale>
//	  <skip>FORWARD</skip>
//	</recur>
//
// Policies without an RFC 7529 spelling use the x-skip and x-repeated
// extension elements.
package xcal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/librecur/recurrence"
	"github.com/samber/mo"
)

// Namespace is the xCal namespace.
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

var ErrMalformed = errors.New("xcal: malformed recur element")

const (
	rruleUntil = "20060102T150405Z"
	xcalUntil  = "2006-01-02T15:04:05Z"
)

// partOrder is the child order RFC 6321 uses, followed by the extensions.
var partOrder = []string{
	"freq", "until", "count", "interval",
	"bysecond", "byminute", "byhour", "byday", "bymonthday", "byyearday",
	"byweekno", "bymonth", "bysetpos", "wkst",
	"rscale", "skip", "x-skip", "x-repeated",
}

// decoder turns the text of one child element into its RRULE value.
type decoder func(text string) mo.Result[string]

var decoders = map[string]decoder{
	"freq":       upper,
	"until":      untilValue,
	"count":      integer,
	"interval":   integer,
	"bysecond":   integer,
	"byminute":   integer,
	"byhour":     integer,
	"byday":      upper,
	"bymonthday": integer,
	"byyearday":  integer,
	"byweekno":   integer,
	"bymonth":    monthValue,
	"bysetpos":   integer,
	"wkst":       upper,
	"rscale":     upper,
	"skip":       upper,
	"x-skip":     upper,
	"x-repeated": upper,
}

func upper(text string) mo.Result[string] {
	if text == "" {
		return mo.Err[string](fmt.Errorf("%w: empty value", ErrMalformed))
	}
	return mo.Ok(strings.ToUpper(text))
}

func integer(text string) mo.Result[string] {
	n, err := strconv.Atoi(text)
	if err != nil {
		return mo.Err[string](fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	return mo.Ok(strconv.Itoa(n))
}

func monthValue(text string) mo.Result[string] {
	digits := strings.TrimSuffix(strings.ToUpper(text), "L")
	if _, err := strconv.Atoi(digits); err != nil {
		return mo.Err[string](fmt.Errorf("%w: month %q", ErrMalformed, text))
	}
	return mo.Ok(strings.ToUpper(text))
}

// untilValue accepts DATE, DATE-TIME and UTC DATE-TIME values.
func untilValue(text string) mo.Result[string] {
	for _, layout := range []string{xcalUntil, "2006-01-02T15:04:05", "2006-01-02"} {
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		switch layout {
		case xcalUntil:
			return mo.Ok(t.Format(rruleUntil))
		case "2006-01-02":
			return mo.Ok(t.Format("20060102"))
		default:
			return mo.Ok(t.Format("20060102T150405"))
		}
	}
	return mo.Err[string](fmt.Errorf("%w: until %q", ErrMalformed, text))
}

// Encode renders r as a recur element.
func Encode(r recurrence.Rule) (*etree.Element, error) {
	text, err := recurrence.FormatRRULE(r)
	if err != nil {
		return nil, err
	}
	values := map[string][]string{}
	for _, part := range strings.Split(text, ";") {
		key, value, _ := strings.Cut(part, "=")
		key = strings.ToLower(key)
		if key == "until" {
			t, err := time.Parse(rruleUntil, value)
			if err != nil {
				return nil, err
			}
			value = t.Format(xcalUntil)
		}
		values[key] = append(values[key], strings.Split(value, ",")...)
	}

	elem := etree.NewElement("recur")
	for _, key := range partOrder {
		for _, v := range values[key] {
			elem.CreateElement(key).SetText(v)
		}
	}
	return elem, nil
}

// Decode reads a recur element into a rule over cal. Unknown children are
// ignored, as RFC 6321 asks of unrecognized extensions.
func Decode(elem *etree.Element, cal recurrence.Calendar) (recurrence.Rule, error) {
	if elem == nil || elem.Tag != "recur" {
		return recurrence.Rule{}, fmt.Errorf("%w: expected <recur>", ErrMalformed)
	}
	values := map[string][]string{}
	for _, child := range elem.ChildElements() {
		decode, ok := decoders[child.Tag]
		if !ok {
			continue
		}
		v, err := decode(strings.TrimSpace(child.Text())).Get()
		if err != nil {
			return recurrence.Rule{}, fmt.Errorf("<%s>: %w", child.Tag, err)
		}
		values[child.Tag] = append(values[child.Tag], v)
	}
	if len(values["freq"]) != 1 {
		return recurrence.Rule{}, fmt.Errorf("%w: exactly one <freq> required", ErrMalformed)
	}

	var parts []string
	for _, key := range partOrder {
		if vs := values[key]; len(vs) > 0 {
			parts = append(parts, strings.ToUpper(key)+"="+strings.Join(vs, ","))
		}
	}
	return recurrence.ParseRRULE(strings.Join(parts, ";"), cal)
}

// Marshal renders r as a standalone XML document.
func Marshal(r recurrence.Rule) ([]byte, error) {
	elem, err := Encode(r)
	if err != nil {
		return nil, err
	}
	elem.CreateAttr("xmlns", Namespace)
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	doc.SetRoot(elem)
	doc.Indent(2)
	return doc.WriteToBytes()
}

// Unmarshal parses a document whose root is a recur element.
func Unmarshal(data []byte, cal recurrence.Calendar) (recurrence.Rule, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return recurrence.Rule{}, fmt.Errorf("xcal: parse document: %w", err)
	}
	return Decode(doc.Root(), cal)
}
