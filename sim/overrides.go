package sim

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Overrides maps field names to replacement values for a what-if scenario.
// Categorical fields take strings; numeric fields take Go numbers or json.Number.
type Overrides map[string]any

// Keys returns the override keys in sorted order.
func (o Overrides) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplyOverrides writes every override into p.
// All keys are validated before p is touched: on error p is unchanged.
// Keys are checked in sorted order so the reported field is deterministic.
func ApplyOverrides(p *Project, o Overrides) error {
	keys := o.Keys()
	fields := make([]Field, len(keys))
	for i, k := range keys {
		f, ok := LookupField(k)
		if !ok {
			return unknownField(k)
		}
		fields[i] = f
	}

	staged := *p
	for i, f := range fields {
		if err := f.set(&staged, o[keys[i]]); err != nil {
			return err
		}
	}
	*p = staged
	return nil
}

// set assigns v to the field on p, converting numeric representations.
func (f Field) set(p *Project, v any) error {
	switch f.Kind {
	case Categorical:
		s, ok := v.(string)
		if !ok {
			return invalidValue(f.Name, "want string, got %T", v)
		}
		*f.text(p) = s
		return nil
	case Integer:
		n, err := toFloat(v)
		if err != nil {
			return invalidValue(f.Name, "%v", err)
		}
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
			return invalidValue(f.Name, "want integer, got %v", v)
		}
		*f.whole(p) = int(n)
		return nil
	default:
		n, err := toFloat(v)
		if err != nil {
			return invalidValue(f.Name, "%v", err)
		}
		*f.real(p) = n
		return nil
	}
}

func toFloat(v any) (float64, error) {
	var n float64
	switch x := v.(type) {
	case int:
		n = float64(x)
	case int32:
		n = float64(x)
	case int64:
		n = float64(x)
	case uint:
		n = float64(x)
	case uint32:
		n = float64(x)
	case uint64:
		n = float64(x)
	case float32:
		n = float64(x)
	case float64:
		n = x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("want number, got %q", x.String())
		}
		n = f
	default:
		return 0, fmt.Errorf("want number, got %T", v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("want finite number, got %v", n)
	}
	return n, nil
}

// ParseOverrides parses "field=value" assignments from the command line.
// Values are converted according to the field's declared kind.
func ParseOverrides(assignments []string) (Overrides, error) {
	o := make(Overrides, len(assignments))
	for _, a := range assignments {
		name, raw, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("override %q: want field=value", a)
		}
		name = strings.TrimSpace(name)
		raw = strings.TrimSpace(raw)
		f, known := LookupField(name)
		if !known {
			return nil, unknownField(name)
		}
		if f.Kind == Categorical {
			o[name] = raw
			continue
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, invalidValue(name, "want number, got %q", raw)
		}
		o[name] = n
	}
	return o, nil
}
