package template

import (
	"fmt"
	"reflect"

	sprig "github.com/go-task/slim-sprig/v3"
)

// defaultFilters are the helpers available in every template, mostly taken from sprig
func defaultFilters() map[string]any {
	funcMap := sprig.GenericFuncMap()

	filters := map[string]any{}
	for _, name := range []string{"upper", "lower", "trim", "title", "trunc", "replace", "date"} {
		filters[name] = funcMap[name]
	}
	filters["json"] = funcMap["toJson"]

	dfault := reflect.ValueOf(funcMap["default"])
	filters["default"] = func(value, fallback any) any {
		if value == nil || fallback == nil {
			if value == nil {
				return fallback
			}
			return value
		}
		out := dfault.Call([]reflect.Value{reflect.ValueOf(fallback), reflect.ValueOf(value)})
		return out[0].Interface()
	}
	return filters
}

// checkFilter verifies fn can be called as a helper: a function with a single result
func checkFilter(fn any) error {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		return fmt.Errorf("filter must be a function, got %T", fn)
	}
	if t.NumOut() != 1 {
		return fmt.Errorf("filter must return exactly one value, returns %d", t.NumOut())
	}
	if t.IsVariadic() {
		return fmt.Errorf("filter cannot be variadic")
	}
	return nil
}
