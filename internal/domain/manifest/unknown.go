package manifest

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

// decodeDocument decodes data into a generic tree for key checks
func decodeDocument(data []byte, format Format) (interface{}, error) {
	var doc interface{}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		err = toml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
	case FormatJSON:
		err = sonic.Unmarshal(data, &doc)
	default:
		err = fmt.Errorf("unsupported manifest format %q", format)
	}
	return doc, err
}

// unknownFields reports one violation per key of doc the model has no field for
func unknownFields(doc interface{}) []types.Violation {
	var out []types.Violation
	walkUnknown(doc, reflect.TypeOf(Manifest{}), "", &out)
	return out
}

func walkUnknown(node interface{}, t reflect.Type, prefix string, out *[]types.Violation) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		fields, ok := asMap(node)
		if !ok {
			return
		}
		known := knownKeys(t)
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			name := k
			if prefix != "" {
				name = prefix + "." + k
			}
			ft, ok := known[k]
			if !ok {
				*out = append(*out, types.Violation{Field: name, Message: fmt.Sprintf("unknown field %q", k)})
				continue
			}
			walkUnknown(fields[k], ft, name, out)
		}
	case reflect.Slice:
		if t.Elem().Kind() != reflect.Struct {
			return
		}
		v := reflect.ValueOf(node)
		if !v.IsValid() || v.Kind() != reflect.Slice {
			return
		}
		for i := 0; i < v.Len(); i++ {
			walkUnknown(v.Index(i).Interface(), t.Elem(), fmt.Sprintf("%s[%d]", prefix, i), out)
		}
	}
}

func asMap(node interface{}) (map[string]interface{}, bool) {
	switch m := node.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	}
	return nil, false
}

// knownKeys maps the serialized names of t's fields to their types
func knownKeys(t reflect.Type) map[string]reflect.Type {
	known := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		known[name] = f.Type
	}
	return known
}
