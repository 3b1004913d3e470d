package config

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load reads a session configuration YAML file on top of the defaults
func Load(path string) (Config, error) {

	raw, err := readYAML(path)

	if err != nil {
		return Config{}, err
	}

	cfg, err := Merge(Defaults(), raw)

	if err != nil {
		return Config{}, errors.Wrapf(err, "decoding %s", path)
	}

	return cfg, nil
}

// LoadCamera reads a camera calibration YAML file
func LoadCamera(path string) (Camera, error) {

	raw, err := readYAML(path)

	if err != nil {
		return Camera{}, err
	}

	cam, err := DecodeCamera(raw)

	if err != nil {
		return Camera{}, errors.Wrapf(err, "decoding %s", path)
	}

	return cam, nil
}

// Merge decodes the overrides onto a copy of base.  Keys may be nested maps
// or flattened dotted paths such as "fcw.safety_radius".
func Merge(base Config, overrides map[string]interface{}) (Config, error) {

	nested, err := FromFlat(overrides)

	if err != nil {
		return Config{}, err
	}

	cfg := base

	if err := decode(nested, &cfg, true); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// DecodeCamera decodes a generic map into a Camera on top of the camera
// defaults.  The horizon may be given as "horizon" or "horizon_points".
func DecodeCamera(raw map[string]interface{}) (Camera, error) {

	cam := CameraDefaults()

	if raw == nil {
		return cam, nil
	}

	m := make(map[string]interface{}, len(raw))

	for k, v := range raw {
		m[k] = v
	}

	if _, ok := m["horizon"]; !ok {
		if hp, ok := m["horizon_points"]; ok {
			m["horizon"] = hp
		}
	}

	delete(m, "horizon_points")

	if err := decode(m, &cam, false); err != nil {
		return Camera{}, err
	}

	if cam.RectifiedSize == [2]int{} {
		cam.RectifiedSize = cam.ImageSize
	}

	return cam, nil
}

// FromFlat expands dotted keys into nested maps, so {"fcw.safety_radius": 20}
// becomes {"fcw": {"safety_radius": 20}}.  Nested maps already present are
// merged.
func FromFlat(flat map[string]interface{}) (map[string]interface{}, error) {

	out := make(map[string]interface{})

	// sorted so conflicts are reported deterministically
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {

		parts := strings.Split(key, ".")
		node := out

		for i, part := range parts[:len(parts)-1] {

			next, exists := node[part]

			if !exists {
				child := make(map[string]interface{})
				node[part] = child
				node = child
				continue
			}

			child, ok := next.(map[string]interface{})

			if !ok {
				return nil, fmt.Errorf("parameter %q conflicts with %q",
					key, strings.Join(parts[:i+1], "."))
			}

			node = child
		}

		leaf := parts[len(parts)-1]

		if err := mergeValue(node, leaf, flat[key]); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
	}

	return out, nil
}

func mergeValue(node map[string]interface{}, key string, value interface{}) error {

	existing, exists := node[key]

	if !exists {
		if m, ok := value.(map[string]interface{}); ok {
			value = copyMap(m)
		}
		node[key] = value
		return nil
	}

	dst, dstOK := existing.(map[string]interface{})
	src, srcOK := value.(map[string]interface{})

	if !dstOK || !srcOK {
		return errors.New("value set twice")
	}

	for k, v := range src {
		if err := mergeValue(dst, k, v); err != nil {
			return err
		}
	}

	return nil
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if child, ok := v.(map[string]interface{}); ok {
			v = copyMap(child)
		}
		out[k] = v
	}
	return out
}

func readYAML(path string) (map[string]interface{}, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	raw := make(map[string]interface{})

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	return raw, nil
}

// decode runs mapstructure with the point list hook.  Strict decoding
// rejects unknown keys.
func decode(input interface{}, out interface{}, strict bool) error {

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       pointsHook,
		WeaklyTypedInput: true,
		ZeroFields:       true,
		ErrorUnused:      strict,
		Result:           out,
	})

	if err != nil {
		return err
	}

	return dec.Decode(input)
}

var pointsType = reflect.TypeOf(Points{})

// pointsHook normalises the accepted point list layouts into a list of
// [x, y] pairs
func pointsHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {

	if to != pointsType || data == nil {
		return data, nil
	}

	v := reflect.ValueOf(data)

	switch v.Kind() {
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})

		out := make([]interface{}, 0, len(keys))
		for _, k := range keys {
			out = append(out, v.MapIndex(k).Interface())
		}
		return out, nil

	case reflect.Slice, reflect.Array:
		n := v.Len()

		if n == 0 || !isNumber(v.Index(0).Interface()) {
			return data, nil
		}

		if n%2 != 0 {
			return nil, fmt.Errorf("flat point list has odd length %d", n)
		}

		out := make([]interface{}, 0, n/2)
		for i := 0; i < n; i += 2 {
			out = append(out, []interface{}{v.Index(i).Interface(), v.Index(i + 1).Interface()})
		}
		return out, nil
	}

	return data, nil
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}
