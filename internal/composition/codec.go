package composition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// document is the wire shape shared by the JSON and YAML encodings.
type document struct {
	Width            int     `json:"width" yaml:"width"`
	Height           int     `json:"height" yaml:"height"`
	FPS              float64 `json:"fps" yaml:"fps"`
	DurationInFrames int     `json:"durationInFrames" yaml:"durationInFrames"`
	ID               string  `json:"id" yaml:"id"`
	DefaultProps     Props   `json:"defaultProps" yaml:"defaultProps"`
	Props            Props   `json:"props" yaml:"props"`
}

var documentKeys = map[string]bool{
	"width":            true,
	"height":           true,
	"fps":              true,
	"durationInFrames": true,
	"id":               true,
	"defaultProps":     true,
	"props":            true,
}

func (d Descriptor) document() (document, error) {
	if err := d.Validate(); err != nil {
		return document{}, err
	}
	if err := d.defaultProps.checkEncodable("defaultProps"); err != nil {
		return document{}, err
	}
	if err := d.props.checkEncodable("props"); err != nil {
		return document{}, err
	}
	doc := document{
		Width:            d.width,
		Height:           d.height,
		FPS:              d.fps,
		DurationInFrames: d.durationInFrames,
		ID:               d.id,
		DefaultProps:     d.defaultProps,
		Props:            d.props,
	}
	if doc.DefaultProps == nil {
		doc.DefaultProps = Props{}
	}
	if doc.Props == nil {
		doc.Props = Props{}
	}
	return doc, nil
}

func (d *Descriptor) fromDocument(doc document) error {
	nd, err := New(doc.ID, doc.Width, doc.Height, doc.FPS, doc.DurationInFrames, doc.DefaultProps, doc.Props)
	if err != nil {
		return err
	}
	*d = nd
	return nil
}

func (d Descriptor) MarshalJSON() ([]byte, error) {
	doc, err := d.document()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes and validates a descriptor. Keys outside the seven
// descriptor fields are rejected.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return decodeError(err, "decode descriptor")
	}
	return d.fromDocument(doc)
}

func (d Descriptor) MarshalYAML() (interface{}, error) {
	return d.document()
}

func (d *Descriptor) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return &SerializationError{Reason: fmt.Sprintf("descriptor must be a mapping, got %s", node.ShortTag())}
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !documentKeys[key] {
			return &SerializationError{Path: key, Reason: "unknown descriptor key"}
		}
	}
	var doc document
	if err := node.Decode(&doc); err != nil {
		return decodeError(err, "decode descriptor")
	}
	return d.fromDocument(doc)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if err := v.checkEncodable(""); err != nil {
		return nil, err
	}
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var x any
	if err := json.Unmarshal(data, &x); err != nil {
		return decodeError(err, "decode value")
	}
	val, err := ValueOf(x)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func (v Value) MarshalYAML() (interface{}, error) {
	if err := v.checkEncodable(""); err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	val, err := valueFromNode(node, "")
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func valueFromNode(node *yaml.Node, path string) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return valueFromNode(node.Content[0], path)
	case yaml.AliasNode:
		if node.Alias == nil {
			return Value{}, &SerializationError{Path: path, Reason: "dangling alias"}
		}
		return valueFromNode(node.Alias, path)
	case yaml.SequenceNode:
		out := make([]Value, len(node.Content))
		for i, item := range node.Content {
			val, err := valueFromNode(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return Value{}, err
			}
			out[i] = val
		}
		return Value{kind: KindList, list: out}, nil
	case yaml.MappingNode:
		p := make(Props, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			k, item := node.Content[i], node.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return Value{}, &SerializationError{Path: path, Reason: "mapping keys must be scalars"}
			}
			if k.ShortTag() == "!!merge" {
				return Value{}, &SerializationError{Path: path, Reason: "merge keys are not supported"}
			}
			keyPath := joinPath(path, k.Value)
			if _, dup := p[k.Value]; dup {
				return Value{}, &SerializationError{Path: keyPath, Reason: "duplicate key"}
			}
			val, err := valueFromNode(item, keyPath)
			if err != nil {
				return Value{}, err
			}
			p[k.Value] = val
		}
		return Value{kind: KindMap, m: p}, nil
	case yaml.ScalarNode:
		return scalarFromNode(node, path)
	}
	return Value{}, &SerializationError{Path: path, Reason: fmt.Sprintf("unsupported yaml node kind %d", node.Kind)}
}

func scalarFromNode(node *yaml.Node, path string) (Value, error) {
	switch tag := node.ShortTag(); tag {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, &SerializationError{Path: path, Err: err}
		}
		return Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return Value{}, &SerializationError{Path: path, Err: err}
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, &SerializationError{Path: path, Reason: fmt.Sprintf("non-finite number %s", node.Value)}
		}
		return Number(f), nil
	case "!!str", "!!timestamp":
		return String(node.Value), nil
	default:
		return Value{}, &SerializationError{Path: path, Reason: fmt.Sprintf("unsupported tag %s", tag)}
	}
}

// ParseProps reads a prop bag from a JSON or YAML object. An empty input
// yields nil props; any other non-object document is rejected.
func ParseProps(data []byte) (Props, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, &SerializationError{Reason: "parse props", Err: err}
	}
	val, err := valueFromNode(&node, "")
	if err != nil {
		return nil, err
	}
	if val.IsNull() {
		return nil, nil
	}
	if val.Kind() != KindMap {
		return nil, &ValidationError{Field: "props", Value: val.Kind(), Reason: "must be an object"}
	}
	return val.m, nil
}

// EncodeJSON renders d as indented JSON.
func EncodeJSON(d Descriptor) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func DecodeJSON(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Descriptor{}, decodeError(err, "decode descriptor")
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

func EncodeYAML(d Descriptor) ([]byte, error) {
	return yaml.Marshal(d)
}

func DecodeYAML(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptor{}, decodeError(err, "decode descriptor")
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// decodeError passes descriptor errors through and wraps anything the
// underlying decoder produced in a *SerializationError.
func decodeError(err error, reason string) error {
	var serr *SerializationError
	if errors.As(err, &serr) {
		return err
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return err
	}
	return &SerializationError{Reason: reason, Err: err}
}
