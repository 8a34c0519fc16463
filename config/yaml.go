// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DecodeYAML resolves a YAML document into an Item tree, rooted at an
// unnamed Item whose Children are the document's top-level keys. file is
// recorded on every Item's SourceLocation for diagnostics.
//
// A scalar mapping value becomes a single-Value Item ("interval 10s" ->
// one child "interval" with one Value). A sequence of scalars becomes a
// multi-Value Item ("bind_addresses [a, b]"). A mapping value becomes a
// block with Children. A sequence of mappings becomes repeated sibling
// Items sharing the same key, which is how repeatable blocks (multiple
// "label" or "plugin" stanzas) are expressed.
//
// Decoding goes through yaml.Node rather than straight into structs so
// that line numbers survive into SourceLocation: this package resolves the
// generic item shape collectors consume, not any particular collector's
// typed schema.
func DecodeYAML(file string, data []byte) (*Item, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", file, err)
	}
	if len(doc.Content) == 0 {
		return &Item{Source: SourceLocation{File: file}}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config: %s: top-level document must be a mapping", file)
	}
	children, err := decodeMapping(file, root)
	if err != nil {
		return nil, err
	}
	return &Item{Children: children, Source: SourceLocation{File: file}}, nil
}

func decodeMapping(file string, node *yaml.Node) ([]*Item, error) {
	var out []*Item
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		items, err := decodeEntry(file, keyNode.Value, keyNode.Line, valNode)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// decodeEntry may return more than one Item when valNode is a sequence of
// mappings (a repeated block sharing one key).
func decodeEntry(file, key string, line int, valNode *yaml.Node) ([]*Item, error) {
	src := SourceLocation{File: file, Line: line}
	switch valNode.Kind {
	case yaml.ScalarNode:
		v, err := decodeScalar(valNode)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %s: %w", src, key, err)
		}
		return []*Item{{Key: key, Values: []Value{v}, Source: src}}, nil
	case yaml.MappingNode:
		children, err := decodeMapping(file, valNode)
		if err != nil {
			return nil, err
		}
		return []*Item{{Key: key, Children: children, Source: src}}, nil
	case yaml.SequenceNode:
		return decodeSequence(file, key, src, valNode)
	default:
		return nil, fmt.Errorf("config: %s: %s: unsupported node kind", src, key)
	}
}

func decodeSequence(file, key string, src SourceLocation, valNode *yaml.Node) ([]*Item, error) {
	if allScalars(valNode) {
		values := make([]Value, 0, len(valNode.Content))
		for _, c := range valNode.Content {
			v, err := decodeScalar(c)
			if err != nil {
				return nil, fmt.Errorf("config: %s: %s: %w", src, key, err)
			}
			values = append(values, v)
		}
		return []*Item{{Key: key, Values: values, Source: src}}, nil
	}
	var out []*Item
	for _, c := range valNode.Content {
		if c.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("config: %s: %s: mixed scalar/mapping sequence", src, key)
		}
		children, err := decodeMapping(file, c)
		if err != nil {
			return nil, err
		}
		out = append(out, &Item{Key: key, Children: children, Source: SourceLocation{File: file, Line: c.Line}})
	}
	return out, nil
}

func allScalars(node *yaml.Node) bool {
	for _, c := range node.Content {
		if c.Kind != yaml.ScalarNode {
			return false
		}
	}
	return true
}

func decodeScalar(node *yaml.Node) (Value, error) {
	switch node.Tag {
	case "!!bool":
		b, err := strconv.ParseBool(node.Value)
		if err != nil {
			return Value{}, err
		}
		return Boolean(b), nil
	case "!!int", "!!float":
		n, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return Value{}, err
		}
		return Number(n), nil
	default:
		return String(node.Value), nil
	}
}
