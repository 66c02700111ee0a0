package collector

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// unmarshalYAML decodes a front matter block so that every value stays as
// written. Timestamps decode as their source text rather than time.Time, and
// scalar mapping keys decode as strings so nested maps remain JSON-encodable.
// Mappings keyed by sequences or mappings are rejected.
func unmarshalYAML(data []byte, v any) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Kind == 0 {
		// Empty block; leave v untouched.
		return nil
	}
	if err := retag(&doc); err != nil {
		return err
	}
	return doc.Decode(v)
}

func retag(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!timestamp" {
			n.Tag = "!!str"
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: mapping key must be a scalar", key.Line)
			}
			if tag := key.ShortTag(); tag != "!!str" && tag != "!!merge" {
				key.Tag = "!!str"
			}
		}
	}
	for _, c := range n.Content {
		if err := retag(c); err != nil {
			return err
		}
	}
	return nil
}
