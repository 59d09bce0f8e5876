package node

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnimplementedVariant is returned when a persisted node carries a type
// tag that has no decoder.
var ErrUnimplementedVariant = errors.New("unimplemented node variant")

type envelope struct {
	Attr struct {
		NodeType NodeType `json:"nodeType"`
	} `json:"commonNodeAttr"`
}

// Decode reads one persisted node, dispatching on its type tag.
func Decode(data []byte) (Node, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode node tag: %w", err)
	}

	var n Node
	switch env.Attr.NodeType {
	case TypeContainer:
		n = &Container{}
	case TypeAudioSpeech:
		n = &AudioSpeech{}
	case TypeVisualText:
		n = &VisualText{}
	case TypeVideoFile:
		n = &VideoFile{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnimplementedVariant, env.Attr.NodeType)
	}

	if err := json.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("decode %s node: %w", env.Attr.NodeType, err)
	}
	return n, nil
}

// DecodeContainer decodes a node that must be a container.
func DecodeContainer(data []byte) (*Container, error) {
	n, err := Decode(data)
	if err != nil {
		return nil, err
	}
	c, ok := n.(*Container)
	if !ok {
		return nil, fmt.Errorf("expected %s, got %s", TypeContainer, n.Attr().NodeType)
	}
	return c, nil
}

// UnmarshalJSON decodes children through Decode so each keeps its variant.
func (c *Container) UnmarshalJSON(data []byte) error {
	var raw struct {
		Attr  CommonAttr        `json:"commonNodeAttr"`
		Nodes []json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.CommonAttr = raw.Attr
	c.Nodes = make([]Node, 0, len(raw.Nodes))
	for i, nodeJSON := range raw.Nodes {
		n, err := Decode(nodeJSON)
		if err != nil {
			return fmt.Errorf("container %d child %d: %w", raw.Attr.IDNum, i, err)
		}
		c.Nodes = append(c.Nodes, n)
	}
	c.sortNodes()
	return nil
}
