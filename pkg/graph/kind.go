package graph

import "fmt"

// NodeKind enumerates the kinds of node that can be placed on a canvas.
type NodeKind int

const (
	KindGeneric           NodeKind = iota // plain card
	KindGroup                             // container other nodes point at
	KindDocumentAgent                     // agent bound to linked documents
	KindConfigurableAgent                 // agent with model/tone settings
)

// Kinds lists every valid kind in declaration order.
func Kinds() []NodeKind {
	return []NodeKind{KindGeneric, KindGroup, KindDocumentAgent, KindConfigurableAgent}
}

func (k NodeKind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindGroup:
		return "group"
	case KindDocumentAgent:
		return "document-agent"
	case KindConfigurableAgent:
		return "configurable-agent"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the declared kinds.
func (k NodeKind) Valid() bool {
	return k >= KindGeneric && k <= KindConfigurableAgent
}

// ParseKind converts the text form of a kind back to a NodeKind.
func ParseKind(s string) (NodeKind, error) {
	for _, k := range Kinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText encodes the kind by name so persisted data survives reordering.
func (k NodeKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *NodeKind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
