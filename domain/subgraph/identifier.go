package subgraph

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/emergent-company/typegraph/domain/knowledge"
	"github.com/emergent-company/typegraph/domain/ontology"
)

// IdentifierKind tags a GraphElementIdentifier.
type IdentifierKind int

const (
	OntologyElement IdentifierKind = iota + 1
	KnowledgeGraphElement
	TemporaryElement
)

const linkPrefix = "link:"

// GraphElementIdentifier addresses a vertex. Ontology types are addressed by
// versioned URI and entities by id. Links have no persisted identity and use
// their source, target and link type instead.
//
// The text form is the versioned URI, the entity UUID, or
// "link:<source>:<target>:<link type URI>".
type GraphElementIdentifier struct {
	Kind     IdentifierKind
	Ontology ontology.VersionedURI
	Entity   knowledge.EntityID
	Link     knowledge.LinkID
}

func OntologyID(uri ontology.VersionedURI) GraphElementIdentifier {
	return GraphElementIdentifier{Kind: OntologyElement, Ontology: uri}
}

func EntityID(id knowledge.EntityID) GraphElementIdentifier {
	return GraphElementIdentifier{Kind: KnowledgeGraphElement, Entity: id}
}

func LinkID(id knowledge.LinkID) GraphElementIdentifier {
	return GraphElementIdentifier{Kind: TemporaryElement, Link: id}
}

func (g GraphElementIdentifier) String() string {
	switch g.Kind {
	case OntologyElement:
		return g.Ontology.String()
	case KnowledgeGraphElement:
		return g.Entity.String()
	case TemporaryElement:
		return linkPrefix + g.Link.SourceEntityID.String() + ":" + g.Link.TargetEntityID.String() + ":" + g.Link.LinkTypeID.String()
	default:
		return ""
	}
}

func (g GraphElementIdentifier) MarshalText() ([]byte, error) {
	if g.Kind == 0 {
		return nil, fmt.Errorf("graph element identifier is not set")
	}
	return []byte(g.String()), nil
}

func (g *GraphElementIdentifier) UnmarshalText(text []byte) error {
	parsed, err := ParseGraphElementIdentifier(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ParseGraphElementIdentifier parses the text form of an identifier.
func ParseGraphElementIdentifier(s string) (GraphElementIdentifier, error) {
	if rest, ok := strings.CutPrefix(s, linkPrefix); ok {
		parts := strings.SplitN(rest, ":", 3)
		if len(parts) != 3 {
			return GraphElementIdentifier{}, fmt.Errorf("invalid link identifier %q", s)
		}
		source, err := uuid.Parse(parts[0])
		if err != nil {
			return GraphElementIdentifier{}, fmt.Errorf("invalid link source in %q: %w", s, err)
		}
		target, err := uuid.Parse(parts[1])
		if err != nil {
			return GraphElementIdentifier{}, fmt.Errorf("invalid link target in %q: %w", s, err)
		}
		linkType, err := ontology.ParseVersionedURI(parts[2])
		if err != nil {
			return GraphElementIdentifier{}, err
		}
		return LinkID(knowledge.LinkID{SourceEntityID: source, TargetEntityID: target, LinkTypeID: linkType}), nil
	}
	if id, err := uuid.Parse(s); err == nil {
		return EntityID(id), nil
	}
	uri, err := ontology.ParseVersionedURI(s)
	if err != nil {
		return GraphElementIdentifier{}, fmt.Errorf("invalid graph element identifier %q: %w", s, err)
	}
	return OntologyID(uri), nil
}
