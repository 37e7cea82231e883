package xpathdom

import (
	"strings"
	"sync"
)

// NodeKind tags the eight XPath 1.0 node variants this engine recognizes.
// Modeled as a tagged value rather than an interface hierarchy: the axis
// walker and node tests are thin switches over this tag (see SPEC_FULL.md
// section 5 / spec.md section 9 "Polymorphism across node-kinds").
type NodeKind uint8

const (
	KindRoot NodeKind = iota
	KindDocumentType
	KindElement
	KindAttribute
	KindText
	KindComment
	KindProcessingInstruction
	KindNamespace
	// kindUnsupported covers host DOM node types this engine has no XPath
	// 1.0 meaning for (entity, notation, document fragment, entity
	// reference). They are inert: no children, no attributes, the empty
	// string-value, and they never satisfy any node test.
	kindUnsupported
)

// QName is a qualified name: an optional prefix, an optional namespace URI,
// and a local part. The wildcard name test uses "*" for Local.
type QName struct {
	Prefix string
	URI    string
	Local  string
}

// String renders the qualified name the way the name() function does:
// "prefix:local" when prefixed, "local" otherwise.
func (q QName) String() string {
	if q.Prefix == "" {
		return q.Local
	}
	return q.Prefix + ":" + q.Local
}

// PathNode is the engine's read-only view of a single DOM entry: a weak
// handle into a host tree (the Node interface defined in core.go) plus
// enough identity to compare, walk, and stringify it. Each wrap of an
// attribute allocates a new *hostAttr, so two PathNodes for the same
// attribute are not ==; compare with Equal, and the document-order
// deduplication of spec.md section 3 keys on identityKey(host).
type PathNode struct {
	kind  NodeKind
	host  interface{} // the host Node, or *hostAttr for attribute nodes
	owner *adaptedDocument
}

// Underlying returns the host DOM node this PathNode wraps, for callers
// that need to step back out to the externally-owned tree. Returns nil for
// attribute nodes (use UnderlyingAttr) and for the zero PathNode.
func (n PathNode) Underlying() Node {
	if h, ok := n.host.(Node); ok {
		return h
	}
	return nil
}

// UnderlyingAttr returns the host Attr this PathNode wraps, if n is an
// Attribute node.
func (n PathNode) UnderlyingAttr() (Attr, bool) {
	ha, ok := n.host.(*hostAttr)
	if !ok {
		return nil, false
	}
	return ha.attr, true
}

// Kind reports which of the eight XPath node variants n is.
func (n PathNode) Kind() NodeKind { return n.kind }

// IsZero reports whether n is the zero PathNode (no node at all); axis
// walkers and predicates use this instead of a nil-interface check.
func (n PathNode) IsZero() bool { return n.host == nil }

// hostAttr wraps a host Attr together with its owning element, since the
// host DOM's own attr.ParentNode() is intentionally nil (DOM Level spec)
// while XPath's parent axis needs the owning element.
type hostAttr struct {
	attr  Attr
	owner Element
}

// adaptedDocument caches the document-order index for a host tree so that
// preceding/following axes and Union/Path deduplication can compare two
// nodes in O(1) after the one-time O(n) walk. The cache is built lazily and
// is safe to share across concurrent evaluations of the same Document, per
// spec.md section 5's "DOM adapter itself is thread-safe" requirement.
type adaptedDocument struct {
	root Node

	once    sync.Once
	order   map[interface{}]int // host node (or host Attr) -> index into entries
	entries []docEntry
}

// docEntry is one slot of the document's cached pre-order walk: the node at
// that position, and the index of the last entry within its own subtree
// (itself, for nodes with no children and for attributes). The following
// and preceding axes (axis.go) use the end index to test subtree membership
// in O(1) instead of walking ancestor chains per candidate.
type docEntry struct {
	node PathNode
	end  int
}

func newAdaptedDocument(root Node) *adaptedDocument {
	return &adaptedDocument{root: root}
}

// ensureOrder builds the document-order cache on first use; safe to call
// repeatedly and from concurrent evaluations of the same Document.
func (d *adaptedDocument) ensureOrder() {
	d.once.Do(d.buildOrder)
}

// buildOrder performs the one-time pre-order walk, inserting each element's
// attributes immediately after the element itself and before its children,
// matching spec.md's document-order definition in the GLOSSARY.
func (d *adaptedDocument) buildOrder() {
	d.order = make(map[interface{}]int)
	var walk func(n Node)
	walk = func(n Node) {
		start := len(d.entries)
		pn := wrapHost(d, n)
		d.order[identityKey(pn.host)] = start
		d.entries = append(d.entries, docEntry{node: pn})

		if el, ok := n.(Element); ok {
			attrs := el.Attributes()
			if attrs != nil {
				for i := uint(0); i < attrs.Length(); i++ {
					a, ok := attrs.Item(i).(Attr)
					if !ok {
						continue
					}
					an := wrapAttr(d, a, el)
					d.order[identityKey(an.host)] = len(d.entries)
					d.entries = append(d.entries, docEntry{node: an, end: len(d.entries)})
				}
			}
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
		d.entries[start].end = len(d.entries) - 1
	}
	walk(d.root)
}

// identityKey normalizes n's host payload for use as a document-order map
// key: attribute wrappers key on the underlying Attr itself, not the
// wrapper pointer, so two PathNodes over the same attribute compare equal.
func identityKey(host interface{}) interface{} {
	if ha, ok := host.(*hostAttr); ok {
		return ha.attr
	}
	return host
}

// orderIndex returns n's position in document order, building the index on
// first use.
func (d *adaptedDocument) orderIndex(n PathNode) int {
	d.ensureOrder()
	if idx, ok := d.order[identityKey(n.host)]; ok {
		return idx
	}
	return -1
}

// subtreeRange returns the [start, end] entry indices spanned by n itself
// together with everything nested beneath it (its attributes, if any, and
// its descendants). For leaf nodes and attributes, start == end.
func (d *adaptedDocument) subtreeRange(n PathNode) (start, end int) {
	d.ensureOrder()
	start = d.orderIndex(n)
	if start < 0 {
		return -1, -1
	}
	return start, d.entries[start].end
}

// wrapHost adapts a raw host Node into the engine's PathNode, tagging it
// with the correct NodeKind.
func wrapHost(owner *adaptedDocument, h Node) PathNode {
	if h == nil {
		return PathNode{}
	}
	switch h.NodeType() {
	case DOCUMENT_NODE:
		return PathNode{kind: KindRoot, host: h, owner: owner}
	case DOCUMENT_TYPE_NODE:
		return PathNode{kind: KindDocumentType, host: h, owner: owner}
	case ELEMENT_NODE:
		return PathNode{kind: KindElement, host: h, owner: owner}
	case TEXT_NODE, CDATA_SECTION_NODE:
		return PathNode{kind: KindText, host: h, owner: owner}
	case COMMENT_NODE:
		return PathNode{kind: KindComment, host: h, owner: owner}
	case PROCESSING_INSTRUCTION_NODE:
		return PathNode{kind: KindProcessingInstruction, host: h, owner: owner}
	default:
		return PathNode{kind: kindUnsupported, host: h, owner: owner}
	}
}

// wrapAttr adapts a host attribute, together with the element it belongs
// to, into the engine's PathNode.
func wrapAttr(owner *adaptedDocument, a Attr, el Element) PathNode {
	if a == nil {
		return PathNode{}
	}
	return PathNode{kind: KindAttribute, host: &hostAttr{attr: a, owner: el}, owner: owner}
}

// Equal reports whether two PathNode values refer to the same underlying
// DOM entry. This is identity, not structural equality (spec.md section 3).
func (n PathNode) Equal(other PathNode) bool {
	if n.kind != other.kind {
		return false
	}
	switch h := n.host.(type) {
	case *hostAttr:
		oh, ok := other.host.(*hostAttr)
		return ok && h.attr == oh.attr
	default:
		return n.host == other.host
	}
}

// Parent returns n's parent and true, or the zero PathNode and false if n
// has none. Root, DocumentType, and Namespace nodes never have a parent,
// per spec.md section 3's data model and section 9's decision on the
// namespace-axis open question.
func (n PathNode) Parent() (PathNode, bool) {
	switch n.kind {
	case KindRoot, KindDocumentType, KindNamespace, kindUnsupported:
		return PathNode{}, false
	case KindAttribute:
		ha := n.host.(*hostAttr)
		if ha.owner == nil {
			return PathNode{}, false
		}
		return wrapHost(n.owner, ha.owner), true
	default:
		h := n.host.(Node)
		p := h.ParentNode()
		if p == nil {
			return PathNode{}, false
		}
		return wrapHost(n.owner, p), true
	}
}

// NumChildren reports how many ordered children n has. Text, Comment,
// ProcessingInstruction, DocumentType, and Attribute nodes always report 0.
func (n PathNode) NumChildren() int {
	switch n.kind {
	case KindRoot, KindElement:
		h := n.host.(Node)
		count := 0
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			count++
		}
		return count
	default:
		return 0
	}
}

// ChildAt returns n's i'th child (0-based, bounds-checked) and true, or the
// zero PathNode and false if i is out of range.
func (n PathNode) ChildAt(i int) (PathNode, bool) {
	if i < 0 {
		return PathNode{}, false
	}
	switch n.kind {
	case KindRoot, KindElement:
		h := n.host.(Node)
		j := 0
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if j == i {
				return wrapHost(n.owner, c), true
			}
			j++
		}
	}
	return PathNode{}, false
}

// Attributes returns n's attributes in source order. Only Element nodes
// carry attributes; every other kind returns nil.
func (n PathNode) Attributes() []PathNode {
	if n.kind != KindElement {
		return nil
	}
	el := n.host.(Element)
	attrs := el.Attributes()
	if attrs == nil {
		return nil
	}
	out := make([]PathNode, 0, attrs.Length())
	for i := uint(0); i < attrs.Length(); i++ {
		a, ok := attrs.Item(i).(Attr)
		if !ok {
			continue
		}
		out = append(out, wrapAttr(n.owner, a, el))
	}
	return out
}

// QName returns n's qualified name. Only Element and Attribute nodes carry
// one; every other kind returns the zero QName.
func (n PathNode) QName() QName {
	switch n.kind {
	case KindElement:
		h := n.host.(Node)
		return QName{Prefix: string(h.Prefix()), URI: string(h.NamespaceURI()), Local: string(h.LocalName())}
	case KindAttribute:
		ha := n.host.(*hostAttr)
		return QName{Prefix: string(ha.attr.Prefix()), URI: string(ha.attr.NamespaceURI()), Local: string(ha.attr.LocalName())}
	default:
		return QName{}
	}
}

// Target returns the target of a processing-instruction node, or "" for
// every other kind.
func (n PathNode) Target() string {
	if n.kind != KindProcessingInstruction {
		return ""
	}
	return string(n.host.(ProcessingInstruction).Target())
}

// StringValue computes n's XPath string-value per spec.md section 4.3:
// Attribute -> its value; Text -> its contents; Element/Root -> the
// concatenation, in document order, of all descendant Text contents;
// Comment/ProcessingInstruction -> their data; DocumentType -> "".
func (n PathNode) StringValue() string {
	switch n.kind {
	case KindAttribute:
		return string(n.host.(*hostAttr).attr.Value())
	case KindText:
		return string(n.host.(Node).TextContent())
	case KindComment:
		return string(n.host.(Comment).Data())
	case KindProcessingInstruction:
		return string(n.host.(ProcessingInstruction).Data())
	case KindElement, KindRoot:
		var b strings.Builder
		collectText(&b, n)
		return b.String()
	default:
		return ""
	}
}

func collectText(b *strings.Builder, n PathNode) {
	count := n.NumChildren()
	for i := 0; i < count; i++ {
		c, _ := n.ChildAt(i)
		switch c.kind {
		case KindText:
			b.WriteString(c.StringValue())
		case KindElement:
			collectText(b, c)
		}
	}
}
