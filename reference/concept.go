package reference

// Concept is a named entity owning a Reference. Attach always stores a
// deep copy of the incoming reference so a Concept's working memory can
// never be mutated through a reference the caller still holds.
type Concept struct {
	name string
	ref  *Reference
}

// NewConcept creates a Concept holding a copy of ref. ref may be nil, in
// which case the concept starts out empty until Attach is called.
func NewConcept(name string, ref *Reference) *Concept {
	c := &Concept{name: name}
	if ref != nil {
		c.ref = ref.Clone()
	}
	return c
}

// Name returns the concept's name.
func (c *Concept) Name() string { return c.name }

// Reference returns the concept's owned reference, or nil if none has
// been attached yet.
func (c *Concept) Reference() *Reference { return c.ref }

// Attach replaces the concept's reference with a deep copy of ref.
func (c *Concept) Attach(ref *Reference) {
	if ref == nil {
		c.ref = nil
		return
	}
	c.ref = ref.Clone()
}
