package schema

import (
	"fmt"
	"sync"

	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/templates"
)

// Registry maps every discriminator to its descriptor. It is read-only
// after construction and safe for concurrent use.
type Registry struct {
	byCode map[Discriminator]*Descriptor
	order  []*Descriptor
}

func newRegistry(descs []*Descriptor) *Registry {
	r := &Registry{byCode: make(map[Discriminator]*Descriptor, len(descs))}
	for _, d := range canonical {
		for _, desc := range descs {
			if desc.Discriminator == d {
				r.byCode[d] = desc
				r.order = append(r.order, desc)
			}
		}
	}
	return r
}

// Describe returns the descriptor for d, or an *UnknownDiscriminatorError.
func (r *Registry) Describe(d Discriminator) (*Descriptor, error) {
	desc, ok := r.byCode[d]
	if !ok {
		return nil, &UnknownDiscriminatorError{Value: string(d)}
	}
	return desc, nil
}

// Lookup parses a code or long name and describes it.
func (r *Registry) Lookup(s string) (*Descriptor, error) {
	d, err := ParseDiscriminator(s)
	if err != nil {
		return nil, err
	}
	return r.Describe(d)
}

// All returns the descriptors in canonical order.
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	errDefault      error
)

// Default loads the embedded section descriptors once per process.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultRegistry, errDefault = LoadFromYAML(templates.SectionsFS(), templates.SectionsFile)
		if errDefault != nil {
			log.ErrorErr(log.CatSchema, "Failed to load section descriptors", errDefault)
			return
		}
		log.Debug(log.CatSchema, "Loaded section descriptors", "count", len(defaultRegistry.order))
	})
	return defaultRegistry, errDefault
}

// MustDefault is Default for program start-up and tests.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(fmt.Sprintf("section descriptors: %v", err))
	}
	return r
}
